// Package errors provides structured error handling for Wayfarer.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage and index errors
//   - 3XX: Embedding and model-backend errors
//   - 4XX: Validation errors
//   - 5XX: Pipeline errors (retrieval, generation)
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates index and metadata-store errors.
	CategoryStorage Category = "STORAGE"
	// CategoryBackend indicates embedding or model backend errors.
	CategoryBackend Category = "BACKEND"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryPipeline indicates retrieval/generation pipeline errors.
	CategoryPipeline Category = "PIPELINE"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but the process can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199). Always fail-fast at startup, never at
	// request time.
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (200-299)
	ErrCodeStoreClosed       = "ERR_201_STORE_CLOSED"
	ErrCodeDimensionMismatch = "ERR_202_DIMENSION_MISMATCH"
	ErrCodeVectorSearch      = "ERR_203_VECTOR_SEARCH"
	ErrCodeMetadataStore     = "ERR_204_METADATA_STORE"

	// Backend errors (300-399)
	ErrCodeEmbedding        = "ERR_301_EMBEDDING"
	ErrCodeEmbedUnavailable = "ERR_302_EMBED_UNAVAILABLE"
	ErrCodeModelCall        = "ERR_303_MODEL_CALL"

	// Validation errors (400-499)
	ErrCodeEmptyQuery   = "ERR_401_EMPTY_QUERY"
	ErrCodeInvalidInput = "ERR_402_INVALID_INPUT"

	// Pipeline errors (500-599)
	ErrCodeRetrievalFailed  = "ERR_501_RETRIEVAL_FAILED"
	ErrCodeGenerationFailed = "ERR_502_GENERATION_FAILED"
	ErrCodeInternal         = "ERR_503_INTERNAL"
)

// categoryFromCode derives the category from the numeric range of an error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryBackend
	case '4':
		return CategoryValidation
	case '5':
		return CategoryPipeline
	default:
		return CategoryInternal
	}
}

// severityFromCode derives the severity from the error code.
// Config errors abort startup; everything else fails the operation only.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryConfig:
		return SeverityFatal
	default:
		return SeverityError
	}
}

// retryableCodes lists codes whose operations may succeed on retry.
var retryableCodes = map[string]bool{
	ErrCodeEmbedUnavailable: true,
	ErrCodeModelCall:        true,
	ErrCodeVectorSearch:     true,
}

// isRetryableCode reports whether operations failing with the code are
// worth retrying.
func isRetryableCode(code string) bool {
	return retryableCodes[code]
}
