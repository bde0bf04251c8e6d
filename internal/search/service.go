package search

import (
	"context"
	goerrors "errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/wayfarer/internal/embed"
	"github.com/Aman-CERP/wayfarer/internal/errors"
	"github.com/Aman-CERP/wayfarer/internal/store"
)

// Service defaults
const (
	DefaultTopK             = 5
	DefaultOversampleFactor = 3
	DefaultBranchTimeout    = 300 * time.Millisecond

	// degradedConfidenceCeiling caps confidence when only one branch
	// contributed.
	degradedConfidenceCeiling = 0.5
)

// Confidence blend weights: top fused score dominates, the rank-1/rank-2
// gap adds certainty, result-set fill contributes the remainder.
const (
	confTopWeight  = 0.55
	confGapWeight  = 0.30
	confFillWeight = 0.15
)

// ServiceConfig configures the retrieval service.
type ServiceConfig struct {
	// DefaultTopK is used when the caller passes topK <= 0.
	DefaultTopK int

	// OversampleFactor multiplies topK for each branch before fusion.
	// Fusing two already-truncated top-K lists can unfairly exclude an
	// item ranked 2nd lexically but 40th semantically.
	OversampleFactor int

	// BranchTimeout bounds each retrieval branch. A slow backend becomes
	// a degraded-but-complete result rather than an unbounded stall.
	BranchTimeout time.Duration
}

// DefaultServiceConfig returns the default retrieval tuning.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		DefaultTopK:      DefaultTopK,
		OversampleFactor: DefaultOversampleFactor,
		BranchTimeout:    DefaultBranchTimeout,
	}
}

// Service composes the embedder, vector index, lexical index, and fusion
// ranker into a single retrieve operation with filtering and a
// confidence estimate.
type Service struct {
	embedder embed.Embedder
	vector   store.VectorIndex
	lexical  lexicalSearcher
	docs     store.DocumentStore
	fusion   *FusionRanker
	config   ServiceConfig
	logger   *slog.Logger
}

// Verify interface implementation at compile time
var _ Retriever = (*Service)(nil)

// NewService creates a retrieval service.
func NewService(
	embedder embed.Embedder,
	vector store.VectorIndex,
	lexical lexicalSearcher,
	docs store.DocumentStore,
	fusion *FusionRanker,
	cfg ServiceConfig,
	logger *slog.Logger,
) *Service {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = DefaultTopK
	}
	if cfg.OversampleFactor < 1 {
		cfg.OversampleFactor = DefaultOversampleFactor
	}
	if cfg.BranchTimeout <= 0 {
		cfg.BranchTimeout = DefaultBranchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		embedder: embedder,
		vector:   vector,
		lexical:  lexical,
		docs:     docs,
		fusion:   fusion,
		config:   cfg,
		logger:   logger,
	}
}

// Retrieve embeds the query, runs both index lookups concurrently, fuses
// the rankings, and truncates to topK.
//
// An empty corpus yields an empty outcome with confidence 0, not an
// error. A vector branch failure degrades to lexical-only retrieval with
// the outcome flagged; both branches failing is a RetrievalError the
// caller must surface rather than fabricate an answer.
func (s *Service) Retrieve(ctx context.Context, query string, filters store.Filters, topK int) (*RetrievalOutcome, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New(errors.ErrCodeEmptyQuery, "retrieve requires a non-empty query", nil)
	}
	if topK <= 0 {
		topK = s.config.DefaultTopK
	}

	start := time.Now()
	fetch := topK * s.config.OversampleFactor

	semResults, lexResults, semErr, lexErr := s.parallelSearch(ctx, query, filters, fetch)

	if semErr != nil && lexErr != nil {
		return nil, errors.RetrievalError("both retrieval branches failed",
			goerrors.Join(semErr, lexErr))
	}

	degraded := semErr != nil
	if degraded {
		s.logger.Warn("retrieval_degraded_lexical_only",
			slog.String("error", semErr.Error()))
	}
	if lexErr != nil {
		s.logger.Warn("lexical_branch_failed",
			slog.String("error", lexErr.Error()))
	}

	fused := s.fusion.Fuse(semResults, lexResults)
	if len(fused) > topK {
		fused = fused[:topK]
	}

	results, err := s.enrich(ctx, fused)
	if err != nil {
		return nil, errors.RetrievalError("failed to load fused documents", err)
	}

	outcome := &RetrievalOutcome{
		Results:    results,
		Confidence: s.confidence(fused, topK, degraded),
		Degraded:   degraded,
	}

	s.logger.Debug("retrieve_complete",
		slog.Int("results", len(results)),
		slog.Float64("confidence", outcome.Confidence),
		slog.Bool("degraded", outcome.Degraded),
		slog.Duration("elapsed", time.Since(start)))
	return outcome, nil
}

// parallelSearch runs the semantic and lexical branches concurrently,
// each under its own timeout. Fusion is the synchronization point: both
// branches (or their timeouts) complete before it runs. Branch errors
// are captured, not propagated through the group, so one failing branch
// never cancels the other.
func (s *Service) parallelSearch(ctx context.Context, query string, filters store.Filters, fetch int) (
	semResults []*store.VectorResult,
	lexResults []*store.LexicalResult,
	semErr, lexErr error,
) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		branchCtx, cancel := context.WithTimeout(gctx, s.config.BranchTimeout)
		defer cancel()

		embedding, err := s.embedder.Embed(branchCtx, query, embed.PurposeQuery)
		if err != nil {
			semErr = err
			return nil
		}
		semResults, err = s.vector.Search(branchCtx, embedding, fetch, filters)
		if err != nil {
			semErr = err
		}
		return nil
	})

	g.Go(func() error {
		branchCtx, cancel := context.WithTimeout(gctx, s.config.BranchTimeout)
		defer cancel()

		var err error
		lexResults, err = s.lexical.Search(branchCtx, query, fetch, filters)
		if err != nil {
			lexErr = err
		}
		return nil
	})

	// Branch errors are captured above, so the group never carries one.
	// Cancellation surfaces through semErr/lexErr as well.
	_ = g.Wait()
	return semResults, lexResults, semErr, lexErr
}

// enrich loads documents for the fused candidates, preserving fused order.
func (s *Service) enrich(ctx context.Context, fused []*FusedResult) ([]*Result, error) {
	if len(fused) == 0 {
		return []*Result{}, nil
	}

	ids := make([]string, len(fused))
	byID := make(map[string]*FusedResult, len(fused))
	for i, f := range fused {
		ids[i] = f.ID
		byID[f.ID] = f
	}

	docs, err := s.docs.GetBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, 0, len(docs))
	for _, doc := range docs {
		f := byID[doc.ID]
		results = append(results, &Result{
			Document:   doc,
			FusedScore: f.FusedScore,
			SemRank:    f.SemRank,
			LexRank:    f.LexRank,
		})
	}
	return results, nil
}

// confidence estimates certainty from the fused ranking: monotonic in
// the top fused score and in the rank-1/rank-2 gap, scaled into [0,1].
// Degraded outcomes are capped below the ceiling.
func (s *Service) confidence(fused []*FusedResult, topK int, degraded bool) float64 {
	if len(fused) == 0 {
		return 0
	}

	max := s.fusion.MaxScore()
	top := fused[0].FusedScore / max
	if top > 1 {
		top = 1
	}

	gap := 0.0
	if len(fused) > 1 {
		gap = (fused[0].FusedScore - fused[1].FusedScore) / max
	} else {
		// A single result has no competitor; treat the gap as maximal.
		gap = top
	}

	fill := float64(len(fused)) / float64(topK)
	if fill > 1 {
		fill = 1
	}

	conf := confTopWeight*top + confGapWeight*gap + confFillWeight*fill
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	if degraded && conf > degradedConfidenceCeiling {
		conf = degradedConfidenceCeiling
	}
	return conf
}
