package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/wayfarer/internal/errors"
	"github.com/Aman-CERP/wayfarer/internal/store"
)

const validCorpus = `documents:
  - id: visa-jp-01
    title: Japan tourist visa requirements
    body: Tourists need a visa. Passport must be valid six months.
    category: visa
    country: Japan
    source: Embassy of Japan
    reliability: 0.95
    last_updated: "2024-11-01"
    tags: [tourist_visa, requirements]
  - id: law-ae-01
    title: UAE public conduct laws
    body: Public displays of affection can lead to fines.
    category: law
    country: UAE
    reliability: 0.9
`

func writeCorpus(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCorpus(t *testing.T) {
	docs, err := LoadCorpus(writeCorpus(t, validCorpus))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	jp := docs[0]
	assert.Equal(t, "visa-jp-01", jp.ID)
	assert.Equal(t, store.CategoryVisa, jp.Category)
	assert.Equal(t, "Japan", jp.Country)
	assert.Equal(t, 0.95, jp.Reliability)
	assert.Equal(t, 2024, jp.LastUpdated.Year())
	assert.Equal(t, []string{"tourist_visa", "requirements"}, jp.Tags)

	// last_updated is optional.
	assert.True(t, docs[1].LastUpdated.IsZero())
}

func TestLoadCorpusMissingFile(t *testing.T) {
	_, err := LoadCorpus(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigNotFound, errors.CodeOf(err))
}

func TestLoadCorpusInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "documents: [\n"},
		{"no documents", "documents: []\n"},
		{"missing id", "documents:\n  - title: t\n    body: b\n    category: visa\n"},
		{"missing title", "documents:\n  - id: d1\n    body: b\n    category: visa\n"},
		{"missing body", "documents:\n  - id: d1\n    title: t\n    category: visa\n"},
		{"bad category", "documents:\n  - id: d1\n    title: t\n    body: b\n    category: weather\n"},
		{"bad reliability", "documents:\n  - id: d1\n    title: t\n    body: b\n    category: visa\n    reliability: 1.5\n"},
		{"bad date", "documents:\n  - id: d1\n    title: t\n    body: b\n    category: visa\n    last_updated: \"soon\"\n"},
		{"duplicate id", "documents:\n  - id: d1\n    title: t\n    body: b\n    category: visa\n  - id: d1\n    title: t2\n    body: b2\n    category: law\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCorpus(writeCorpus(t, tt.content))
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))
		})
	}
}

func TestLoadCorpusShippedDataset(t *testing.T) {
	docs, err := LoadCorpus(filepath.Join("..", "..", "data", "corpus.yaml"))
	require.NoError(t, err)
	require.Len(t, docs, 15)

	countries := make(map[string]bool)
	categories := make(map[store.Category]bool)
	for _, d := range docs {
		assert.True(t, store.ValidCategory(d.Category), "document %s", d.ID)
		assert.NotEmpty(t, d.Country, "document %s", d.ID)
		assert.NotEmpty(t, d.Source, "document %s", d.ID)
		assert.Greater(t, d.Reliability, 0.9, "document %s", d.ID)
		assert.False(t, d.LastUpdated.IsZero(), "document %s", d.ID)
		countries[d.Country] = true
		categories[d.Category] = true
	}

	// Every category is represented, across both travel directions.
	assert.Len(t, categories, 4)
	assert.True(t, countries["Japan"])
	assert.True(t, countries["India"])
	assert.True(t, countries["UAE"])
}

func TestLoadCorpusCategoryCaseInsensitive(t *testing.T) {
	docs, err := LoadCorpus(writeCorpus(t,
		"documents:\n  - id: d1\n    title: t\n    body: b\n    category: Visa\n"))
	require.NoError(t, err)
	assert.Equal(t, store.CategoryVisa, docs[0].Category)
}
