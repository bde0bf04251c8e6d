// Package seed loads the corpus file, embeds it, and populates the
// vector, lexical, and metadata stores. Re-seeding replaces everything;
// there are no incremental updates.
package seed

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/wayfarer/internal/errors"
	"github.com/Aman-CERP/wayfarer/internal/store"
)

// corpusFile is the YAML shape of a corpus file.
type corpusFile struct {
	Documents []corpusDocument `yaml:"documents"`
}

// corpusDocument is one YAML corpus entry.
type corpusDocument struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Body        string   `yaml:"body"`
	Category    string   `yaml:"category"`
	Country     string   `yaml:"country"`
	Source      string   `yaml:"source"`
	Reliability float64  `yaml:"reliability"`
	LastUpdated string   `yaml:"last_updated"`
	Tags        []string `yaml:"tags"`
}

// LoadCorpus reads and validates a YAML corpus file.
func LoadCorpus(path string) ([]*store.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.ErrCodeConfigNotFound,
			fmt.Sprintf("failed to read corpus file %s", path), err)
	}

	var file corpusFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("failed to parse corpus file %s", path), err)
	}
	if len(file.Documents) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("corpus file %s contains no documents", path), nil)
	}

	docs := make([]*store.Document, 0, len(file.Documents))
	seen := make(map[string]bool, len(file.Documents))
	for i, cd := range file.Documents {
		doc, err := cd.toDocument()
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				fmt.Sprintf("corpus document %d invalid", i), err)
		}
		if seen[doc.ID] {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				fmt.Sprintf("duplicate document id %q", doc.ID), nil)
		}
		seen[doc.ID] = true
		docs = append(docs, doc)
	}
	return docs, nil
}

func (cd corpusDocument) toDocument() (*store.Document, error) {
	if strings.TrimSpace(cd.ID) == "" {
		return nil, fmt.Errorf("missing id")
	}
	if strings.TrimSpace(cd.Title) == "" {
		return nil, fmt.Errorf("document %q missing title", cd.ID)
	}
	if strings.TrimSpace(cd.Body) == "" {
		return nil, fmt.Errorf("document %q missing body", cd.ID)
	}

	category := store.Category(strings.ToLower(cd.Category))
	if !store.ValidCategory(category) {
		return nil, fmt.Errorf("document %q has unknown category %q", cd.ID, cd.Category)
	}

	if cd.Reliability < 0 || cd.Reliability > 1 {
		return nil, fmt.Errorf("document %q reliability must be in [0,1], got %g", cd.ID, cd.Reliability)
	}

	var lastUpdated time.Time
	if cd.LastUpdated != "" {
		var err error
		lastUpdated, err = parseDate(cd.LastUpdated)
		if err != nil {
			return nil, fmt.Errorf("document %q has invalid last_updated: %w", cd.ID, err)
		}
	}

	return &store.Document{
		ID:          cd.ID,
		Title:       cd.Title,
		Body:        cd.Body,
		Category:    category,
		Country:     cd.Country,
		Source:      cd.Source,
		Reliability: cd.Reliability,
		LastUpdated: lastUpdated,
		Tags:        cd.Tags,
	}, nil
}

// parseDate accepts date-only and RFC 3339 timestamps.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
