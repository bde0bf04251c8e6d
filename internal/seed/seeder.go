package seed

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/Aman-CERP/wayfarer/internal/embed"
	"github.com/Aman-CERP/wayfarer/internal/errors"
	"github.com/Aman-CERP/wayfarer/internal/store"
)

// lockFileName is the cross-process seed lock inside the data directory.
// Two concurrent seeds would race on the index files; the lock serializes
// them.
const lockFileName = ".seed.lock"

// lexicalIndexer is the write side of the lexical index. Rebuilds are
// in-memory and cannot fail.
type lexicalIndexer interface {
	ReplaceAll(docs []*store.Document)
}

// Seeder populates all three stores from a corpus.
type Seeder struct {
	embedder embed.Embedder
	vector   store.VectorIndex
	lexical  lexicalIndexer
	docs     store.DocumentStore
	dataDir  string
	logger   *slog.Logger
}

// NewSeeder creates a seeder over the given stores. dataDir hosts the
// lock file and index snapshots.
func NewSeeder(
	embedder embed.Embedder,
	vector store.VectorIndex,
	lexical lexicalIndexer,
	docs store.DocumentStore,
	dataDir string,
	logger *slog.Logger,
) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		embedder: embedder,
		vector:   vector,
		lexical:  lexical,
		docs:     docs,
		dataDir:  dataDir,
		logger:   logger,
	}
}

// SeedFile loads the corpus file and seeds all stores under the file lock.
func (s *Seeder) SeedFile(ctx context.Context, corpusPath string) error {
	docs, err := LoadCorpus(corpusPath)
	if err != nil {
		return err
	}
	return s.Seed(ctx, docs)
}

// Seed embeds every document body and replaces the contents of the
// vector index, lexical index, and document store. All-or-nothing: an
// embedding failure aborts before any store is touched.
func (s *Seeder) Seed(ctx context.Context, docs []*store.Document) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	start := time.Now()
	s.logger.Info("seed_start", slog.Int("documents", len(docs)))

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Title + "\n" + doc.Body
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts, embed.PurposeDocument)
	if err != nil {
		return errors.New(errors.ErrCodeEmbedding, "failed to embed corpus", err)
	}

	ids := make([]string, len(docs))
	metas := make([]store.DocMeta, len(docs))
	for i, doc := range docs {
		doc.Embedding = vectors[i]
		ids[i] = doc.ID
		metas[i] = store.DocMeta{Country: doc.Country, Category: doc.Category}
	}

	// Replace the persistent store first: it is the source of truth the
	// in-memory indexes are rebuilt from on startup.
	if err := s.docs.ReplaceAll(ctx, docs); err != nil {
		return err
	}
	if err := s.replaceVectors(ctx, ids, vectors, metas); err != nil {
		return err
	}
	s.lexical.ReplaceAll(docs)

	s.logger.Info("seed_complete",
		slog.Int("documents", len(docs)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// Restore rebuilds the in-memory indexes from the document store, using
// the embeddings persisted at seed time. No model calls.
func (s *Seeder) Restore(ctx context.Context) (int, error) {
	docs, err := s.docs.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(docs))
	vectors := make([][]float32, 0, len(docs))
	metas := make([]store.DocMeta, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			s.logger.Warn("document_missing_embedding", slog.String("id", doc.ID))
			continue
		}
		ids = append(ids, doc.ID)
		vectors = append(vectors, doc.Embedding)
		metas = append(metas, store.DocMeta{Country: doc.Country, Category: doc.Category})
	}

	if err := s.replaceVectors(ctx, ids, vectors, metas); err != nil {
		return 0, err
	}
	s.lexical.ReplaceAll(docs)

	s.logger.Info("restore_complete", slog.Int("documents", len(ids)))
	return len(ids), nil
}

// replaceVectors removes stale vectors before upserting the new set, so
// a shrinking corpus does not leave orphans behind.
func (s *Seeder) replaceVectors(ctx context.Context, ids []string, vectors [][]float32, metas []store.DocMeta) error {
	if err := s.vector.Clear(ctx); err != nil {
		return err
	}
	return s.vector.Upsert(ctx, ids, vectors, metas)
}

// lock acquires the cross-process seed lock.
func (s *Seeder) lock() (func(), error) {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return nil, errors.New(errors.ErrCodeInternal, "failed to create data directory", err)
	}

	fl := flock.New(filepath.Join(s.dataDir, lockFileName))
	if err := fl.Lock(); err != nil {
		return nil, errors.New(errors.ErrCodeInternal, "failed to acquire seed lock", err)
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			s.logger.Warn("seed_lock_release_failed", slog.String("error", err.Error()))
		}
	}, nil
}
