package cmd

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/Aman-CERP/wayfarer/internal/agent"
	"github.com/Aman-CERP/wayfarer/internal/answer"
	"github.com/Aman-CERP/wayfarer/internal/config"
	"github.com/Aman-CERP/wayfarer/internal/embed"
	"github.com/Aman-CERP/wayfarer/internal/logging"
	"github.com/Aman-CERP/wayfarer/internal/search"
	"github.com/Aman-CERP/wayfarer/internal/seed"
	"github.com/Aman-CERP/wayfarer/internal/store"
)

// metadataDBName is the SQLite file inside the data directory.
const metadataDBName = "wayfarer.db"

// app wires the full pipeline for a command invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	embedder embed.Embedder
	vector   *store.HNSWIndex
	lexical  *store.LexicalIndex
	docs     *store.SQLiteStore

	retriever *search.Service
	generator answer.Generator
	router    *agent.Router
	seeder    *seed.Seeder

	cleanups []func()
}

// newApp loads config, sets up logging, and builds every component.
// withLLM skips chat-model construction for commands that never
// generate (seed).
func newApp(ctx context.Context, configPath string, withLLM bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	logger, logCleanup, err := logging.Setup(logging.Config{
		Level:         cfg.Logging.Level,
		FilePath:      cfg.Logging.FilePath,
		WriteToStderr: true,
	})
	if err != nil {
		return nil, err
	}
	a.logger = logger
	a.cleanups = append(a.cleanups, logCleanup)

	a.embedder, err = embed.New(ctx, cfg.Embeddings)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.cleanups = append(a.cleanups, func() { a.embedder.Close() })

	a.vector, err = store.NewHNSWIndex(store.VectorIndexConfig{
		Dimensions: a.embedder.Dimensions(),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.cleanups = append(a.cleanups, func() { a.vector.Close() })

	a.lexical = store.NewLexicalIndex()

	a.docs, err = store.NewSQLiteStore(filepath.Join(cfg.Corpus.DataDir, metadataDBName))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.cleanups = append(a.cleanups, func() { a.docs.Close() })

	a.seeder = seed.NewSeeder(a.embedder, a.vector, a.lexical, a.docs,
		cfg.Corpus.DataDir, logger)

	fusion, err := search.NewFusionRanker(cfg.Search.FusionAlpha, cfg.Search.RRFConstant)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.retriever = search.NewService(a.embedder, a.vector, a.lexical, a.docs,
		fusion, search.ServiceConfig{
			DefaultTopK:      cfg.Search.DefaultTopK,
			OversampleFactor: cfg.Search.OversampleFactor,
			BranchTimeout:    cfg.RetrievalTimeout(),
		}, logger)

	if withLLM {
		model, err := answer.NewModel(cfg.LLM)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.generator = answer.NewLLMGenerator(model, answer.Config{
			ContextBudget: cfg.Answer.ContextBudgetChars,
			Temperature:   cfg.LLM.Temperature,
		}, logger)
		a.router = agent.NewRouter(a.retriever, a.generator, logger)
	}

	return a, nil
}

// restore rebuilds the in-memory indexes from the metadata store.
func (a *app) restore(ctx context.Context) error {
	n, err := a.seeder.Restore(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		a.logger.Warn("no_documents_indexed",
			slog.String("hint", "run 'wayfarer seed --corpus <file>' first"))
	}
	return nil
}

// Close releases resources in reverse construction order.
func (a *app) Close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
}
