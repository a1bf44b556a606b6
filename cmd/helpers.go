package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/esg-extract/internal/dataset"
	"github.com/sells-group/esg-extract/internal/embed"
	"github.com/sells-group/esg-extract/internal/registry"
)

func initStore(ctx context.Context) (dataset.Store, error) {
	st, err := dataset.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initEmbedder returns nil when no provider is configured; the engine
// then runs without the semantic strategy.
func initEmbedder() embed.Embedder {
	switch cfg.Embedding.Provider {
	case "ollama":
		return embed.NewOllama(cfg.Embedding)
	default:
		zap.L().Info("embedding provider not configured, semantic matching disabled")
		return nil
	}
}

// loadRegistry loads the KPI definitions and precomputes their canonical
// embeddings. A load failure is fatal to the run.
func loadRegistry(ctx context.Context, embedder embed.Embedder) (*registry.Registry, error) {
	reg, err := registry.Load(cfg.Registry)
	if err != nil {
		return nil, eris.Wrap(err, "load KPI registry")
	}
	if embedder != nil {
		if err := reg.Precompute(ctx, embedder); err != nil {
			return nil, eris.Wrap(err, "precompute registry embeddings")
		}
	}
	zap.L().Info("registry loaded", zap.Int("definitions", reg.Len()))
	return reg, nil
}
