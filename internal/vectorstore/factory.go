package vectorstore

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/config"
)

// NewStore creates a Store based on the configuration.
//
// Providers:
//   - "chromem" (default): embedded store, no external services
//   - "qdrant": external Qdrant server, for multi-instance deployments
//
// Both default to PayloadIsolation: every operation requires workspace
// scope in the context or fails with tenant.ErrMissingTenant.
func NewStore(cfg *config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.VectorStore.Provider {
	case "chromem", "":
		return NewChromemStore(ChromemConfig{
			Path:              cfg.VectorStore.Chromem.Path,
			Compress:          cfg.VectorStore.Chromem.Compress,
			DefaultCollection: cfg.VectorStore.Chromem.DefaultCollection,
			VectorSize:        cfg.VectorStore.Chromem.VectorSize,
		}, logger)

	case "qdrant":
		return NewQdrantStore(QdrantConfig{
			Host:           cfg.Qdrant.Host,
			Port:           cfg.Qdrant.Port,
			CollectionName: cfg.Qdrant.CollectionName,
			VectorSize:     uint64(cfg.Qdrant.VectorSize),
			UseTLS:         cfg.Qdrant.UseTLS,
		})

	default:
		return nil, fmt.Errorf("unsupported vectorstore provider: %s (supported: chromem, qdrant)", cfg.VectorStore.Provider)
	}
}
