package cache

import (
	"context"
	"fmt"

	"github.com/crediscan/crediscan/internal/config"
)

// Open constructs the store selected by the configuration. The backend is
// dependency-injected everywhere else; this is the single place that knows
// about backend selection.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.CacheBackend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendFile:
		return NewFileStore(cfg.CacheDir)
	case config.BackendRedis:
		return NewRedisStore(ctx, cfg.RedisAddr, "", 0)
	case config.BackendPostgres:
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
