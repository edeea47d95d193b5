package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ytakahashi/zikr-companion/internal/config"
	"github.com/ytakahashi/zikr-companion/internal/tracker"
)

// compile-time checks that every backend implements tracker.Store
var (
	_ tracker.Store = (*FirestoreStore)(nil)
	_ tracker.Store = (*RedisStore)(nil)
	_ tracker.Store = (*FileStore)(nil)
	_ tracker.Store = (*MemoryStore)(nil)
)

// NewStore builds the tracker store selected by cfg.StoreBackend. The
// returned close function releases any client connection.
func NewStore(ctx context.Context, cfg *config.Config) (tracker.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StoreBackend {
	case config.BackendFirestore:
		fs, err := NewFirestoreStore(ctx, cfg.ProjectID, cfg.FirestoreCredentialsFile, cfg.FirestoreCollection)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("project", cfg.ProjectID).Str("collection", cfg.FirestoreCollection).Msg("using firestore store")
		return fs, fs.Close, nil
	case config.BackendRedis:
		rs, err := NewRedisStore(ctx, RedisConfig{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("addr", cfg.RedisAddress).Msg("using redis store")
		return rs, rs.Close, nil
	case config.BackendFile:
		fs, err := NewFileStore(cfg.DataDir, cfg.DataFormat)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("dir", cfg.DataDir).Str("format", cfg.DataFormat).Msg("using file store")
		return fs, noop, nil
	case config.BackendMemory:
		log.Warn().Msg("using in-memory store, state is lost on restart")
		return NewMemoryStore(), noop, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
