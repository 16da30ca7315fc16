package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/selfplay-rl/internal/checkpoint"
	"github.com/mitchelldurbincs/selfplay-rl/internal/config"
)

// openStore returns a nil store for the "none" backend. The returned close
// func is always safe to call.
func openStore(ctx context.Context, cfg config.CheckpointConfig, logger zerolog.Logger) (checkpoint.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "file":
		store, err := checkpoint.NewFileStore(cfg.Dir, logger)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	case "redis":
		store, err := checkpoint.NewRedisStore(checkpoint.RedisConfig{Addr: cfg.RedisAddr, Prefix: cfg.RedisPrefix}, logger)
		if err != nil {
			return nil, noop, err
		}
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, noop, fmt.Errorf("redis checkpoint store at %s: %w", cfg.RedisAddr, err)
		}
		return store, store.Close, nil
	}
	return nil, noop, nil
}

func requireStore(ctx context.Context, cfg config.CheckpointConfig, logger zerolog.Logger) (checkpoint.Store, func() error, error) {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, closeStore, err
	}
	if store == nil {
		return nil, closeStore, fmt.Errorf("checkpoint.backend is %q; set it to file or redis", cfg.Backend)
	}
	return store, closeStore, nil
}
