// Package app wires configuration into a ready Service.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hongminglow/record-archive/internal/auth"
	"github.com/hongminglow/record-archive/internal/config"
	"github.com/hongminglow/record-archive/internal/service"
	"github.com/hongminglow/record-archive/internal/storage"
	"github.com/hongminglow/record-archive/internal/storage/archive"
	postgres "github.com/hongminglow/record-archive/internal/storage/postgres"
)

// OpenStore opens the configured collection store. The returned func releases it.
func OpenStore(ctx context.Context, cfg config.Config, log *slog.Logger) (storage.CollectionStore, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		st, err := postgres.NewStore(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, fmt.Errorf("init database: %w", err)
		}
		return st, st.Close, nil
	default:
		st, err := archive.New(cfg.ArchiveDir, archive.WithLogger(log))
		if err != nil {
			return nil, nil, fmt.Errorf("init archive: %w", err)
		}
		return st, func() {}, nil
	}
}

// ServiceOptions selects token and password handling from cfg.
func ServiceOptions(cfg config.Config, log *slog.Logger) service.Options {
	opts := service.Options{Logger: log}
	if cfg.TokenSecret != "" {
		opts.Tokens = auth.NewTokenManager(cfg.TokenSecret, cfg.TokenIssuer)
	} else {
		opts.Tokens = auth.OpaqueTokens{}
	}
	if cfg.PasswordMode == config.PasswordsBcrypt {
		opts.Passwords = auth.BcryptPasswords{}
	} else {
		opts.Passwords = auth.PlainPasswords{}
	}
	return opts
}

// Open builds a Service over the configured store.
func Open(ctx context.Context, cfg config.Config, log *slog.Logger) (*service.Service, func(), error) {
	st, closeFn, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return service.New(st, ServiceOptions(cfg, log)), closeFn, nil
}
