package main

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/hupe1980/answermesh/config"
	"github.com/hupe1980/answermesh/core"
	"github.com/hupe1980/answermesh/results"
)

const (
	defaultSQLiteDSN = "answers.db"
	defaultRedisURL  = "redis://localhost:6379/0"
)

// openStore opens the configured result store. The returned close function
// is never nil.
func openStore(ctx context.Context, s *config.Settings, fs afero.Fs) (core.ResultStore, func() error, error) {
	noop := func() error { return nil }

	dsn := s.ResultStoreDSN

	switch s.ResultStore {
	case config.StoreFile:
		return results.NewFileStore(fs, dsn), noop, nil
	case config.StoreMemory:
		return results.NewInMemoryStore(), noop, nil
	case config.StoreSQLite:
		if dsn == "" || dsn == "." {
			dsn = defaultSQLiteDSN
		}
		store, err := results.OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	case config.StoreRedis:
		if dsn == "" || dsn == "." {
			dsn = defaultRedisURL
		}
		store, err := results.OpenRedis(ctx, dsn)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	default:
		return nil, noop, fmt.Errorf("%w: RESULT_STORE %q is not supported", config.ErrInvalidSettings, s.ResultStore)
	}
}
