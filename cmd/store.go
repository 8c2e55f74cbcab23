package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/city-pulse/internal/store"
)

// defaultSQLitePath is used when the sqlite driver has no database_url.
const defaultSQLitePath = "city.db"

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		return store.NewSQLite(dsn)
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store.database_url is required for postgres (CITYPULSE_STORE_DATABASE_URL)")
		}
		policy := store.DefaultRetryPolicy()
		if cfg.Store.ConnectAttempts > 0 {
			policy.MaxAttempts = cfg.Store.ConnectAttempts
		}
		return store.ConnectPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool, policy)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openMigrated opens the configured store and applies pending migrations.
func openMigrated(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
