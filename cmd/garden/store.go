package main

import (
	"context"
	"fmt"

	"garden/internal/config"
	"garden/internal/db"
	"garden/internal/store"
)

// openStore opens and migrates the configured backend.
func openStore(ctx context.Context, c config.StoreConfig) (store.Store, error) {
	switch c.Driver {
	case config.StoreMemory:
		return store.NewMemory(), nil
	case config.StoreSQLite:
		conn, err := db.Open(c.Path)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(conn); err != nil {
			conn.Close()
			return nil, err
		}
		return store.NewSQLite(conn), nil
	case config.StorePostgres:
		pool, err := db.OpenPostgres(ctx, c.URL)
		if err != nil {
			return nil, err
		}
		if err := db.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return store.NewPostgres(pool), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", c.Driver)
	}
}
