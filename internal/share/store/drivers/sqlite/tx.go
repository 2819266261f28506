package sqlite

import (
	"context"
	"database/sql"

	"github.com/vizboard/vizboard/internal/share/store"
)

type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // caller commits/rollbacks; outer DB stays open

// Ping is a no-op for transactions; the connection already exists.
func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) ApplyMigrations() error { return nil } // migrations run before any tx starts

func (t *txStore) Users() store.Users                 { return &usersRepo{q: t.tx} }
func (t *txStore) Organizations() store.Organizations { return &organizationsRepo{q: t.tx} }
func (t *txStore) Memberships() store.Memberships     { return &membershipsRepo{q: t.tx} }
func (t *txStore) Projects() store.Projects           { return &projectsRepo{q: t.tx} }
func (t *txStore) Views() store.Views                 { return &viewsRepo{q: t.tx} }
func (t *txStore) Widgets() store.Widgets             { return &widgetsRepo{q: t.tx} }
func (t *txStore) Displays() store.Displays           { return &displaysRepo{q: t.tx} }
func (t *txStore) Dashboards() store.Dashboards       { return &dashboardsRepo{q: t.tx} }
