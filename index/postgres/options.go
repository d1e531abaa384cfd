package postgres

import (
	"context"
	"database/sql"

	"github.com/w-h-a/calls/index"
)

type dbKey struct{}

// WithDB supplies an open connection instead of dialing Location.
func WithDB(db *sql.DB) index.Option {
	return func(o *index.Options) {
		o.Context = context.WithValue(o.Context, dbKey{}, db)
	}
}

func DBFrom(ctx context.Context) (*sql.DB, bool) {
	db, ok := ctx.Value(dbKey{}).(*sql.DB)
	return db, ok && db != nil
}
