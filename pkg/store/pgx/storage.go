package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/orgloom/livemap/backend/pkg/store"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GraphDBStore implements the store interfaces on PostgreSQL. Entity tables
// are owned by the surrounding platform and only ever read here; strength
// rows and pattern records are the two write paths the graph core owns.
type GraphDBStore struct {
	conn pgxIConn
}

var _ store.Store = (*GraphDBStore)(nil)

// NewGraphDBStore creates a store on an existing connection or pool.
func NewGraphDBStore(conn pgxIConn) (*GraphDBStore, error) {
	return &GraphDBStore{conn: conn}, nil
}
