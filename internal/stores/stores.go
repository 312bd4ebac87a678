// Package stores implements the persistence collaborators of the handlers:
// plain SQL repositories operating on a transaction or pool handle.
package stores

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the common surface of pgx.Tx and the connection pool the
// stores run their statements against. Handlers pass their transaction in
// so every store call shares the request's transactional context.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
