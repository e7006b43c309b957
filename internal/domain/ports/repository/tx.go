package repository

import (
	"context"
)

// Tx is an opaque transaction handle. The concrete type is infra-defined
// (pgx.Tx for Postgres, an internal token for the file store). Repositories
// must gracefully accept a nil Tx and run non-transactionally.
type Tx interface{}

// TransactionManager executes fn inside one atomic unit of work. Repository
// calls made with the supplied tx observe and produce a consistent snapshot;
// if fn returns an error every mutation made through tx is rolled back.
//
// Unlike a raw database transaction this interface carries no isolation
// options: the file backend implements it with a process-wide writer lock,
// the Postgres backend with a read-committed pgx transaction.
type TransactionManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
