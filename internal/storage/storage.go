// Package storage holds the unit-of-work contract shared by the catalog and
// order stores. Every multi-entity write runs inside one Tx.
package storage

import "context"

// Tx interface para transações
type Tx interface {
	Commit() error
	Rollback() error
}

// Transactor starts transactions on a backend.
type Transactor interface {
	BeginTx(ctx context.Context) (Tx, error)
}
