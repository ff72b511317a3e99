// Package mocks provides shared mock implementations for testing.
package mocks

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MockDB implements ports.DBPort without a database.
// Transactions run fn with a nil pgx.Tx, which in-memory repositories ignore.
type MockDB struct {
	// Err, when set, is returned instead of running fn
	Err error

	Transactions int
	ReadOnly     int
}

func (m *MockDB) GetDB() *pgxpool.Pool {
	return nil
}

func (m *MockDB) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if m.Err != nil {
		return m.Err
	}
	m.Transactions++
	return fn(ctx, nil)
}

func (m *MockDB) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if m.Err != nil {
		return m.Err
	}
	m.ReadOnly++
	return fn(ctx, nil)
}
