package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"lendledger/internal/repository"

	_ "github.com/lib/pq"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx, so the same
// repository code serves both a live connection and a transaction scope.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Store struct {
	db *sql.DB
	q  DBTX
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) Lenders() repository.LenderRepository     { return &lenderRepository{q: s.q} }
func (s *Store) Borrowers() repository.BorrowerRepository { return &borrowerRepository{q: s.q} }
func (s *Store) Loans() repository.LoanRepository         { return &loanRepository{q: s.q} }
func (s *Store) Events() repository.EventRepository       { return &eventRepository{q: s.q} }

// WithinTransaction runs fn against a transaction-scoped Store. When
// called on a Store that is already transaction-scoped it joins the
// enclosing transaction instead of opening a new one.
func (s *Store) WithinTransaction(ctx context.Context, fn func(repository.Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
