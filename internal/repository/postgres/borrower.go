package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"lendledger/internal/domain"
)

type borrowerRepository struct {
	q DBTX
}

func (r *borrowerRepository) GetLimit(ctx context.Context, borrower string) (int64, error) {
	var limit int64
	query := `SELECT credit_limit FROM borrower_limits WHERE borrower_id = $1`
	err := r.q.QueryRowContext(ctx, query, borrower).Scan(&limit)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get borrower limit: %w", err)
	}
	return limit, nil
}

func (r *borrowerRepository) SetLimit(ctx context.Context, borrower string, limit int64) error {
	query := `INSERT INTO borrower_limits (borrower_id, credit_limit, updated_on)
	          VALUES ($1, $2, NOW())
	          ON CONFLICT (borrower_id)
	          DO UPDATE SET credit_limit = EXCLUDED.credit_limit, updated_on = NOW()`
	if _, err := r.q.ExecContext(ctx, query, borrower, limit); err != nil {
		return fmt.Errorf("set borrower limit: %w", err)
	}
	return nil
}

func (r *borrowerRepository) List(ctx context.Context) ([]domain.BorrowerLimit, error) {
	query := `SELECT borrower_id, credit_limit, updated_on FROM borrower_limits ORDER BY borrower_id`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list borrower limits: %w", err)
	}
	defer rows.Close()

	var out []domain.BorrowerLimit
	for rows.Next() {
		var bl domain.BorrowerLimit
		if err := rows.Scan(&bl.Borrower, &bl.Limit, &bl.UpdatedOn); err != nil {
			return nil, fmt.Errorf("scan borrower limit: %w", err)
		}
		out = append(out, bl)
	}
	return out, rows.Err()
}
