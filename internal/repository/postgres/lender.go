package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"lendledger/internal/domain"
)

type lenderRepository struct {
	q DBTX
}

func (r *lenderRepository) GetBalance(ctx context.Context, lender string) (int64, error) {
	var balance int64
	query := `SELECT balance FROM lender_balances WHERE lender_id = $1`
	err := r.q.QueryRowContext(ctx, query, lender).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get lender balance: %w", err)
	}
	return balance, nil
}

func (r *lenderRepository) AddBalance(ctx context.Context, lender string, delta int64) error {
	query := `INSERT INTO lender_balances (lender_id, balance, updated_on)
	          VALUES ($1, $2, NOW())
	          ON CONFLICT (lender_id)
	          DO UPDATE SET balance = lender_balances.balance + EXCLUDED.balance, updated_on = NOW()
	          RETURNING balance`
	var balance int64
	if err := r.q.QueryRowContext(ctx, query, lender, delta).Scan(&balance); err != nil {
		return fmt.Errorf("add lender balance: %w", err)
	}
	if balance < 0 {
		return fmt.Errorf("lender %q balance went negative (%d): %w", lender, balance, domain.ErrInternalInvariant)
	}
	return nil
}

func (r *lenderRepository) SelectCovering(ctx context.Context, minBalance int64) (string, int64, error) {
	// Highest balance wins, ties break on lowest lender id. FOR UPDATE
	// pins the row so the following debit cannot race another writer.
	query := `SELECT lender_id, balance FROM lender_balances
	          WHERE balance >= $1
	          ORDER BY balance DESC, lender_id ASC
	          LIMIT 1
	          FOR UPDATE`
	var lender string
	var balance int64
	err := r.q.QueryRowContext(ctx, query, minBalance).Scan(&lender, &balance)
	if err == sql.ErrNoRows {
		return "", 0, domain.ErrNoLenderAvailable
	}
	if err != nil {
		return "", 0, fmt.Errorf("select covering lender: %w", err)
	}
	return lender, balance, nil
}

func (r *lenderRepository) List(ctx context.Context) ([]domain.LenderBalance, error) {
	query := `SELECT lender_id, balance, updated_on FROM lender_balances ORDER BY lender_id`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list lender balances: %w", err)
	}
	defer rows.Close()

	var out []domain.LenderBalance
	for rows.Next() {
		var lb domain.LenderBalance
		if err := rows.Scan(&lb.Lender, &lb.Balance, &lb.UpdatedOn); err != nil {
			return nil, fmt.Errorf("scan lender balance: %w", err)
		}
		out = append(out, lb)
	}
	return out, rows.Err()
}

func (r *lenderRepository) TotalBalance(ctx context.Context) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(balance), 0) FROM lender_balances`
	if err := r.q.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("total lender balance: %w", err)
	}
	return total, nil
}
