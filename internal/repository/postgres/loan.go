package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"lendledger/internal/domain"
)

type loanRepository struct {
	q DBTX
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `INSERT INTO loans (lender_id, borrower_id, principal, amount_due, coverage, active, created_on)
	          VALUES ($1, $2, $3, $4, $5, true, NOW())
	          RETURNING id, created_on`
	err := r.q.QueryRowContext(ctx, query,
		loan.Lender, loan.Borrower, loan.Principal, loan.AmountDue, loan.Coverage).
		Scan(&loan.ID, &loan.CreatedOn)
	if err != nil {
		return fmt.Errorf("create loan: %w", err)
	}
	loan.Active = true
	return nil
}

func (r *loanRepository) GetByID(ctx context.Context, id int64) (*domain.Loan, error) {
	loan := &domain.Loan{}
	query := `SELECT id, lender_id, borrower_id, principal, amount_due, coverage, active, created_on, closed_on
	          FROM loans WHERE id = $1`
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&loan.ID, &loan.Lender, &loan.Borrower, &loan.Principal,
		&loan.AmountDue, &loan.Coverage, &loan.Active, &loan.CreatedOn, &loan.ClosedOn)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get loan %d: %w", id, err)
	}
	return loan, nil
}

func (r *loanRepository) Close(ctx context.Context, id int64) error {
	query := `UPDATE loans SET active = false, closed_on = NOW() WHERE id = $1 AND active = true`
	res, err := r.q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("close loan %d: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close loan %d: %w", id, err)
	}
	if rows == 0 {
		return domain.ErrLoanNotActive
	}
	return nil
}

func (r *loanRepository) List(ctx context.Context, activeOnly bool) ([]domain.Loan, error) {
	query := `SELECT id, lender_id, borrower_id, principal, amount_due, coverage, active, created_on, closed_on
	          FROM loans`
	if activeOnly {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	var out []domain.Loan
	for rows.Next() {
		var loan domain.Loan
		if err := rows.Scan(&loan.ID, &loan.Lender, &loan.Borrower, &loan.Principal,
			&loan.AmountDue, &loan.Coverage, &loan.Active, &loan.CreatedOn, &loan.ClosedOn); err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		out = append(out, loan)
	}
	return out, rows.Err()
}

func (r *loanRepository) NextID(ctx context.Context) (int64, error) {
	// Loans are never deleted, so MAX(id)+1 is exactly the id the next
	// origination will receive.
	var next int64
	query := `SELECT COALESCE(MAX(id), 0) + 1 FROM loans`
	if err := r.q.QueryRowContext(ctx, query).Scan(&next); err != nil {
		return 0, fmt.Errorf("next loan id: %w", err)
	}
	return next, nil
}

func (r *loanRepository) ActiveCoverageTotal(ctx context.Context) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(coverage), 0) FROM loans WHERE active = true`
	if err := r.q.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("active coverage total: %w", err)
	}
	return total, nil
}
