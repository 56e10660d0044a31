package postgres

import (
	"context"
	"fmt"

	"lendledger/internal/domain"
)

type eventRepository struct {
	q DBTX
}

func (r *eventRepository) Record(ctx context.Context, event *domain.Event) error {
	query := `INSERT INTO ledger_events (id, type, account, counterparty, loan_id, amount, net, fee, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	          RETURNING created_on`
	err := r.q.QueryRowContext(ctx, query,
		event.ID, event.Type, event.Account, nullableString(event.Counterparty),
		event.LoanID, event.Amount, event.Net, event.Fee).
		Scan(&event.CreatedOn)
	if err != nil {
		return fmt.Errorf("record ledger event: %w", err)
	}
	return nil
}

func (r *eventRepository) List(ctx context.Context, limit int32) ([]domain.Event, error) {
	query := `SELECT id, type, account, COALESCE(counterparty, ''), loan_id, amount, net, fee, created_on
	          FROM ledger_events ORDER BY created_on DESC, id LIMIT $1`
	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var ev domain.Event
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.Account, &ev.Counterparty,
			&ev.LoanID, &ev.Amount, &ev.Net, &ev.Fee, &ev.CreatedOn); err != nil {
			return nil, fmt.Errorf("scan ledger event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
