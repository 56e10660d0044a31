package service

import (
	"context"

	"lendledger/internal/logger"
)

// compensator collects undo actions for collaborator calls made inside
// a ledger operation. When the operation fails after some collaborator
// calls have already succeeded, Rollback reverses them newest-first so
// the collaborators end up exactly where they started. Store mutations
// are not registered here; the store transaction rolls those back.
type compensator struct {
	undos []func(context.Context) error
}

func (c *compensator) add(undo func(context.Context) error) {
	c.undos = append(c.undos, undo)
}

func (c *compensator) rollback(ctx context.Context) {
	for i := len(c.undos) - 1; i >= 0; i-- {
		if err := c.undos[i](ctx); err != nil {
			// A failed compensation leaves a collaborator out of sync
			// with the ledger; surface it loudly for operator action.
			logger.Error("Compensating action failed", "step", i, "error", err)
		}
	}
	c.undos = nil
}
