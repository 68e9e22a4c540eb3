package requisition

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines data access for requisitions.
type Repository interface {
	// Create persists a new requisition with its seed history entry
	// atomically.
	Create(ctx context.Context, r *Requisition, entry *HistoryEntry) error

	// GetByID retrieves a requisition with its history (newest first) and
	// receipts (oldest first).
	GetByID(ctx context.Context, id uuid.UUID) (*Requisition, error)

	// List returns all requisitions without history or receipts, newest
	// first.
	List(ctx context.Context) ([]*Requisition, error)

	// Update persists the requisition's mutated fields and appends the
	// history entry, plus the receipt when one was recorded, in one
	// transaction.
	Update(ctx context.Context, r *Requisition, entry *HistoryEntry, receipt *ReceiptRecord) error
}
