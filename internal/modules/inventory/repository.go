package inventory

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines data access for stock items and their transactions.
type Repository interface {
	// CreateItem persists a new stock item.
	CreateItem(ctx context.Context, item *StockItem) error

	// GetItemByID retrieves an item with its transaction log, newest first.
	GetItemByID(ctx context.Context, id uuid.UUID) (*StockItem, error)

	// ListItems returns all items without their transaction logs.
	ListItems(ctx context.Context) ([]*StockItem, error)

	// SearchItemsByName returns every item whose name matches the query
	// case-insensitively, substring in either direction.
	SearchItemsByName(ctx context.Context, query string) ([]*StockItem, error)

	// AppendTransaction persists the transaction and the item's updated
	// balance atomically.
	AppendTransaction(ctx context.Context, item *StockItem, txn *Transaction) error

	// ListTransactions returns an item's movement log, newest first.
	ListTransactions(ctx context.Context, itemID uuid.UUID) ([]*Transaction, error)

	// GetTransactionByReference finds the movement recorded for a receipt
	// reference, or ErrNotFound.
	GetTransactionByReference(ctx context.Context, reference string) (*Transaction, error)
}
