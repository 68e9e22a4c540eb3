package inventory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// memoryRepo is an in-memory Repository used by tests and local runs.
type memoryRepo struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*StockItem
	// txns holds each item's movement log, newest first.
	txns  map[uuid.UUID][]*Transaction
	byRef map[string]*Transaction
}

// NewMemoryRepository creates an empty in-memory inventory repository.
func NewMemoryRepository() Repository {
	return &memoryRepo{
		items: make(map[uuid.UUID]*StockItem),
		txns:  make(map[uuid.UUID][]*Transaction),
		byRef: make(map[string]*Transaction),
	}
}

func (r *memoryRepo) CreateItem(ctx context.Context, item *StockItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[item.ID]; exists {
		return fmt.Errorf("item %s already exists", item.ID)
	}
	clone := *item
	clone.Transactions = nil
	r.items[item.ID] = &clone
	return nil
}

func (r *memoryRepo) GetItemByID(ctx context.Context, id uuid.UUID) (*StockItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return r.cloneWithTxns(item), nil
}

func (r *memoryRepo) ListItems(ctx context.Context) ([]*StockItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]*StockItem, 0, len(r.items))
	for _, item := range r.items {
		clone := *item
		items = append(items, &clone)
	}
	return items, nil
}

func (r *memoryRepo) SearchItemsByName(ctx context.Context, query string) ([]*StockItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}
	var matches []*StockItem
	for _, item := range r.items {
		name := strings.ToLower(item.Name)
		if strings.Contains(name, q) || strings.Contains(q, name) {
			clone := *item
			matches = append(matches, &clone)
		}
	}
	return matches, nil
}

func (r *memoryRepo) AppendTransaction(ctx context.Context, item *StockItem, txn *Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[item.ID]
	if !ok {
		return fmt.Errorf("item %s: %w", item.ID, ErrNotFound)
	}
	stored.CurrentStock = item.CurrentStock
	stored.LastUpdated = item.LastUpdated
	stored.UpdatedAt = item.UpdatedAt
	clone := *txn
	r.txns[item.ID] = append([]*Transaction{&clone}, r.txns[item.ID]...)
	if clone.Reference != "" {
		r.byRef[clone.Reference] = &clone
	}
	return nil
}

func (r *memoryRepo) ListTransactions(ctx context.Context, itemID uuid.UUID) ([]*Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	log := r.txns[itemID]
	out := make([]*Transaction, 0, len(log))
	for _, txn := range log {
		clone := *txn
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memoryRepo) GetTransactionByReference(ctx context.Context, reference string) (*Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	txn, ok := r.byRef[reference]
	if !ok {
		return nil, fmt.Errorf("reference %q: %w", reference, ErrNotFound)
	}
	clone := *txn
	return &clone, nil
}

func (r *memoryRepo) cloneWithTxns(item *StockItem) *StockItem {
	clone := *item
	log := r.txns[item.ID]
	clone.Transactions = make([]*Transaction, 0, len(log))
	for _, txn := range log {
		t := *txn
		clone.Transactions = append(clone.Transactions, &t)
	}
	return &clone
}
