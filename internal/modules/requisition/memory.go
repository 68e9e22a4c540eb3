package requisition

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// memoryRepo is an in-memory Repository used by tests and local runs.
type memoryRepo struct {
	mu   sync.RWMutex
	reqs map[uuid.UUID]*Requisition
	// history holds each requisition's audit trail, newest first.
	history map[uuid.UUID][]*HistoryEntry
	// receipts holds each requisition's delivery log, oldest first.
	receipts map[uuid.UUID][]*ReceiptRecord
}

// NewMemoryRepository creates an empty in-memory requisition repository.
func NewMemoryRepository() Repository {
	return &memoryRepo{
		reqs:     make(map[uuid.UUID]*Requisition),
		history:  make(map[uuid.UUID][]*HistoryEntry),
		receipts: make(map[uuid.UUID][]*ReceiptRecord),
	}
}

func (m *memoryRepo) Create(ctx context.Context, r *Requisition, entry *HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.reqs[r.ID]; exists {
		return fmt.Errorf("requisition %s already exists", r.ID)
	}
	m.reqs[r.ID] = cloneRequisition(r)
	e := *entry
	m.history[r.ID] = []*HistoryEntry{&e}
	return nil
}

func (m *memoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*Requisition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.reqs[id]
	if !ok {
		return nil, fmt.Errorf("requisition %s: %w", id, ErrNotFound)
	}
	r := cloneRequisition(stored)
	for _, e := range m.history[id] {
		entry := *e
		r.StatusHistory = append(r.StatusHistory, &entry)
	}
	for _, rec := range m.receipts[id] {
		receipt := *rec
		r.PartialReceipts = append(r.PartialReceipts, &receipt)
	}
	return r, nil
}

func (m *memoryRepo) List(ctx context.Context) ([]*Requisition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Requisition, 0, len(m.reqs))
	for _, r := range m.reqs {
		out = append(out, cloneRequisition(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryRepo) Update(ctx context.Context, r *Requisition, entry *HistoryEntry, receipt *ReceiptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reqs[r.ID]; !ok {
		return fmt.Errorf("requisition %s: %w", r.ID, ErrNotFound)
	}
	m.reqs[r.ID] = cloneRequisition(r)
	e := *entry
	m.history[r.ID] = append([]*HistoryEntry{&e}, m.history[r.ID]...)
	if receipt != nil {
		rec := *receipt
		m.receipts[r.ID] = append(m.receipts[r.ID], &rec)
	}
	return nil
}

// cloneRequisition copies the scalar fields only; history and receipts live
// in their own append-only logs.
func cloneRequisition(r *Requisition) *Requisition {
	clone := *r
	clone.StatusHistory = nil
	clone.PartialReceipts = nil
	return &clone
}
