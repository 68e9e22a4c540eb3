package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ForeFoldAi/ssrfm-materials-backend/internal/pkg/metrics"
)

// Service defines the inventory ledger business logic.
type Service interface {
	// CreateItem seeds a new stock item.
	CreateItem(ctx context.Context, req CreateItemRequest) (*StockItem, error)

	// Get retrieves an item with its transaction log.
	Get(ctx context.Context, id string) (*StockItem, error)

	// List returns all items.
	List(ctx context.Context) ([]*StockItem, error)

	// ByMaterialName returns the first item whose name matches the text,
	// case-insensitive substring in either direction. Search helper only;
	// reconciliation uses the stricter resolution of ResolveMaterial.
	ByMaterialName(ctx context.Context, text string) (*StockItem, error)

	// Transactions returns an item's movement log, newest first.
	Transactions(ctx context.Context, id string) ([]*Transaction, error)

	// Credit records a stock_in movement and returns the updated item.
	Credit(ctx context.Context, id string, req MovementRequest) (*StockItem, error)

	// Debit records an outgoing movement. The whole debit is rejected when
	// the quantity exceeds the current balance.
	Debit(ctx context.Context, id string, req DebitRequest) (*StockItem, error)

	// ResolveMaterial maps a material name to a stock item ID when exactly
	// one item matches. ok is false for zero or multiple matches.
	ResolveMaterial(ctx context.Context, materialName string) (uuid.UUID, bool, error)

	// CreditReceipt applies a requisition receipt to the ledger. Idempotent
	// per reference: a receipt already applied is a no-op. Fails closed with
	// ErrAmbiguousMaterial when no explicit item ID is given and the name
	// does not resolve to exactly one item.
	CreditReceipt(ctx context.Context, materialName string, stockItemID *uuid.UUID, quantity int, note, user, reference string, requestID uuid.UUID) error
}

type service struct {
	repo     Repository
	validate *validator.Validate

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewService creates a new inventory ledger service.
func NewService(repo Repository) Service {
	return &service{
		repo:     repo,
		validate: validator.New(),
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

// itemLock returns the mutex serializing mutations for one item. Two
// concurrent debits must not both pass the balance check.
func (s *service) itemLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *service) CreateItem(ctx context.Context, req CreateItemRequest) (*StockItem, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid item: %w", err)
	}
	now := time.Now().UTC()
	item := &StockItem{
		ID:          uuid.New(),
		Name:        req.Name,
		Category:    req.Category,
		Unit:        req.Unit,
		MinStock:    req.MinStock,
		MaxStock:    req.MaxStock,
		UnitPrice:   req.UnitPrice,
		LastUpdated: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	// Opening stock goes through the ledger so that replaying the
	// transaction log from zero always reproduces the balance.
	if req.CurrentStock > 0 {
		return s.credit(ctx, item.ID, req.CurrentStock, "Opening stock", "system", "", nil)
	}
	return item, nil
}

func (s *service) Get(ctx context.Context, id string) (*StockItem, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid item id %q: %w", id, ErrNotFound)
	}
	return s.repo.GetItemByID(ctx, itemID)
}

func (s *service) List(ctx context.Context) ([]*StockItem, error) {
	return s.repo.ListItems(ctx)
}

func (s *service) ByMaterialName(ctx context.Context, text string) (*StockItem, error) {
	matches, err := s.repo.SearchItemsByName(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no item matching %q: %w", text, ErrNotFound)
	}
	return matches[0], nil
}

func (s *service) Transactions(ctx context.Context, id string) ([]*Transaction, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid item id %q: %w", id, ErrNotFound)
	}
	if _, err := s.repo.GetItemByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, itemID)
}

func (s *service) Credit(ctx context.Context, id string, req MovementRequest) (*StockItem, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid item id %q: %w", id, ErrNotFound)
	}
	return s.credit(ctx, itemID, req.Quantity, req.Note, req.Actor.Name, "", nil)
}

func (s *service) Debit(ctx context.Context, id string, req DebitRequest) (*StockItem, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid item id %q: %w", id, ErrNotFound)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("debit quantity %d: %w", req.Quantity, ErrInvalidQuantity)
	}
	kind := req.Kind
	if kind == "" {
		kind = TypeRequest
	}
	if kind != TypeRequest && kind != TypeIssuedRequest {
		return nil, fmt.Errorf("debit kind %q: %w", kind, ErrInvalidQuantity)
	}

	lock := s.itemLock(itemID)
	lock.Lock()
	defer lock.Unlock()

	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if req.Quantity > item.CurrentStock {
		return nil, fmt.Errorf("debit %d exceeds balance %d: %w",
			req.Quantity, item.CurrentStock, ErrInsufficientStock)
	}

	now := time.Now().UTC()
	txn := &Transaction{
		ID:        uuid.New(),
		ItemID:    itemID,
		Date:      now,
		Type:      kind,
		Quantity:  req.Quantity,
		Note:      req.Note,
		User:      req.Actor.Name,
		Balance:   item.CurrentStock - req.Quantity,
		RequestID: req.RequestID,
	}
	item.CurrentStock = txn.Balance
	item.LastUpdated = now
	item.UpdatedAt = now
	if err := s.repo.AppendTransaction(ctx, item, txn); err != nil {
		return nil, fmt.Errorf("append transaction: %w", err)
	}
	item.Transactions = append([]*Transaction{txn}, item.Transactions...)
	metrics.LedgerTransactions.WithLabelValues(string(kind)).Inc()
	return item, nil
}

func (s *service) ResolveMaterial(ctx context.Context, materialName string) (uuid.UUID, bool, error) {
	matches, err := s.repo.SearchItemsByName(ctx, materialName)
	if err != nil {
		return uuid.Nil, false, err
	}
	if len(matches) != 1 {
		return uuid.Nil, false, nil
	}
	return matches[0].ID, true, nil
}

func (s *service) CreditReceipt(ctx context.Context, materialName string, stockItemID *uuid.UUID, quantity int, note, user, reference string, requestID uuid.UUID) error {
	if quantity <= 0 {
		return fmt.Errorf("receipt quantity %d: %w", quantity, ErrInvalidQuantity)
	}
	if reference == "" {
		return fmt.Errorf("receipt reference is required: %w", ErrInvalidQuantity)
	}

	itemID := uuid.Nil
	if stockItemID != nil {
		itemID = *stockItemID
	} else {
		id, ok, err := s.ResolveMaterial(ctx, materialName)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("material %q does not resolve to exactly one item: %w",
				materialName, ErrAmbiguousMaterial)
		}
		itemID = id
	}

	lock := s.itemLock(itemID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.repo.GetTransactionByReference(ctx, reference); err == nil {
		return nil // already applied
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	txn := &Transaction{
		ID:        uuid.New(),
		ItemID:    itemID,
		Date:      now,
		Type:      TypeStockIn,
		Quantity:  quantity,
		Note:      note,
		User:      user,
		Balance:   item.CurrentStock + quantity,
		RequestID: &requestID,
		Reference: reference,
	}
	item.CurrentStock = txn.Balance
	item.LastUpdated = now
	item.UpdatedAt = now
	if err := s.repo.AppendTransaction(ctx, item, txn); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	metrics.LedgerTransactions.WithLabelValues(string(TypeStockIn)).Inc()
	return nil
}

// credit is the shared stock_in path for Credit and seeding flows.
func (s *service) credit(ctx context.Context, itemID uuid.UUID, quantity int, note, user, reference string, requestID *uuid.UUID) (*StockItem, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("credit quantity %d: %w", quantity, ErrInvalidQuantity)
	}

	lock := s.itemLock(itemID)
	lock.Lock()
	defer lock.Unlock()

	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	txn := &Transaction{
		ID:        uuid.New(),
		ItemID:    itemID,
		Date:      now,
		Type:      TypeStockIn,
		Quantity:  quantity,
		Note:      note,
		User:      user,
		Balance:   item.CurrentStock + quantity,
		RequestID: requestID,
		Reference: reference,
	}
	item.CurrentStock = txn.Balance
	item.LastUpdated = now
	item.UpdatedAt = now
	if err := s.repo.AppendTransaction(ctx, item, txn); err != nil {
		return nil, fmt.Errorf("append transaction: %w", err)
	}
	item.Transactions = append([]*Transaction{txn}, item.Transactions...)
	metrics.LedgerTransactions.WithLabelValues(string(TypeStockIn)).Inc()
	return item, nil
}
