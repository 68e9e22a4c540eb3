package inventory

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockStatus is the derived health of an item's balance against its minimum.
type StockStatus string

const (
	StatusCritical StockStatus = "critical"
	StatusLow      StockStatus = "low"
	StatusGood     StockStatus = "good"
)

// TransactionType classifies a stock movement. The quantity is always
// positive; the direction is implied by the type.
type TransactionType string

const (
	TypeStockIn       TransactionType = "stock_in"
	TypeRequest       TransactionType = "request"
	TypeIssuedRequest TransactionType = "issued_request"
)

// Actor identifies the user performing a ledger operation.
type Actor struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// StockItem is one material SKU with its running balance and movement log.
type StockItem struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category,omitempty"`
	Unit         string          `json:"unit"`
	CurrentStock int             `json:"current_stock"`
	MinStock     int             `json:"min_stock"`
	MaxStock     int             `json:"max_stock"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LastUpdated  time.Time       `json:"last_updated"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	// Transactions is the append-only movement log, newest first. When
	// non-empty, Transactions[0].Balance equals CurrentStock.
	Transactions []*Transaction `json:"transactions,omitempty"`
}

// Status derives the health of the current balance. It is never stored.
func (s *StockItem) Status() StockStatus {
	switch {
	case s.CurrentStock*2 <= s.MinStock:
		return StatusCritical
	case s.CurrentStock <= s.MinStock:
		return StatusLow
	default:
		return StatusGood
	}
}

// TotalValue derives the monetary value of the current balance.
func (s *StockItem) TotalValue() decimal.Decimal {
	return s.UnitPrice.Mul(decimal.NewFromInt(int64(s.CurrentStock)))
}

// MarshalJSON includes the derived status and total_value fields so callers
// never see them drift from the canonical stock and price.
func (s *StockItem) MarshalJSON() ([]byte, error) {
	type alias StockItem
	return json.Marshal(struct {
		*alias
		Status     StockStatus     `json:"status"`
		TotalValue decimal.Decimal `json:"total_value"`
	}{
		alias:      (*alias)(s),
		Status:     s.Status(),
		TotalValue: s.TotalValue(),
	})
}

// Transaction is one immutable stock movement. Replaying an item's
// transactions oldest to newest from a balance of zero reproduces every
// recorded Balance.
type Transaction struct {
	ID       uuid.UUID       `json:"id"`
	ItemID   uuid.UUID       `json:"item_id"`
	Date     time.Time       `json:"date"`
	Type     TransactionType `json:"type"`
	Quantity int             `json:"quantity"`
	Note     string          `json:"note,omitempty"`
	User     string          `json:"user"`
	Balance  int             `json:"balance"`

	// RequestID links the movement to a requisition, when one triggered it.
	RequestID *uuid.UUID `json:"request_id,omitempty"`

	// Reference carries the receipt ID for movements applied by
	// reconciliation; a credit with an already-seen reference is a no-op.
	Reference string `json:"reference,omitempty"`
}

// CreateItemRequest holds data for seeding a stock item.
type CreateItemRequest struct {
	Name         string          `json:"name" validate:"required"`
	Category     string          `json:"category"`
	Unit         string          `json:"unit" validate:"required"`
	CurrentStock int             `json:"current_stock" validate:"gte=0"`
	MinStock     int             `json:"min_stock" validate:"gte=0"`
	MaxStock     int             `json:"max_stock" validate:"gte=0"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

// MovementRequest is the payload for a credit against an item.
type MovementRequest struct {
	Quantity int    `json:"quantity"`
	Note     string `json:"note"`
	Actor    Actor  `json:"actor"`
}

// DebitRequest is the payload for a debit against an item.
type DebitRequest struct {
	Quantity  int             `json:"quantity"`
	Note      string          `json:"note"`
	Actor     Actor           `json:"actor"`
	Kind      TransactionType `json:"kind"`
	RequestID *uuid.UUID      `json:"request_id,omitempty"`
}
