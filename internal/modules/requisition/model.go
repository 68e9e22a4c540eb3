package requisition

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a requisition.
type Status string

const (
	StatusPendingApproval   Status = "pending_approval"
	StatusApproved          Status = "approved"
	StatusOrdered           Status = "ordered"
	StatusPartiallyReceived Status = "partially_received"
	StatusMaterialReceived  Status = "material_received"
	StatusCompleted         Status = "completed"
	StatusReverted          Status = "reverted"
	StatusRejected          Status = "rejected"
)

// Roles gating lifecycle operations. Role strings come from the auth
// collaborator and are compared by equality only.
const (
	RoleCompanyOwner      = "company_owner"
	RoleSupervisor        = "supervisor"
	RoleDepartmentManager = "department_manager"
	RoleInventoryManager  = "inventory_manager"
)

// QualityCheck is the inspection outcome recorded on a receipt.
type QualityCheck string

const (
	QualityPassed  QualityCheck = "passed"
	QualityFailed  QualityCheck = "failed"
	QualityPartial QualityCheck = "partial"
)

// Actor identifies the user performing a lifecycle operation.
type Actor struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Requisition is one procurement request moving through the lifecycle graph.
type Requisition struct {
	ID           uuid.UUID `json:"id"`
	MaterialName string    `json:"material_name"`

	// StockItemID is the explicit ledger link, resolved at submission when
	// the material name matches exactly one stock item. Nil when the match
	// was absent or ambiguous; reconciliation then fails closed.
	StockItemID *uuid.UUID `json:"stock_item_id,omitempty"`

	// Quantity is the target amount as entered, a leading numeric magnitude
	// followed by a unit, e.g. "6 pieces".
	Quantity string          `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
	Priority string          `json:"priority,omitempty"`

	Status                Status `json:"status"`
	TotalReceivedQuantity int    `json:"total_received_quantity"`

	RequestedBy  string     `json:"requested_by"`
	ApprovedBy   string     `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	OrderedBy    string     `json:"ordered_by,omitempty"`
	OrderedAt    *time.Time `json:"ordered_at,omitempty"`
	RevertedBy   string     `json:"reverted_by,omitempty"`
	RevertedAt   *time.Time `json:"reverted_at,omitempty"`
	RevertReason string     `json:"revert_reason,omitempty"`
	RejectedBy   string     `json:"rejected_by,omitempty"`
	RejectedAt   *time.Time `json:"rejected_at,omitempty"`
	RejectReason string     `json:"reject_reason,omitempty"`

	// RejectLevel records which review level rejected: the department
	// manager or the supervisor. Both land on the same terminal status.
	RejectLevel string `json:"reject_level,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// StatusHistory is the append-only audit trail, newest first. Every
	// transition appends exactly one entry.
	StatusHistory []*HistoryEntry `json:"status_history,omitempty"`

	// PartialReceipts is the append-only delivery log, oldest first.
	PartialReceipts []*ReceiptRecord `json:"partial_receipts,omitempty"`
}

// ProgressStage mirrors the status for progress display: 0 for
// reverted/rejected up to 5 for material_received/completed.
func (r *Requisition) ProgressStage() int {
	return statusMeta[r.Status].stage
}

// CurrentStage is the human-readable label for the current status.
func (r *Requisition) CurrentStage() string {
	return statusMeta[r.Status].label
}

// StatusDescription is the longer display description for the current status.
func (r *Requisition) StatusDescription() string {
	return statusMeta[r.Status].description
}

// MarshalJSON includes the derived display fields so they can never disagree
// with the status they mirror.
func (r *Requisition) MarshalJSON() ([]byte, error) {
	type alias Requisition
	return json.Marshal(struct {
		*alias
		ProgressStage     int    `json:"progress_stage"`
		CurrentStage      string `json:"current_stage"`
		StatusDescription string `json:"status_description"`
	}{
		alias:             (*alias)(r),
		ProgressStage:     r.ProgressStage(),
		CurrentStage:      r.CurrentStage(),
		StatusDescription: r.StatusDescription(),
	})
}

var statusMeta = map[Status]struct {
	stage       int
	label       string
	description string
}{
	StatusPendingApproval:   {1, "Pending Approval", "Waiting for owner approval"},
	StatusApproved:          {2, "Approved", "Approved, awaiting purchase order"},
	StatusOrdered:           {3, "Ordered", "Purchase order placed with supplier"},
	StatusPartiallyReceived: {4, "Partially Received", "Some material received, delivery incomplete"},
	StatusMaterialReceived:  {5, "Material Received", "Full quantity received"},
	StatusCompleted:         {5, "Completed", "Request closed"},
	StatusReverted:          {0, "Reverted", "Returned to the requester for changes"},
	StatusRejected:          {0, "Rejected", "Request rejected"},
}

// HistoryEntry is one audit record of a status transition.
type HistoryEntry struct {
	ID            uuid.UUID `json:"id"`
	RequisitionID uuid.UUID `json:"requisition_id"`
	Status        Status    `json:"status"`
	Date          time.Time `json:"date"`
	Description   string    `json:"description"`
	User          string    `json:"user"`

	// Data is the raw update payload of the transition, kept for audit
	// replay.
	Data json.RawMessage `json:"data,omitempty"`
}

// ReceiptRecord is one physical delivery event against a requisition. Records
// are never edited or removed; corrections are new records.
type ReceiptRecord struct {
	ID                 uuid.UUID       `json:"id"`
	RequisitionID      uuid.UUID       `json:"requisition_id"`
	Date               time.Time       `json:"date"`
	ReceivedBy         string          `json:"received_by"`
	ReceivedDate       time.Time       `json:"received_date"`
	PurchasedPrice     decimal.Decimal `json:"purchased_price"`
	PurchasedQuantity  int             `json:"purchased_quantity"`
	PurchasedFrom      string          `json:"purchased_from"`
	InvoiceNumber      string          `json:"invoice_number,omitempty"`
	QualityCheck       QualityCheck    `json:"quality_check,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	IsPartial          bool            `json:"is_partial"`
	TotalReceivedSoFar int             `json:"total_received_so_far"`
	OriginalQuantity   int             `json:"original_quantity"`
}

// SubmitInput is the payload for creating a requisition.
type SubmitInput struct {
	MaterialName string          `json:"material_name" validate:"required"`
	Quantity     string          `json:"quantity" validate:"required"`
	Value        decimal.Decimal `json:"value"`
	Priority     string          `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

// ReceiptInput is the payload for recording one delivery against a
// requisition.
type ReceiptInput struct {
	ReceivedBy        string          `json:"received_by"`
	ReceivedDate      time.Time       `json:"received_date"`
	PurchasedPrice    decimal.Decimal `json:"purchased_price"`
	PurchasedQuantity int             `json:"purchased_quantity" validate:"required,gt=0"`
	PurchasedFrom     string          `json:"purchased_from" validate:"required"`
	InvoiceNumber     string          `json:"invoice_number"`
	QualityCheck      string          `json:"quality_check" validate:"omitempty,oneof=passed failed partial"`
	Notes             string          `json:"notes"`

	// Partial lets the receiver flag a delivery as partial even when the
	// cumulative quantity reaches the target.
	Partial bool `json:"partial"`
}
