package requisition

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ForeFoldAi/ssrfm-materials-backend/internal/pkg/metrics"
)

// StockLedger is the inventory collaborator. The lifecycle engine records
// receipt facts on the requisition; applying them to the ledger is a
// separate, idempotent reconciliation call keyed by the receipt reference.
type StockLedger interface {
	// ResolveMaterial maps a material name to a stock item ID when exactly
	// one item matches; ok is false otherwise.
	ResolveMaterial(ctx context.Context, materialName string) (uuid.UUID, bool, error)

	// CreditReceipt applies one receipt to the ledger. Must be idempotent
	// per reference.
	CreditReceipt(ctx context.Context, materialName string, stockItemID *uuid.UUID, quantity int, note, user, reference string, requestID uuid.UUID) error
}

// Service defines the request lifecycle business logic. Every mutating
// operation validates the actor's role and the source status before touching
// the aggregate; a rejected operation leaves it completely unchanged.
type Service interface {
	Submit(ctx context.Context, input SubmitInput, actor Actor) (*Requisition, error)
	Get(ctx context.Context, id string) (*Requisition, error)
	List(ctx context.Context) ([]*Requisition, error)

	Approve(ctx context.Context, id string, actor Actor) (*Requisition, error)
	Reject(ctx context.Context, id, reason string, actor Actor) (*Requisition, error)
	Revert(ctx context.Context, id, reason string, actor Actor) (*Requisition, error)
	Resubmit(ctx context.Context, id string, actor Actor) (*Requisition, error)
	MarkOrdered(ctx context.Context, id string, actor Actor) (*Requisition, error)
	RecordReceipt(ctx context.Context, id string, input ReceiptInput, actor Actor) (*Requisition, error)
	Complete(ctx context.Context, id string, actor Actor) (*Requisition, error)

	// CanPerform reports whether the action is legal for the requisition's
	// current status and the given role. Pure predicate, no side effects.
	CanPerform(ctx context.Context, id string, action Action, role string) (bool, error)

	// Reconcile replays every recorded receipt against the stock ledger.
	// Safe to retry: applied receipts are skipped by reference.
	Reconcile(ctx context.Context, id string, actor Actor) (*Requisition, error)
}

type service struct {
	repo     Repository
	ledger   StockLedger // nil disables reconciliation
	log      *logrus.Logger
	validate *validator.Validate

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewService creates a new request lifecycle service. ledger may be nil when
// no inventory reconciliation is wanted.
func NewService(repo Repository, ledger StockLedger, log *logrus.Logger) Service {
	if log == nil {
		log = logrus.New()
	}
	return &service{
		repo:     repo,
		ledger:   ledger,
		log:      log,
		validate: validator.New(),
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

// reqLock returns the mutex serializing transitions for one requisition, so
// two concurrent transitions cannot both append believing they are last.
func (s *service) reqLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *service) Submit(ctx context.Context, input SubmitInput, actor Actor) (*Requisition, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrValidation)
	}
	qty, err := parseQuantity(input.Quantity)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrValidation)
	}
	if qty <= 0 {
		return nil, fmt.Errorf("quantity %q must be positive: %w", input.Quantity, ErrValidation)
	}

	now := time.Now().UTC()
	r := &Requisition{
		ID:           uuid.New(),
		MaterialName: input.MaterialName,
		Quantity:     input.Quantity,
		Value:        input.Value,
		Priority:     input.Priority,
		Status:       StatusPendingApproval,
		RequestedBy:  actor.Name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if s.ledger != nil {
		if itemID, ok, err := s.ledger.ResolveMaterial(ctx, input.MaterialName); err == nil && ok {
			r.StockItemID = &itemID
		}
	}

	entry := newHistoryEntry(r, actor,
		fmt.Sprintf("Request for %s submitted by %s", r.MaterialName, actor.Name), input)
	if err := s.repo.Create(ctx, r, entry); err != nil {
		return nil, fmt.Errorf("create requisition: %w", err)
	}
	r.StatusHistory = []*HistoryEntry{entry}
	metrics.RequisitionTransitions.WithLabelValues(string(StatusPendingApproval)).Inc()
	return r, nil
}

func (s *service) Get(ctx context.Context, id string) (*Requisition, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid requisition id %q: %w", id, ErrNotFound)
	}
	return s.repo.GetByID(ctx, rid)
}

func (s *service) List(ctx context.Context) ([]*Requisition, error) {
	return s.repo.List(ctx)
}

func (s *service) Approve(ctx context.Context, id string, actor Actor) (*Requisition, error) {
	return s.transition(ctx, id, ActionApprove, actor, func(r *Requisition, now time.Time) (string, interface{}, error) {
		r.Status = StatusApproved
		r.ApprovedBy = actor.Name
		r.ApprovedAt = &now
		return fmt.Sprintf("Request approved by %s", actor.Name),
			map[string]string{"approved_by": actor.Name}, nil
	})
}

func (s *service) Reject(ctx context.Context, id, reason string, actor Actor) (*Requisition, error) {
	return s.transition(ctx, id, ActionReject, actor, func(r *Requisition, now time.Time) (string, interface{}, error) {
		r.Status = StatusRejected
		r.RejectedBy = actor.Name
		r.RejectedAt = &now
		r.RejectReason = reason
		r.RejectLevel = actor.Role
		return fmt.Sprintf("Request rejected by %s", actor.Name),
			map[string]string{"rejected_by": actor.Name, "reason": reason, "level": actor.Role}, nil
	})
}

func (s *service) Revert(ctx context.Context, id, reason string, actor Actor) (*Requisition, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("revert reason is required: %w", ErrValidation)
	}
	return s.transition(ctx, id, ActionRevert, actor, func(r *Requisition, now time.Time) (string, interface{}, error) {
		r.Status = StatusReverted
		r.RevertedBy = actor.Name
		r.RevertedAt = &now
		r.RevertReason = reason
		return fmt.Sprintf("Request reverted by %s: %s", actor.Name, reason),
			map[string]string{"reverted_by": actor.Name, "reason": reason}, nil
	})
}

func (s *service) Resubmit(ctx context.Context, id string, actor Actor) (*Requisition, error) {
	return s.transition(ctx, id, ActionResubmit, actor, func(r *Requisition, now time.Time) (string, interface{}, error) {
		r.Status = StatusPendingApproval
		return fmt.Sprintf("Request resubmitted by %s", actor.Name),
			map[string]string{"resubmitted_by": actor.Name}, nil
	})
}

func (s *service) MarkOrdered(ctx context.Context, id string, actor Actor) (*Requisition, error) {
	return s.transition(ctx, id, ActionOrder, actor, func(r *Requisition, now time.Time) (string, interface{}, error) {
		r.Status = StatusOrdered
		r.OrderedBy = actor.Name
		r.OrderedAt = &now
		return fmt.Sprintf("Purchase order placed by %s", actor.Name),
			map[string]string{"ordered_by": actor.Name}, nil
	})
}

func (s *service) Complete(ctx context.Context, id string, actor Actor) (*Requisition, error) {
	return s.transition(ctx, id, ActionComplete, actor, func(r *Requisition, now time.Time) (string, interface{}, error) {
		r.Status = StatusCompleted
		return fmt.Sprintf("Request completed by %s", actor.Name),
			map[string]string{"completed_by": actor.Name}, nil
	})
}

func (s *service) RecordReceipt(ctx context.Context, id string, input ReceiptInput, actor Actor) (*Requisition, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid requisition id %q: %w", id, ErrNotFound)
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrValidation)
	}
	if input.PurchasedPrice.IsZero() {
		return nil, fmt.Errorf("purchased price is required: %w", ErrValidation)
	}

	lock := s.reqLock(rid)
	lock.Lock()
	defer lock.Unlock()

	r, err := s.repo.GetByID(ctx, rid)
	if err != nil {
		return nil, err
	}
	if !allowed(ActionReceive, r.Status, actor.Role) {
		return nil, fmt.Errorf("receive from %s as %s: %w", r.Status, actor.Role, ErrIllegalTransition)
	}

	original, err := parseQuantity(r.Quantity)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrValidation)
	}

	total := input.PurchasedQuantity
	for _, prior := range r.PartialReceipts {
		total += prior.PurchasedQuantity
	}

	// Partial when the receiver says so, or the cumulative quantity is
	// still short of the target. Over-delivery is allowed and counts as
	// complete.
	outcome := StatusMaterialReceived
	if input.Partial || total < original {
		outcome = StatusPartiallyReceived
	}

	now := time.Now().UTC()
	receivedBy := input.ReceivedBy
	if receivedBy == "" {
		receivedBy = actor.Name
	}
	receivedDate := input.ReceivedDate
	if receivedDate.IsZero() {
		receivedDate = now
	}
	receipt := &ReceiptRecord{
		ID:                 uuid.New(),
		RequisitionID:      r.ID,
		Date:               now,
		ReceivedBy:         receivedBy,
		ReceivedDate:       receivedDate,
		PurchasedPrice:     input.PurchasedPrice,
		PurchasedQuantity:  input.PurchasedQuantity,
		PurchasedFrom:      input.PurchasedFrom,
		InvoiceNumber:      input.InvoiceNumber,
		QualityCheck:       QualityCheck(input.QualityCheck),
		Notes:              input.Notes,
		IsPartial:          outcome == StatusPartiallyReceived,
		TotalReceivedSoFar: total,
		OriginalQuantity:   original,
	}

	r.Status = outcome
	r.TotalReceivedQuantity = total
	r.UpdatedAt = now
	entry := newHistoryEntry(r, actor,
		fmt.Sprintf("Received %d of %d %s", total, original, r.MaterialName), input)
	if err := s.repo.Update(ctx, r, entry, receipt); err != nil {
		return nil, fmt.Errorf("record receipt: %w", err)
	}
	r.StatusHistory = append([]*HistoryEntry{entry}, r.StatusHistory...)
	r.PartialReceipts = append(r.PartialReceipts, receipt)
	metrics.RequisitionTransitions.WithLabelValues(string(outcome)).Inc()

	// Best-effort ledger credit. The receipt stands either way; a failure
	// here is retried through Reconcile.
	if s.ledger != nil {
		if err := s.creditReceipt(ctx, r, receipt, actor); err != nil {
			metrics.ReconciliationFailures.Inc()
			s.log.WithError(err).
				WithField("requisition_id", r.ID).
				WithField("receipt_id", receipt.ID).
				Warn("ledger reconciliation failed, receipt recorded")
		}
	}
	return r, nil
}

func (s *service) CanPerform(ctx context.Context, id string, action Action, role string) (bool, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return false, fmt.Errorf("invalid requisition id %q: %w", id, ErrNotFound)
	}
	r, err := s.repo.GetByID(ctx, rid)
	if err != nil {
		return false, err
	}
	return allowed(action, r.Status, role), nil
}

func (s *service) Reconcile(ctx context.Context, id string, actor Actor) (*Requisition, error) {
	if s.ledger == nil {
		return nil, fmt.Errorf("no stock ledger configured: %w", ErrIllegalTransition)
	}
	rid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid requisition id %q: %w", id, ErrNotFound)
	}
	r, err := s.repo.GetByID(ctx, rid)
	if err != nil {
		return nil, err
	}
	for _, receipt := range r.PartialReceipts {
		if err := s.creditReceipt(ctx, r, receipt, actor); err != nil {
			metrics.ReconciliationFailures.Inc()
			return nil, fmt.Errorf("reconcile receipt %s: %w", receipt.ID, err)
		}
	}
	return r, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

// transition is the shared role-gate, mutate, append-history path used by the
// single-step lifecycle operations.
func (s *service) transition(ctx context.Context, id string, action Action, actor Actor,
	apply func(r *Requisition, now time.Time) (description string, payload interface{}, err error)) (*Requisition, error) {

	rid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid requisition id %q: %w", id, ErrNotFound)
	}

	lock := s.reqLock(rid)
	lock.Lock()
	defer lock.Unlock()

	r, err := s.repo.GetByID(ctx, rid)
	if err != nil {
		return nil, err
	}
	if !allowed(action, r.Status, actor.Role) {
		return nil, fmt.Errorf("%s from %s as %s: %w", action, r.Status, actor.Role, ErrIllegalTransition)
	}

	now := time.Now().UTC()
	description, payload, err := apply(r, now)
	if err != nil {
		return nil, err
	}
	r.UpdatedAt = now

	entry := newHistoryEntry(r, actor, description, payload)
	if err := s.repo.Update(ctx, r, entry, nil); err != nil {
		return nil, fmt.Errorf("%s requisition: %w", action, err)
	}
	r.StatusHistory = append([]*HistoryEntry{entry}, r.StatusHistory...)
	metrics.RequisitionTransitions.WithLabelValues(string(r.Status)).Inc()
	return r, nil
}

func (s *service) creditReceipt(ctx context.Context, r *Requisition, receipt *ReceiptRecord, actor Actor) error {
	note := fmt.Sprintf("Receipt for request %s (%s)", r.ID, r.MaterialName)
	return s.ledger.CreditReceipt(ctx, r.MaterialName, r.StockItemID,
		receipt.PurchasedQuantity, note, actor.Name, receipt.ID.String(), r.ID)
}

func newHistoryEntry(r *Requisition, actor Actor, description string, payload interface{}) *HistoryEntry {
	var data json.RawMessage
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			data = b
		}
	}
	return &HistoryEntry{
		ID:            uuid.New(),
		RequisitionID: r.ID,
		Status:        r.Status,
		Date:          time.Now().UTC(),
		Description:   description,
		User:          actor.Name,
		Data:          data,
	}
}
