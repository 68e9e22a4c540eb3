package requisition

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ForeFoldAi/ssrfm-materials-backend/internal/modules/inventory"
)

var (
	owner       = Actor{Name: "Asha", Role: RoleCompanyOwner}
	supervisor  = Actor{Name: "Binod", Role: RoleSupervisor}
	storekeeper = Actor{Name: "Chanda", Role: RoleInventoryManager}
	deptManager = Actor{Name: "Devika", Role: RoleDepartmentManager}
	requester   = Actor{Name: "Esha", Role: "site_staff"}
)

func newTestService(t *testing.T, ledger StockLedger) Service {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewService(NewMemoryRepository(), ledger, log)
}

func submit(t *testing.T, svc Service, material, quantity string) *Requisition {
	t.Helper()
	r, err := svc.Submit(context.Background(), SubmitInput{
		MaterialName: material,
		Quantity:     quantity,
		Value:        decimal.NewFromInt(300),
		Priority:     "medium",
	}, requester)
	require.NoError(t, err)
	return r
}

func receipt(qty int) ReceiptInput {
	return ReceiptInput{
		PurchasedPrice:    decimal.NewFromInt(50),
		PurchasedQuantity: qty,
		PurchasedFrom:     "Precision Traders",
	}
}

func TestSubmitSeedsHistory(t *testing.T) {
	svc := newTestService(t, nil)
	r := submit(t, svc, "Bearings", "6 pieces")

	assert.Equal(t, StatusPendingApproval, r.Status)
	assert.Equal(t, 1, r.ProgressStage())
	require.Len(t, r.StatusHistory, 1)
	assert.Equal(t, StatusPendingApproval, r.StatusHistory[0].Status)
	assert.Equal(t, requester.Name, r.StatusHistory[0].User)
}

func TestSubmitRequiresParsableQuantity(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.Submit(context.Background(), SubmitInput{
		MaterialName: "Bearings",
		Quantity:     "a few",
	}, requester)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSubmitRejectsZeroQuantity(t *testing.T) {
	svc := newTestService(t, nil)
	for _, qty := range []string{"0 pieces", "0.4 kg", "0"} {
		_, err := svc.Submit(context.Background(), SubmitInput{
			MaterialName: "Bearings",
			Quantity:     qty,
		}, requester)
		assert.ErrorIs(t, err, ErrValidation, "quantity %q", qty)
	}
}

func TestTransitionLegality(t *testing.T) {
	ctx := context.Background()

	// advance drives a fresh requisition to the wanted source status
	// through legal operations.
	advance := func(t *testing.T, svc Service, to Status) *Requisition {
		t.Helper()
		r := submit(t, svc, "Bearings", "6 pieces")
		var err error
		switch to {
		case StatusPendingApproval:
			return r
		case StatusApproved:
			r, err = svc.Approve(ctx, r.ID.String(), owner)
		case StatusOrdered:
			_, err = svc.Approve(ctx, r.ID.String(), owner)
			require.NoError(t, err)
			r, err = svc.MarkOrdered(ctx, r.ID.String(), supervisor)
		case StatusReverted:
			r, err = svc.Revert(ctx, r.ID.String(), "wrong size", owner)
		case StatusRejected:
			r, err = svc.Reject(ctx, r.ID.String(), "not needed", supervisor)
		default:
			t.Fatalf("advance does not support %s", to)
		}
		require.NoError(t, err)
		return r
	}

	tests := []struct {
		name string
		from Status
		op   func(svc Service, id string) error
	}{
		{"approve from ordered", StatusOrdered, func(svc Service, id string) error {
			_, err := svc.Approve(ctx, id, owner)
			return err
		}},
		{"approve by supervisor", StatusPendingApproval, func(svc Service, id string) error {
			_, err := svc.Approve(ctx, id, supervisor)
			return err
		}},
		{"order from pending", StatusPendingApproval, func(svc Service, id string) error {
			_, err := svc.MarkOrdered(ctx, id, supervisor)
			return err
		}},
		{"order by owner", StatusApproved, func(svc Service, id string) error {
			_, err := svc.MarkOrdered(ctx, id, owner)
			return err
		}},
		{"reject from approved", StatusApproved, func(svc Service, id string) error {
			_, err := svc.Reject(ctx, id, "late", deptManager)
			return err
		}},
		{"reject by owner", StatusPendingApproval, func(svc Service, id string) error {
			_, err := svc.Reject(ctx, id, "late", owner)
			return err
		}},
		{"revert from rejected", StatusRejected, func(svc Service, id string) error {
			_, err := svc.Revert(ctx, id, "reconsider", owner)
			return err
		}},
		{"resubmit from pending", StatusPendingApproval, func(svc Service, id string) error {
			_, err := svc.Resubmit(ctx, id, requester)
			return err
		}},
		{"receive before ordering", StatusApproved, func(svc Service, id string) error {
			_, err := svc.RecordReceipt(ctx, id, receipt(6), storekeeper)
			return err
		}},
		{"receive by requester", StatusOrdered, func(svc Service, id string) error {
			_, err := svc.RecordReceipt(ctx, id, receipt(6), requester)
			return err
		}},
		{"complete before receiving", StatusOrdered, func(svc Service, id string) error {
			_, err := svc.Complete(ctx, id, storekeeper)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, nil)
			r := advance(t, svc, tt.from)
			before := len(r.StatusHistory)

			err := tt.op(svc, r.ID.String())
			assert.ErrorIs(t, err, ErrIllegalTransition)

			after, getErr := svc.Get(ctx, r.ID.String())
			require.NoError(t, getErr)
			assert.Equal(t, tt.from, after.Status)
			assert.Len(t, after.StatusHistory, before, "rejected transition must not append history")
		})
	}
}

func TestRevertRequiresReason(t *testing.T) {
	svc := newTestService(t, nil)
	r := submit(t, svc, "Bearings", "6 pieces")

	_, err := svc.Revert(context.Background(), r.ID.String(), "", owner)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Revert(context.Background(), r.ID.String(), "   ", owner)
	assert.ErrorIs(t, err, ErrValidation)

	got, err := svc.Get(context.Background(), r.ID.String())
	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, got.Status)
	assert.Len(t, got.StatusHistory, 1)
}

func TestRevertAndResubmitPreserveHistory(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	r := submit(t, svc, "Bearings", "6 pieces")

	reverted, err := svc.Revert(ctx, r.ID.String(), "wrong grade", owner)
	require.NoError(t, err)
	assert.Equal(t, StatusReverted, reverted.Status)
	assert.Equal(t, 0, reverted.ProgressStage())
	assert.Equal(t, "wrong grade", reverted.RevertReason)

	resubmitted, err := svc.Resubmit(ctx, r.ID.String(), requester)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, resubmitted.Status)
	require.Len(t, resubmitted.StatusHistory, 3)
	// Newest first: resubmit, revert, submit.
	assert.Equal(t, StatusPendingApproval, resubmitted.StatusHistory[0].Status)
	assert.Equal(t, StatusReverted, resubmitted.StatusHistory[1].Status)
	assert.Equal(t, StatusPendingApproval, resubmitted.StatusHistory[2].Status)
}

func TestRejectRecordsLevel(t *testing.T) {
	ctx := context.Background()
	for _, reviewer := range []Actor{deptManager, supervisor} {
		svc := newTestService(t, nil)
		r := submit(t, svc, "Bearings", "6 pieces")

		rejected, err := svc.Reject(ctx, r.ID.String(), "budget freeze", reviewer)
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, rejected.Status)
		assert.Equal(t, reviewer.Role, rejected.RejectLevel)
		assert.Equal(t, "budget freeze", rejected.RejectReason)
		require.NotNil(t, rejected.RejectedAt)
	}
}

func TestReceiptAccumulation(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	r := submit(t, svc, "Bearings", "100 pieces")
	id := r.ID.String()

	_, err := svc.Approve(ctx, id, owner)
	require.NoError(t, err)
	_, err = svc.MarkOrdered(ctx, id, supervisor)
	require.NoError(t, err)

	first, err := svc.RecordReceipt(ctx, id, receipt(60), storekeeper)
	require.NoError(t, err)
	assert.Equal(t, StatusPartiallyReceived, first.Status)
	assert.Equal(t, 4, first.ProgressStage())
	assert.Equal(t, 60, first.TotalReceivedQuantity)
	require.Len(t, first.PartialReceipts, 1)
	assert.True(t, first.PartialReceipts[0].IsPartial)
	assert.Equal(t, 60, first.PartialReceipts[0].TotalReceivedSoFar)
	assert.Equal(t, 100, first.PartialReceipts[0].OriginalQuantity)

	second, err := svc.RecordReceipt(ctx, id, receipt(40), storekeeper)
	require.NoError(t, err)
	assert.Equal(t, StatusMaterialReceived, second.Status)
	assert.Equal(t, 5, second.ProgressStage())
	assert.Equal(t, 100, second.TotalReceivedQuantity)
	require.Len(t, second.PartialReceipts, 2)
	assert.False(t, second.PartialReceipts[1].IsPartial)
	assert.Equal(t, 100, second.PartialReceipts[1].TotalReceivedSoFar)
}

func TestFirstReceiptCoveringTargetCompletes(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	r := submit(t, svc, "Bearings", "100 pieces")
	id := r.ID.String()

	_, err := svc.Approve(ctx, id, owner)
	require.NoError(t, err)
	_, err = svc.MarkOrdered(ctx, id, supervisor)
	require.NoError(t, err)

	// Over-delivery is accepted and counts as complete.
	got, err := svc.RecordReceipt(ctx, id, receipt(120), storekeeper)
	require.NoError(t, err)
	assert.Equal(t, StatusMaterialReceived, got.Status)
	assert.Equal(t, 120, got.TotalReceivedQuantity)
}

func TestExplicitPartialFlagWins(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	r := submit(t, svc, "Bearings", "100 pieces")
	id := r.ID.String()

	_, err := svc.Approve(ctx, id, owner)
	require.NoError(t, err)
	_, err = svc.MarkOrdered(ctx, id, supervisor)
	require.NoError(t, err)

	in := receipt(100)
	in.Partial = true
	got, err := svc.RecordReceipt(ctx, id, in, storekeeper)
	require.NoError(t, err)
	assert.Equal(t, StatusPartiallyReceived, got.Status)
	assert.True(t, got.PartialReceipts[0].IsPartial)
}

func TestReceiptValidation(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	r := submit(t, svc, "Bearings", "6 pieces")
	id := r.ID.String()

	_, err := svc.Approve(ctx, id, owner)
	require.NoError(t, err)
	_, err = svc.MarkOrdered(ctx, id, supervisor)
	require.NoError(t, err)

	missingSupplier := receipt(6)
	missingSupplier.PurchasedFrom = ""
	_, err = svc.RecordReceipt(ctx, id, missingSupplier, storekeeper)
	assert.ErrorIs(t, err, ErrValidation)

	missingPrice := receipt(6)
	missingPrice.PurchasedPrice = decimal.Zero
	_, err = svc.RecordReceipt(ctx, id, missingPrice, storekeeper)
	assert.ErrorIs(t, err, ErrValidation)

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusOrdered, got.Status)
	assert.Empty(t, got.PartialReceipts)
}

func TestCanPerform(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	r := submit(t, svc, "Bearings", "6 pieces")
	id := r.ID.String()

	ok, err := svc.CanPerform(ctx, id, ActionApprove, RoleCompanyOwner)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CanPerform(ctx, id, ActionApprove, RoleSupervisor)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.CanPerform(ctx, id, ActionOrder, RoleSupervisor)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Approve(ctx, id, owner)
	require.NoError(t, err)

	ok, err = svc.CanPerform(ctx, id, ActionOrder, RoleSupervisor)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEndToEndWithLedger(t *testing.T) {
	ctx := context.Background()
	ledger := inventory.NewService(inventory.NewMemoryRepository())
	item, err := ledger.CreateItem(ctx, inventory.CreateItemRequest{
		Name:     "Bearings",
		Unit:     "pieces",
		MinStock: 2,
		MaxStock: 50,
	})
	require.NoError(t, err)

	svc := newTestService(t, ledger)
	r := submit(t, svc, "Bearings", "6 pieces")
	id := r.ID.String()
	require.NotNil(t, r.StockItemID)
	assert.Equal(t, item.ID, *r.StockItemID)

	_, err = svc.Approve(ctx, id, owner)
	require.NoError(t, err)
	_, err = svc.MarkOrdered(ctx, id, supervisor)
	require.NoError(t, err)

	first, err := svc.RecordReceipt(ctx, id, receipt(4), storekeeper)
	require.NoError(t, err)
	assert.Equal(t, StatusPartiallyReceived, first.Status)
	assert.Equal(t, 4, first.TotalReceivedQuantity)

	second, err := svc.RecordReceipt(ctx, id, receipt(2), storekeeper)
	require.NoError(t, err)
	assert.Equal(t, StatusMaterialReceived, second.Status)
	assert.Equal(t, 6, second.TotalReceivedQuantity)

	done, err := svc.Complete(ctx, id, supervisor)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, 5, done.ProgressStage())

	// Each receipt was credited to the ledger exactly once.
	got, err := ledger.Get(ctx, item.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 6, got.CurrentStock)

	// Reconcile is a no-op once everything is applied.
	_, err = svc.Reconcile(ctx, id, storekeeper)
	require.NoError(t, err)
	got, err = ledger.Get(ctx, item.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 6, got.CurrentStock)
}

func TestReceiptSurvivesLedgerFailure(t *testing.T) {
	ctx := context.Background()
	// Two matching items make the material ambiguous, so the ledger
	// credit fails closed while the receipt still stands.
	ledger := inventory.NewService(inventory.NewMemoryRepository())
	for _, name := range []string{"Steel Bolts", "Brass Bolts"} {
		_, err := ledger.CreateItem(ctx, inventory.CreateItemRequest{Name: name, Unit: "pieces"})
		require.NoError(t, err)
	}

	svc := newTestService(t, ledger)
	r := submit(t, svc, "Bolts", "10 pieces")
	id := r.ID.String()
	assert.Nil(t, r.StockItemID)

	_, err := svc.Approve(ctx, id, owner)
	require.NoError(t, err)
	_, err = svc.MarkOrdered(ctx, id, supervisor)
	require.NoError(t, err)

	got, err := svc.RecordReceipt(ctx, id, receipt(10), storekeeper)
	require.NoError(t, err)
	assert.Equal(t, StatusMaterialReceived, got.Status)
	require.Len(t, got.PartialReceipts, 1)

	// The retry path reports the unresolved material.
	_, err = svc.Reconcile(ctx, id, storekeeper)
	assert.ErrorIs(t, err, inventory.ErrAmbiguousMaterial)
}
