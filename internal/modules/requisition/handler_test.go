package requisition

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ForeFoldAi/ssrfm-materials-backend/internal/modules/inventory"
)

// A reconcile blocked by an unresolved material is a conflict the caller
// fixes by linking an explicit stock item, not a server fault.
func TestReconcileAmbiguousMaterialAnswersConflict(t *testing.T) {
	ctx := context.Background()
	ledger := inventory.NewService(inventory.NewMemoryRepository())
	for _, name := range []string{"Steel Bolts", "Brass Bolts"} {
		_, err := ledger.CreateItem(ctx, inventory.CreateItemRequest{Name: name, Unit: "pieces"})
		require.NoError(t, err)
	}

	svc := newTestService(t, ledger)
	r := submit(t, svc, "Bolts", "10 pieces")
	id := r.ID.String()
	require.Nil(t, r.StockItemID)

	_, err := svc.Approve(ctx, id, owner)
	require.NoError(t, err)
	_, err = svc.MarkOrdered(ctx, id, supervisor)
	require.NoError(t, err)
	_, err = svc.RecordReceipt(ctx, id, receipt(10), storekeeper)
	require.NoError(t, err)

	router := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(router)

	body, err := json.Marshal(actorPayload{Actor: storekeeper})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/requisitions/"+id+"/reconcile", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReconcileResolvedMaterialAnswersOK(t *testing.T) {
	ctx := context.Background()
	ledger := inventory.NewService(inventory.NewMemoryRepository())
	_, err := ledger.CreateItem(ctx, inventory.CreateItemRequest{Name: "Bearings", Unit: "pieces"})
	require.NoError(t, err)

	svc := newTestService(t, ledger)
	r := submit(t, svc, "Bearings", "6 pieces")
	id := r.ID.String()

	_, err = svc.Approve(ctx, id, owner)
	require.NoError(t, err)
	_, err = svc.MarkOrdered(ctx, id, supervisor)
	require.NoError(t, err)
	_, err = svc.RecordReceipt(ctx, id, receipt(6), storekeeper)
	require.NoError(t, err)

	router := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(router)

	body, err := json.Marshal(actorPayload{Actor: storekeeper})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/requisitions/"+id+"/reconcile", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
