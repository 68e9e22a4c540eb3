package requisition

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ForeFoldAi/ssrfm-materials-backend/internal/modules/inventory"
)

// Handler exposes requisition lifecycle HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/requisitions", func(r chi.Router) {
		r.Post("/", h.submit)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/actions", h.actions) // ?role=...

		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.reject)
		r.Post("/{id}/revert", h.revert)
		r.Post("/{id}/resubmit", h.resubmit)
		r.Post("/{id}/order", h.markOrdered)
		r.Post("/{id}/receipts", h.recordReceipt)
		r.Post("/{id}/complete", h.complete)
		r.Post("/{id}/reconcile", h.reconcile)
	})
}

// actorPayload is the actor identity carried on every mutating call.
type actorPayload struct {
	Actor Actor `json:"actor"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SubmitInput
		actorPayload
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	req, err := h.service.Submit(r.Context(), body.SubmitInput, body.Actor)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, req)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.service.List(r.Context())
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, reqs)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, req)
}

// actions reports which lifecycle actions the given role may perform on the
// requisition in its current state, so the caller can decide what to expose.
func (h *Handler) actions(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role == "" {
		respond(w, http.StatusBadRequest, map[string]string{"error": "role is required"})
		return
	}
	id := chi.URLParam(r, "id")
	out := map[Action]bool{}
	for _, action := range []Action{
		ActionApprove, ActionReject, ActionRevert, ActionResubmit,
		ActionOrder, ActionReceive, ActionComplete,
	} {
		ok, err := h.service.CanPerform(r.Context(), id, action, role)
		if err != nil {
			respond(w, statusFor(err), map[string]string{"error": err.Error()})
			return
		}
		out[action] = ok
	}
	respond(w, http.StatusOK, out)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.service.Approve)
}

func (h *Handler) resubmit(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.service.Resubmit)
}

func (h *Handler) markOrdered(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.service.MarkOrdered)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.service.Complete)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.service.Reconcile)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.reasonedTransition(w, r, h.service.Reject)
}

func (h *Handler) revert(w http.ResponseWriter, r *http.Request) {
	h.reasonedTransition(w, r, h.service.Revert)
}

func (h *Handler) recordReceipt(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ReceiptInput
		actorPayload
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	req, err := h.service.RecordReceipt(r.Context(), chi.URLParam(r, "id"), body.ReceiptInput, body.Actor)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, req)
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (h *Handler) simpleTransition(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, id string, actor Actor) (*Requisition, error)) {

	var body actorPayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	req, err := op(r.Context(), chi.URLParam(r, "id"), body.Actor)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, req)
}

func (h *Handler) reasonedTransition(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, id, reason string, actor Actor) (*Requisition, error)) {

	var body struct {
		Reason string `json:"reason"`
		actorPayload
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	req, err := op(r.Context(), chi.URLParam(r, "id"), body.Reason, body.Actor)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, req)
}

// statusFor maps lifecycle errors to HTTP status codes. Reconcile surfaces
// ledger errors, so the ledger's fail-closed ambiguity is mapped here too:
// the caller resolves it by setting an explicit stock item link, not by
// retrying.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrIllegalTransition), errors.Is(err, inventory.ErrAmbiguousMaterial):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
