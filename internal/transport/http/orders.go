package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dakshkarigar/marketplace-api/internal/app"
	"github.com/dakshkarigar/marketplace-api/internal/domain"
)

// OrderActions is the part of the order service the HTTP API drives.
type OrderActions interface {
	CreateOrder(ctx context.Context, in app.CreateOrderInput) (domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	AssignOrder(ctx context.Context, orderID string) (domain.Order, error)
	ConfirmAssignment(ctx context.Context, orderID, partnerID string) (domain.Order, error)
	DeclineAssignment(ctx context.Context, orderID, partnerID string) (domain.Order, error)
	CompleteOrder(ctx context.Context, orderID, partnerID string) (domain.Order, error)
	CancelOrder(ctx context.Context, orderID string) (domain.Order, error)
}

type createOrderRequest struct {
	CustomerID     string `json:"customer_id"`
	Category       string `json:"category"`
	Location       string `json:"location"`
	ExpiryBudgetMS int64  `json:"expiry_budget_ms"`
}

type partnerActionRequest struct {
	PartnerID string `json:"partner_id"`
}

type orderResponse struct {
	ID                 string     `json:"id"`
	CustomerID         string     `json:"customer_id"`
	Category           string     `json:"category"`
	Location           string     `json:"location,omitempty"`
	Status             string     `json:"status"`
	AssignedPartnerID  string     `json:"assigned_partner_id,omitempty"`
	AssignedAt         *time.Time `json:"assigned_at,omitempty"`
	ExcludedPartnerIDs []string   `json:"excluded_partner_ids"`
	ExpiryBudgetMS     int64      `json:"expiry_budget_ms"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func newOrderResponse(o domain.Order) orderResponse {
	resp := orderResponse{
		ID:                 o.ID,
		CustomerID:         o.CustomerID,
		Category:           o.Category,
		Location:           o.Location,
		Status:             string(o.Status),
		AssignedPartnerID:  o.AssignedPartnerID,
		ExcludedPartnerIDs: o.ExcludedPartnerIDs,
		ExpiryBudgetMS:     o.ExpiryBudget.Milliseconds(),
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
	if !o.AssignedAt.IsZero() {
		at := o.AssignedAt
		resp.AssignedAt = &at
	}
	if resp.ExcludedPartnerIDs == nil {
		resp.ExcludedPartnerIDs = []string{}
	}
	return resp
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return false
	}
	return true
}

// HandleCreateOrder creates an order and offers it to a partner straight away.
func HandleCreateOrder(svc OrderActions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		order, err := svc.CreateOrder(r.Context(), app.CreateOrderInput{
			CustomerID:   req.CustomerID,
			Category:     req.Category,
			Location:     req.Location,
			ExpiryBudget: time.Duration(req.ExpiryBudgetMS) * time.Millisecond,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, newOrderResponse(order))
	}
}

func HandleGetOrder(svc OrderActions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newOrderResponse(order))
	}
}

func HandleAssignOrder(svc OrderActions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.AssignOrder(r.Context(), chi.URLParam(r, "orderID"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newOrderResponse(order))
	}
}

func HandleCancelOrder(svc OrderActions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.CancelOrder(r.Context(), chi.URLParam(r, "orderID"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newOrderResponse(order))
	}
}

type partnerAction func(ctx context.Context, orderID, partnerID string) (domain.Order, error)

// handlePartnerAction serves the confirm, decline and complete endpoints, which all take
// {"partner_id": ...} and act on the order in the URL.
func handlePartnerAction(action partnerAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req partnerActionRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.PartnerID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "partner_id is required")
			return
		}

		order, err := action(r.Context(), chi.URLParam(r, "orderID"), req.PartnerID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newOrderResponse(order))
	}
}

func HandleConfirmAssignment(svc OrderActions) http.HandlerFunc {
	return handlePartnerAction(svc.ConfirmAssignment)
}

func HandleDeclineAssignment(svc OrderActions) http.HandlerFunc {
	return handlePartnerAction(svc.DeclineAssignment)
}

func HandleCompleteOrder(svc OrderActions) http.HandlerFunc {
	return handlePartnerAction(svc.CompleteOrder)
}
