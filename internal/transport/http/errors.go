package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dakshkarigar/marketplace-api/internal/domain"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeMissingRequiredField = "missing_required_field"
	codeInvalidID            = "invalid_id"
	codeInvalidExpiryBudget  = "invalid_expiry_budget"
	codeOrderNotFound        = "order_not_found"
	codePartnerNotFound      = "partner_not_found"
	codeDocumentNotFound     = "document_not_found"
	codeAssignmentConflict   = "assignment_conflict"
	codeNotAssignedPartner   = "not_assigned_partner"
	codeAssignmentExpired    = "assignment_expired"
	codeOrderTerminal        = "order_terminal"
	codeInvalidTransition    = "invalid_transition"
	codeNoEligiblePartner    = "no_eligible_partner"
	codeStoreUnavailable     = "store_unavailable"
	codeForbidden            = "forbidden"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var errorMappings = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrInvalidID, http.StatusBadRequest, codeInvalidID},
	{domain.ErrMissingRequiredField, http.StatusBadRequest, codeMissingRequiredField},
	{domain.ErrInvalidExpiryBudget, http.StatusBadRequest, codeInvalidExpiryBudget},
	{domain.ErrOrderNotFound, http.StatusNotFound, codeOrderNotFound},
	{domain.ErrPartnerNotFound, http.StatusNotFound, codePartnerNotFound},
	{domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound},
	{domain.ErrAssignmentConflict, http.StatusConflict, codeAssignmentConflict},
	{domain.ErrNotAssignedPartner, http.StatusConflict, codeNotAssignedPartner},
	{domain.ErrAssignmentExpired, http.StatusConflict, codeAssignmentExpired},
	{domain.ErrOrderTerminal, http.StatusConflict, codeOrderTerminal},
	{domain.ErrInvalidTransition, http.StatusConflict, codeInvalidTransition},
	{domain.ErrNoEligiblePartner, http.StatusConflict, codeNoEligiblePartner},
	{domain.ErrStoreRead, http.StatusServiceUnavailable, codeStoreUnavailable},
}

// writeServiceError maps a service error onto a status and code. Unknown errors are logged
// and reported as 500 without their message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, m.err.Error())
			return
		}
	}
	slog.ErrorContext(r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
