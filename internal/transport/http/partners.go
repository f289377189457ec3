package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dakshkarigar/marketplace-api/internal/domain"
)

// PartnerActions is the part of the partner service the HTTP API drives.
type PartnerActions interface {
	ListPartnerDocuments(ctx context.Context) ([]domain.PartnerDocument, error)
	VerifyDocument(ctx context.Context, documentID string) (domain.PartnerDocument, error)
	DeclinePartner(ctx context.Context, partnerID string) (domain.Partner, error)
	SetAvailability(ctx context.Context, partnerID string, available bool) (domain.Partner, error)
}

type availabilityRequest struct {
	Available *bool `json:"available"`
}

type partnerResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Category     string     `json:"category"`
	Location     string     `json:"location,omitempty"`
	Available    bool       `json:"available"`
	Verification string     `json:"verification_status"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
}

func newPartnerResponse(p domain.Partner) partnerResponse {
	resp := partnerResponse{
		ID:           p.ID,
		Name:         p.Name,
		Category:     p.Category,
		Location:     p.Location,
		Available:    p.Available,
		Verification: string(p.Verification),
	}
	if !p.LastActiveAt.IsZero() {
		at := p.LastActiveAt
		resp.LastActiveAt = &at
	}
	return resp
}

type documentResponse struct {
	ID          string     `json:"id"`
	PartnerID   string     `json:"partner_id"`
	PartnerName string     `json:"partner_name,omitempty"`
	Kind        string     `json:"kind"`
	URL         string     `json:"url"`
	Status      string     `json:"status"`
	UploadedAt  time.Time  `json:"uploaded_at"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
}

func newDocumentResponse(d domain.PartnerDocument) documentResponse {
	return documentResponse{
		ID:          d.ID,
		PartnerID:   d.PartnerID,
		PartnerName: d.PartnerName,
		Kind:        d.Kind,
		URL:         d.URL,
		Status:      string(d.Status),
		UploadedAt:  d.UploadedAt,
		ReviewedAt:  d.ReviewedAt,
	}
}

func HandleSetAvailability(svc PartnerActions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req availabilityRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Available == nil {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "available is required")
			return
		}

		partner, err := svc.SetAvailability(r.Context(), chi.URLParam(r, "partnerID"), *req.Available)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newPartnerResponse(partner))
	}
}

func HandleListPartnerDocuments(svc PartnerActions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := svc.ListPartnerDocuments(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		resp := make([]documentResponse, 0, len(docs))
		for _, d := range docs {
			resp = append(resp, newDocumentResponse(d))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleVerifyDocument approves the document in the {id} URL parameter.
func HandleVerifyDocument(svc PartnerActions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := svc.VerifyDocument(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newDocumentResponse(doc))
	}
}

// HandleDeclinePartner rejects the partner in the {id} URL parameter.
func HandleDeclinePartner(svc PartnerActions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partner, err := svc.DeclinePartner(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newPartnerResponse(partner))
	}
}
