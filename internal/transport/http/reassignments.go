package http

import (
	"context"
	"net/http"

	"github.com/dakshkarigar/marketplace-api/internal/app"
)

// CycleRunner runs one reassignment cycle on demand.
type CycleRunner interface {
	RunCycle(ctx context.Context) (app.CycleReport, error)
}

type cycleResponse struct {
	app.CycleReport
	DurationMS int64 `json:"duration_ms"`
}

// HandleRunReassignment runs a cycle in the request and returns its report. It may overlap
// with a scheduled cycle.
func HandleRunReassignment(svc CycleRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.RunCycle(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cycleResponse{CycleReport: report, DurationMS: report.Duration.Milliseconds()})
	}
}
