package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dakshkarigar/marketplace-api/internal/clock"
	"github.com/dakshkarigar/marketplace-api/internal/domain"
)

// OrderStore is what a reassignment cycle needs from persistence.
type OrderStore interface {
	ExpiredOrderFinder
	AssignmentStore
}

// CycleReport summarizes one reassignment cycle.
type CycleReport struct {
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Scanned    int           `json:"scanned"`
	Reassigned int           `json:"reassigned"`
	Expired    int           `json:"expired"`
	Conflicts  int           `json:"conflicts"`
	Failures   int           `json:"failures"`
}

func (r *CycleReport) add(o Outcome) {
	switch o {
	case OutcomeReassigned, OutcomeAssigned:
		r.Reassigned++
	case OutcomeExpired:
		r.Expired++
	case OutcomeConflict:
		r.Conflicts++
	default:
		r.Failures++
	}
}

// ReassignmentService runs reassignment cycles: scan stale assignments, pick a new partner for
// each, apply the decision with a compare-and-set.
//
// Cycles may overlap. There is no cycle-level lock; the per-order compare-and-set guarantees
// that only one of two concurrent attempts on the same order takes effect.
type ReassignmentService struct {
	scanner      *ExpiryScanner
	reassigner   *reassigner
	clock        clock.Clock
	logger       *slog.Logger
	recorder     CycleRecorder
	concurrency  int
	cycleTimeout time.Duration
}

func NewReassignmentService(store OrderStore, policy *AssignmentPolicy, clk clock.Clock, opts ...Option) *ReassignmentService {
	o := newServiceOptions(opts)
	return &ReassignmentService{
		scanner: NewExpiryScanner(store),
		reassigner: &reassigner{
			store:     store,
			policy:    policy,
			publisher: o.publisher,
			logger:    o.logger,
		},
		clock:        clk,
		logger:       o.logger,
		recorder:     o.recorder,
		concurrency:  o.concurrency,
		cycleTimeout: o.cycleTimeout,
	}
}

// RunCycle executes one cycle against a single snapshot time. It returns an error only when
// the scan itself fails; per-order failures are counted in the report and retried next cycle.
func (s *ReassignmentService) RunCycle(ctx context.Context) (CycleReport, error) {
	started := time.Now()
	now := s.clock.Now()
	report := CycleReport{StartedAt: now}

	orders, err := s.scanner.Scan(ctx, now)
	if err != nil {
		s.recorder.RecordScanFailure()
		return report, fmt.Errorf("scan expired assignments: %w", err)
	}
	report.Scanned = len(orders)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, order := range orders {
		g.Go(func() error {
			outcome := s.processOrder(ctx, order, now)
			mu.Lock()
			report.add(outcome)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(started)
	s.recorder.RecordCycle(report)
	if report.Scanned > 0 {
		s.logger.Info("reassignment cycle finished",
			"scanned", report.Scanned,
			"reassigned", report.Reassigned,
			"expired", report.Expired,
			"conflicts", report.Conflicts,
			"failures", report.Failures,
			"duration_ms", report.Duration.Milliseconds(),
		)
	}
	return report, nil
}

// RunReassignmentCycle is the scheduler entry point. Nothing escapes it: errors and panics
// are logged.
func (s *ReassignmentService) RunReassignmentCycle() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("reassignment cycle panicked", "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.cycleTimeout)
	defer cancel()

	if _, err := s.RunCycle(ctx); err != nil {
		s.logger.Error("reassignment cycle aborted", "error", err)
	}
}

func (s *ReassignmentService) processOrder(ctx context.Context, order domain.Order, now time.Time) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("reassignment panicked", "order_id", order.ID, "panic", r)
			outcome = OutcomeFailed
		}
	}()

	res, err := s.reassigner.reassign(ctx, order, now)
	switch {
	case errors.Is(err, domain.ErrAssignmentConflict):
		s.logger.Info("order changed concurrently, skipping",
			"order_id", order.ID,
			"partner_id", order.AssignedPartnerID,
		)
	case err != nil:
		s.logger.Error("reassign order failed",
			"order_id", order.ID,
			"partner_id", order.AssignedPartnerID,
			"error", err,
		)
	default:
		s.logger.Debug("order processed",
			"order_id", order.ID,
			"outcome", res.Outcome,
			"previous_partner_id", order.AssignedPartnerID,
			"partner_id", res.PartnerID,
		)
	}
	return res.Outcome
}
