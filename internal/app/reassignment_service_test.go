package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/dakshkarigar/marketplace-api/internal/clock"
	"github.com/dakshkarigar/marketplace-api/internal/domain"
)

type ReassignmentServiceSuite struct {
	suite.Suite

	now       time.Time
	clock     *clock.Manual
	logger    *slog.Logger
	publisher *recordingPublisher
	recorder  *recordingRecorder
}

func TestReassignmentServiceSuite(t *testing.T) {
	suite.Run(t, new(ReassignmentServiceSuite))
}

func (s *ReassignmentServiceSuite) SetupTest() {
	s.now = time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	s.clock = clock.NewManual(s.now)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.publisher = &recordingPublisher{}
	s.recorder = &recordingRecorder{}
}

func (s *ReassignmentServiceSuite) newService(store OrderStore, dir PartnerDirectory) *ReassignmentService {
	return NewReassignmentService(store, NewAssignmentPolicy(dir), s.clock,
		WithLogger(s.logger),
		WithEventPublisher(s.publisher),
		WithCycleRecorder(s.recorder),
		WithConcurrency(4),
	)
}

func (s *ReassignmentServiceSuite) assignedOrder(id, partnerID string, age time.Duration) domain.Order {
	return domain.Order{
		ID:                 id,
		CustomerID:         "customer-" + id,
		Category:           "plumbing",
		Location:           "bhopal",
		Status:             domain.OrderStatusAssigned,
		AssignedPartnerID:  partnerID,
		AssignedAt:         s.now.Add(-age),
		ExcludedPartnerIDs: []string{},
		ExpiryBudget:       60 * time.Second,
		CreatedAt:          s.now.Add(-age),
		UpdatedAt:          s.now.Add(-age),
	}
}

func (s *ReassignmentServiceSuite) TestStaleOrderMovesToNextPartner() {
	store := newFakeOrderStore(s.assignedOrder("O1", "P1", 61*time.Second))
	dir := newFakeDirectory(
		verifiedPartner("P1", "plumbing", "bhopal", s.now),
		verifiedPartner("P2", "plumbing", "bhopal", s.now.Add(-time.Hour)),
	)

	report, err := s.newService(store, dir).RunCycle(context.Background())
	s.Require().NoError(err)

	got := store.get("O1")
	s.Equal(domain.OrderStatusAssigned, got.Status)
	s.Equal("P2", got.AssignedPartnerID)
	s.Equal([]string{"P1"}, got.ExcludedPartnerIDs)
	s.True(got.AssignedAt.Equal(s.now))

	s.Equal(1, report.Scanned)
	s.Equal(1, report.Reassigned)
	s.Equal([]domain.OrderEventType{domain.EventOrderReassigned}, s.publisher.types())
	s.Equal("P1", s.publisher.events[0].PreviousPartnerID)
	s.Len(s.recorder.cycles, 1)
}

func (s *ReassignmentServiceSuite) TestNoAlternativeExpiresOrder() {
	unavailable := verifiedPartner("P9", "plumbing", "bhopal", s.now)
	unavailable.Available = false

	store := newFakeOrderStore(s.assignedOrder("O2", "P1", 61*time.Second))
	dir := newFakeDirectory(verifiedPartner("P1", "plumbing", "bhopal", s.now), unavailable)

	report, err := s.newService(store, dir).RunCycle(context.Background())
	s.Require().NoError(err)

	got := store.get("O2")
	s.Equal(domain.OrderStatusExpired, got.Status)
	s.Equal([]string{"P1"}, got.ExcludedPartnerIDs)
	s.Equal(1, report.Expired)
	s.Equal([]domain.OrderEventType{domain.EventOrderExpired}, s.publisher.types())
}

func (s *ReassignmentServiceSuite) TestFreshAssignmentIsLeftAlone() {
	fresh := s.assignedOrder("O3", "P1", 10*time.Second)
	store := newFakeOrderStore(fresh)
	dir := newFakeDirectory(verifiedPartner("P2", "plumbing", "bhopal", s.now))

	report, err := s.newService(store, dir).RunCycle(context.Background())
	s.Require().NoError(err)

	s.Equal(0, report.Scanned)
	s.Equal(fresh, store.get("O3"))
	s.Zero(store.writeCount("O3"))
	s.Zero(dir.calls)
	s.Empty(s.publisher.types())
}

func (s *ReassignmentServiceSuite) TestConcurrentCyclesWriteOnce() {
	store := newFakeOrderStore(s.assignedOrder("O4", "P1", 90*time.Second))
	dir := newBarrierDirectory(newFakeDirectory(
		verifiedPartner("P1", "plumbing", "bhopal", s.now),
		verifiedPartner("P3", "plumbing", "bhopal", s.now.Add(-time.Minute)),
	), 2)
	svc := s.newService(store, dir)

	var (
		wg      sync.WaitGroup
		reports [2]CycleReport
		errs    [2]error
	)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reports[i], errs[i] = svc.RunCycle(context.Background())
		}()
	}
	wg.Wait()

	s.Require().NoError(errs[0])
	s.Require().NoError(errs[1])
	s.Equal(1, reports[0].Reassigned+reports[1].Reassigned)
	s.Equal(1, reports[0].Conflicts+reports[1].Conflicts)
	s.Equal(1, store.writeCount("O4"))

	got := store.get("O4")
	s.Equal("P3", got.AssignedPartnerID)
	s.Equal([]string{"P1"}, got.ExcludedPartnerIDs)
	s.Len(s.publisher.types(), 1)
}

func (s *ReassignmentServiceSuite) TestExclusionsGrowAcrossCycles() {
	store := newFakeOrderStore(s.assignedOrder("O5", "P1", 61*time.Second))
	dir := newFakeDirectory(
		verifiedPartner("P1", "plumbing", "bhopal", s.now),
		verifiedPartner("P2", "plumbing", "bhopal", s.now.Add(-time.Minute)),
		verifiedPartner("P3", "plumbing", "bhopal", s.now.Add(-time.Hour)),
	)
	svc := s.newService(store, dir)

	steps := []struct {
		partner  string
		status   domain.OrderStatus
		excluded []string
	}{
		{"P2", domain.OrderStatusAssigned, []string{"P1"}},
		{"P3", domain.OrderStatusAssigned, []string{"P1", "P2"}},
		{"P3", domain.OrderStatusExpired, []string{"P1", "P2", "P3"}},
	}
	for _, step := range steps {
		_, err := svc.RunCycle(context.Background())
		s.Require().NoError(err)

		got := store.get("O5")
		s.Equal(step.status, got.Status)
		s.Equal(step.partner, got.AssignedPartnerID)
		s.Equal(step.excluded, got.ExcludedPartnerIDs)

		s.clock.Advance(61 * time.Second)
	}
}

func (s *ReassignmentServiceSuite) TestPerOrderFailuresDoNotAbortCycle() {
	store := newFakeOrderStore(
		s.assignedOrder("bad", "P1", 2*time.Minute),
		s.assignedOrder("boom", "P1", 2*time.Minute),
		s.assignedOrder("good", "P1", 2*time.Minute),
	)
	store.casErrFor["bad"] = errors.New("deadlock detected")
	store.panicFor["boom"] = true
	dir := newFakeDirectory(
		verifiedPartner("P1", "plumbing", "bhopal", s.now),
		verifiedPartner("P2", "plumbing", "bhopal", s.now),
	)

	report, err := s.newService(store, dir).RunCycle(context.Background())
	s.Require().NoError(err)

	s.Equal(3, report.Scanned)
	s.Equal(1, report.Reassigned)
	s.Equal(2, report.Failures)
	s.Equal("P2", store.get("good").AssignedPartnerID)
	s.Equal("P1", store.get("bad").AssignedPartnerID)
	s.Equal("P1", store.get("boom").AssignedPartnerID)
}

func (s *ReassignmentServiceSuite) TestDirectoryFailureLeavesOrderForNextCycle() {
	store := newFakeOrderStore(s.assignedOrder("O6", "P1", 2*time.Minute))
	dir := newFakeDirectory()
	dir.err = errors.New("timeout")

	report, err := s.newService(store, dir).RunCycle(context.Background())
	s.Require().NoError(err)

	s.Equal(1, report.Failures)
	s.Equal(domain.OrderStatusAssigned, store.get("O6").Status)
	s.Zero(store.writeCount("O6"))
}

func (s *ReassignmentServiceSuite) TestScanFailureAbortsCycle() {
	store := newFakeOrderStore()
	store.findErr = errors.New("connection reset")

	_, err := s.newService(store, newFakeDirectory()).RunCycle(context.Background())
	s.Require().Error(err)
	s.ErrorIs(err, domain.ErrStoreRead)
	s.Equal(1, s.recorder.scanFailures)
	s.Empty(s.recorder.cycles)
}

func (s *ReassignmentServiceSuite) TestPublishFailureKeepsTransition() {
	s.publisher.err = errors.New("broker down")
	store := newFakeOrderStore(s.assignedOrder("O7", "P1", 2*time.Minute))
	dir := newFakeDirectory(verifiedPartner("P2", "plumbing", "bhopal", s.now))

	report, err := s.newService(store, dir).RunCycle(context.Background())
	s.Require().NoError(err)
	s.Equal(1, report.Reassigned)
	s.Equal("P2", store.get("O7").AssignedPartnerID)
}

func (s *ReassignmentServiceSuite) TestRunReassignmentCycleSwallowsErrors() {
	store := newFakeOrderStore()
	store.findErr = errors.New("connection reset")
	svc := s.newService(store, newFakeDirectory())

	s.NotPanics(svc.RunReassignmentCycle)
	s.Equal(1, s.recorder.scanFailures)
}

func TestCycleReport_Add(t *testing.T) {
	var r CycleReport
	for _, o := range []Outcome{OutcomeAssigned, OutcomeReassigned, OutcomeExpired, OutcomeConflict, OutcomeFailed, ""} {
		r.add(o)
	}
	require.Equal(t, 2, r.Reassigned)
	require.Equal(t, 1, r.Expired)
	require.Equal(t, 1, r.Conflicts)
	require.Equal(t, 2, r.Failures)
}
