package app

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/dakshkarigar/marketplace-api/internal/domain"
)

// fakeOrderStore mimics the conditional UPDATEs of the Postgres repository under a mutex.
type fakeOrderStore struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	writes map[string]int

	findErr   error
	casErrFor map[string]error
	panicFor  map[string]bool
}

func newFakeOrderStore(orders ...domain.Order) *fakeOrderStore {
	s := &fakeOrderStore{
		orders:    make(map[string]domain.Order),
		writes:    make(map[string]int),
		casErrFor: make(map[string]error),
		panicFor:  make(map[string]bool),
	}
	for _, o := range orders {
		s.orders[o.ID] = cloneOrder(o)
	}
	return s
}

func cloneOrder(o domain.Order) domain.Order {
	o.ExcludedPartnerIDs = slices.Clone(o.ExcludedPartnerIDs)
	return o
}

func (s *fakeOrderStore) get(id string) domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneOrder(s.orders[id])
}

func (s *fakeOrderStore) writeCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[id]
}

func (s *fakeOrderStore) FindAssignedBefore(_ context.Context, cutoff time.Time) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	var out []domain.Order
	for _, o := range s.orders {
		if o.Status != domain.OrderStatusAssigned {
			continue
		}
		if o.AssignmentDeadline().After(cutoff) {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	slices.SortFunc(out, func(a, b domain.Order) int {
		return a.AssignedAt.Compare(b.AssignedAt)
	})
	return out, nil
}

func (s *fakeOrderStore) matches(orderID, expectedPartnerID string, expectedStatus domain.OrderStatus) (domain.Order, error) {
	if s.panicFor[orderID] {
		panic("store exploded for " + orderID)
	}
	if err := s.casErrFor[orderID]; err != nil {
		return domain.Order{}, err
	}
	o, ok := s.orders[orderID]
	if !ok || o.Status != expectedStatus || o.AssignedPartnerID != expectedPartnerID {
		return domain.Order{}, domain.ErrAssignmentConflict
	}
	return o, nil
}

func excludePrevious(o domain.Order) []string {
	if o.AssignedPartnerID == "" || slices.Contains(o.ExcludedPartnerIDs, o.AssignedPartnerID) {
		return o.ExcludedPartnerIDs
	}
	return append(slices.Clone(o.ExcludedPartnerIDs), o.AssignedPartnerID)
}

func (s *fakeOrderStore) CompareAndSetAssignment(_ context.Context, orderID, expectedPartnerID string, expectedStatus domain.OrderStatus, newPartnerID string, newAssignedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := s.matches(orderID, expectedPartnerID, expectedStatus)
	if err != nil {
		return err
	}
	o.ExcludedPartnerIDs = excludePrevious(o)
	o.AssignedPartnerID = newPartnerID
	o.AssignedAt = newAssignedAt
	o.Status = domain.OrderStatusAssigned
	o.UpdatedAt = newAssignedAt
	s.orders[orderID] = o
	s.writes[orderID]++
	return nil
}

func (s *fakeOrderStore) CompareAndSetExpired(_ context.Context, orderID, expectedPartnerID string, expectedStatus domain.OrderStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := s.matches(orderID, expectedPartnerID, expectedStatus)
	if err != nil {
		return err
	}
	o.ExcludedPartnerIDs = excludePrevious(o)
	o.Status = domain.OrderStatusExpired
	o.UpdatedAt = at
	s.orders[orderID] = o
	s.writes[orderID]++
	return nil
}

func (s *fakeOrderStore) CompareAndSetStatus(_ context.Context, orderID, expectedPartnerID string, expectedStatus, newStatus domain.OrderStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := s.matches(orderID, expectedPartnerID, expectedStatus)
	if err != nil {
		return err
	}
	o.Status = newStatus
	o.UpdatedAt = at
	s.orders[orderID] = o
	s.writes[orderID]++
	return nil
}

func (s *fakeOrderStore) CreateOrder(_ context.Context, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (s *fakeOrderStore) GetOrder(_ context.Context, orderID string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

// fakeDirectory returns the partners matching criteria, like the SQL query does.
type fakeDirectory struct {
	mu       sync.Mutex
	partners []domain.Partner
	err      error
	calls    int
}

func newFakeDirectory(partners ...domain.Partner) *fakeDirectory {
	return &fakeDirectory{partners: partners}
}

func (d *fakeDirectory) FindEligible(_ context.Context, criteria domain.Criteria, excludeIDs []string) ([]domain.Partner, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	var out []domain.Partner
	for _, p := range d.partners {
		if p.Matches(criteria) && !slices.Contains(excludeIDs, p.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}

// barrierDirectory holds every caller until n callers have arrived, forcing their
// reads to happen before any of them writes.
type barrierDirectory struct {
	PartnerDirectory
	mu      sync.Mutex
	waiting int
	n       int
	release chan struct{}
}

func newBarrierDirectory(inner PartnerDirectory, n int) *barrierDirectory {
	return &barrierDirectory{PartnerDirectory: inner, n: n, release: make(chan struct{})}
}

func (b *barrierDirectory) FindEligible(ctx context.Context, criteria domain.Criteria, excludeIDs []string) ([]domain.Partner, error) {
	b.mu.Lock()
	b.waiting++
	if b.waiting == b.n {
		close(b.release)
	}
	b.mu.Unlock()

	select {
	case <-b.release:
	case <-time.After(5 * time.Second):
		return nil, errors.New("barrier timeout")
	}
	return b.PartnerDirectory.FindEligible(ctx, criteria, excludeIDs)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []domain.OrderEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.OrderEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingRecorder struct {
	mu           sync.Mutex
	cycles       []CycleReport
	scanFailures int
}

func (r *recordingRecorder) RecordCycle(report CycleReport) {
	r.mu.Lock()
	r.cycles = append(r.cycles, report)
	r.mu.Unlock()
}

func (r *recordingRecorder) RecordScanFailure() {
	r.mu.Lock()
	r.scanFailures++
	r.mu.Unlock()
}

func verifiedPartner(id, category, location string, lastActive time.Time) domain.Partner {
	return domain.Partner{
		ID:           id,
		Name:         "partner " + id,
		Category:     category,
		Location:     location,
		Available:    true,
		Verification: domain.VerificationVerified,
		LastActiveAt: lastActive,
	}
}
