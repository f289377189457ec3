package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dakshkarigar/marketplace-api/internal/clock"
	"github.com/dakshkarigar/marketplace-api/internal/domain"
)

type OrderRepository interface {
	AssignmentStore
	CreateOrder(ctx context.Context, order domain.Order) error
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	// CompareAndSetStatus moves the order to newStatus if it still has expectedStatus and
	// expectedPartnerID.
	CompareAndSetStatus(ctx context.Context, orderID, expectedPartnerID string, expectedStatus, newStatus domain.OrderStatus, at time.Time) error
}

// OrderService handles order actions coming from customers and partners. It shares the
// conditional-update primitive with the reassignment cycle.
type OrderService struct {
	repo          OrderRepository
	reassigner    *reassigner
	clock         clock.Clock
	logger        *slog.Logger
	defaultBudget time.Duration
}

func NewOrderService(repo OrderRepository, policy *AssignmentPolicy, clk clock.Clock, opts ...Option) *OrderService {
	o := newServiceOptions(opts)
	return &OrderService{
		repo: repo,
		reassigner: &reassigner{
			store:     repo,
			policy:    policy,
			publisher: o.publisher,
			logger:    o.logger,
		},
		clock:         clk,
		logger:        o.logger,
		defaultBudget: o.defaultBudget,
	}
}

type CreateOrderInput struct {
	CustomerID   string
	Category     string
	Location     string
	ExpiryBudget time.Duration
}

// CreateOrder stores a pending order and immediately offers it to the best eligible partner.
// With no eligible partner the order ends up expired.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	if in.CustomerID == "" || in.Category == "" {
		return domain.Order{}, domain.ErrMissingRequiredField
	}
	if in.ExpiryBudget < 0 {
		return domain.Order{}, domain.ErrInvalidExpiryBudget
	}
	budget := in.ExpiryBudget
	if budget == 0 {
		budget = s.defaultBudget
	}

	now := s.clock.Now()
	order := domain.Order{
		ID:                 newID(),
		CustomerID:         in.CustomerID,
		Category:           in.Category,
		Location:           in.Location,
		Status:             domain.OrderStatusPending,
		ExcludedPartnerIDs: []string{},
		ExpiryBudget:       budget,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return domain.Order{}, err
	}
	s.reassigner.publish(ctx, domain.OrderEvent{
		Type:       domain.EventOrderCreated,
		OrderID:    order.ID,
		Status:     order.Status,
		OccurredAt: now,
	})

	return s.assign(ctx, order, now)
}

// AssignOrder retries the initial assignment of a pending order.
func (s *OrderService) AssignOrder(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Status.Terminal() {
		return domain.Order{}, domain.ErrOrderTerminal
	}
	if order.Status != domain.OrderStatusPending {
		return domain.Order{}, domain.ErrInvalidTransition
	}
	return s.assign(ctx, order, s.clock.Now())
}

func (s *OrderService) assign(ctx context.Context, order domain.Order, now time.Time) (domain.Order, error) {
	res, err := s.reassigner.reassign(ctx, order, now)
	if err != nil && res.Outcome != OutcomeConflict {
		s.logger.Error("initial assignment failed", "order_id", order.ID, "error", err)
		return domain.Order{}, fmt.Errorf("assign order: %w", err)
	}
	return s.repo.GetOrder(ctx, order.ID)
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if err := validateID(orderID); err != nil {
		return domain.Order{}, err
	}
	return s.repo.GetOrder(ctx, orderID)
}

// ConfirmAssignment records that the assigned partner accepted the order.
func (s *OrderService) ConfirmAssignment(ctx context.Context, orderID, partnerID string) (domain.Order, error) {
	order, err := s.currentAssignment(ctx, orderID, partnerID, domain.OrderStatusAssigned)
	if err != nil {
		return domain.Order{}, err
	}

	now := s.clock.Now()
	if order.AssignmentStale(now) {
		return domain.Order{}, domain.ErrAssignmentExpired
	}
	if err := s.repo.CompareAndSetStatus(ctx, order.ID, partnerID, domain.OrderStatusAssigned, domain.OrderStatusInProgress, now); err != nil {
		return domain.Order{}, err
	}

	s.reassigner.publish(ctx, domain.OrderEvent{
		Type:       domain.EventOrderConfirmed,
		OrderID:    order.ID,
		PartnerID:  partnerID,
		Status:     domain.OrderStatusInProgress,
		OccurredAt: now,
	})
	return s.repo.GetOrder(ctx, order.ID)
}

// DeclineAssignment records that the assigned partner rejected the order and hands it to
// the next eligible partner right away instead of waiting for the expiry budget.
func (s *OrderService) DeclineAssignment(ctx context.Context, orderID, partnerID string) (domain.Order, error) {
	order, err := s.currentAssignment(ctx, orderID, partnerID, domain.OrderStatusAssigned)
	if err != nil {
		return domain.Order{}, err
	}

	if _, err := s.reassigner.reassign(ctx, order, s.clock.Now()); err != nil {
		return domain.Order{}, err
	}
	return s.repo.GetOrder(ctx, order.ID)
}

// CompleteOrder marks an in-progress order as done by its partner.
func (s *OrderService) CompleteOrder(ctx context.Context, orderID, partnerID string) (domain.Order, error) {
	order, err := s.currentAssignment(ctx, orderID, partnerID, domain.OrderStatusInProgress)
	if err != nil {
		return domain.Order{}, err
	}

	now := s.clock.Now()
	if err := s.repo.CompareAndSetStatus(ctx, order.ID, partnerID, domain.OrderStatusInProgress, domain.OrderStatusCompleted, now); err != nil {
		return domain.Order{}, err
	}

	s.reassigner.publish(ctx, domain.OrderEvent{
		Type:       domain.EventOrderCompleted,
		OrderID:    order.ID,
		PartnerID:  partnerID,
		Status:     domain.OrderStatusCompleted,
		OccurredAt: now,
	})
	return s.repo.GetOrder(ctx, order.ID)
}

// CancelOrder cancels any order that has not reached a terminal state.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Status.Terminal() {
		return domain.Order{}, domain.ErrOrderTerminal
	}

	now := s.clock.Now()
	if err := s.repo.CompareAndSetStatus(ctx, order.ID, order.AssignedPartnerID, order.Status, domain.OrderStatusCancelled, now); err != nil {
		return domain.Order{}, err
	}

	s.reassigner.publish(ctx, domain.OrderEvent{
		Type:              domain.EventOrderCancelled,
		OrderID:           order.ID,
		PreviousPartnerID: order.AssignedPartnerID,
		Status:            domain.OrderStatusCancelled,
		OccurredAt:        now,
	})
	return s.repo.GetOrder(ctx, order.ID)
}

func (s *OrderService) currentAssignment(ctx context.Context, orderID, partnerID string, want domain.OrderStatus) (domain.Order, error) {
	if partnerID == "" {
		return domain.Order{}, domain.ErrMissingRequiredField
	}
	if err := validateID(partnerID); err != nil {
		return domain.Order{}, err
	}
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Status.Terminal() {
		return domain.Order{}, domain.ErrOrderTerminal
	}
	if order.Status != want || order.AssignedPartnerID != partnerID {
		return domain.Order{}, domain.ErrNotAssignedPartner
	}
	return order, nil
}
