package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dakshkarigar/marketplace-api/internal/domain"
)

// Outcome is the per-order result of one reassignment attempt.
type Outcome string

const (
	OutcomeAssigned   Outcome = "assigned"
	OutcomeReassigned Outcome = "reassigned"
	OutcomeExpired    Outcome = "expired"
	OutcomeConflict   Outcome = "conflict"
	OutcomeFailed     Outcome = "failed"
)

// AssignmentStore is the conditional-update primitive shared by the cycle and request handlers.
type AssignmentStore interface {
	// CompareAndSetAssignment binds the order to newPartnerID if it still has expectedStatus
	// and expectedPartnerID, appending the previous partner (if any) to the exclusion set.
	CompareAndSetAssignment(ctx context.Context, orderID, expectedPartnerID string, expectedStatus domain.OrderStatus, newPartnerID string, newAssignedAt time.Time) error
	// CompareAndSetExpired marks the order expired under the same expectations.
	CompareAndSetExpired(ctx context.Context, orderID, expectedPartnerID string, expectedStatus domain.OrderStatus, at time.Time) error
}

type reassignResult struct {
	Outcome   Outcome
	PartnerID string
}

// reassigner applies one Selecting -> Applying|Exhausted step to an order snapshot.
type reassigner struct {
	store     AssignmentStore
	policy    *AssignmentPolicy
	publisher EventPublisher
	logger    *slog.Logger
}

func (r *reassigner) reassign(ctx context.Context, order domain.Order, now time.Time) (reassignResult, error) {
	exclude := order.ExclusionsWithCurrent()

	partner, err := r.policy.Select(ctx, order, exclude)
	if errors.Is(err, domain.ErrNoEligiblePartner) {
		return r.expire(ctx, order, now)
	}
	if err != nil {
		return reassignResult{Outcome: OutcomeFailed}, err
	}

	err = r.store.CompareAndSetAssignment(ctx, order.ID, order.AssignedPartnerID, order.Status, partner.ID, now)
	if errors.Is(err, domain.ErrAssignmentConflict) {
		return reassignResult{Outcome: OutcomeConflict}, err
	}
	if err != nil {
		return reassignResult{Outcome: OutcomeFailed}, fmt.Errorf("apply assignment: %w", err)
	}

	outcome, eventType := OutcomeReassigned, domain.EventOrderReassigned
	if order.AssignedPartnerID == "" {
		outcome, eventType = OutcomeAssigned, domain.EventOrderAssigned
	}
	r.publish(ctx, domain.OrderEvent{
		Type:              eventType,
		OrderID:           order.ID,
		PartnerID:         partner.ID,
		PreviousPartnerID: order.AssignedPartnerID,
		Status:            domain.OrderStatusAssigned,
		OccurredAt:        now,
	})
	return reassignResult{Outcome: outcome, PartnerID: partner.ID}, nil
}

func (r *reassigner) expire(ctx context.Context, order domain.Order, now time.Time) (reassignResult, error) {
	err := r.store.CompareAndSetExpired(ctx, order.ID, order.AssignedPartnerID, order.Status, now)
	if errors.Is(err, domain.ErrAssignmentConflict) {
		return reassignResult{Outcome: OutcomeConflict}, err
	}
	if err != nil {
		return reassignResult{Outcome: OutcomeFailed}, fmt.Errorf("apply expiry: %w", err)
	}

	r.publish(ctx, domain.OrderEvent{
		Type:              domain.EventOrderExpired,
		OrderID:           order.ID,
		PreviousPartnerID: order.AssignedPartnerID,
		Status:            domain.OrderStatusExpired,
		OccurredAt:        now,
	})
	return reassignResult{Outcome: OutcomeExpired}, nil
}

// publish never fails the caller: the transition is already persisted.
func (r *reassigner) publish(ctx context.Context, event domain.OrderEvent) {
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Warn("publish order event failed",
			"event", event.Type,
			"order_id", event.OrderID,
			"error", err,
		)
	}
}
