package domain

import (
	"slices"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusAssigned   OrderStatus = "assigned"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusExpired    OrderStatus = "expired"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusAssigned, OrderStatusInProgress,
		OrderStatusCompleted, OrderStatusCancelled, OrderStatusExpired:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is allowed from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled || s == OrderStatusExpired
}

// Order is a customer request for a service that gets bound to one partner at a time.
type Order struct {
	ID                 string
	CustomerID         string
	Category           string
	Location           string
	Status             OrderStatus
	AssignedPartnerID  string
	AssignedAt         time.Time
	ExcludedPartnerIDs []string
	ExpiryBudget       time.Duration
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Criteria returns the partner eligibility criteria derived from the order.
func (o Order) Criteria() Criteria {
	return Criteria{Category: o.Category, Location: o.Location}
}

// AssignmentDeadline is the instant at which the current assignment becomes stale.
func (o Order) AssignmentDeadline() time.Time {
	return o.AssignedAt.Add(o.ExpiryBudget)
}

// AssignmentStale reports whether the order is assigned and now - AssignedAt >= ExpiryBudget.
func (o Order) AssignmentStale(now time.Time) bool {
	if o.Status != OrderStatusAssigned || o.AssignedAt.IsZero() {
		return false
	}
	return now.Sub(o.AssignedAt) >= o.ExpiryBudget
}

// Excludes reports whether partnerID was already tried for this order.
func (o Order) Excludes(partnerID string) bool {
	return slices.Contains(o.ExcludedPartnerIDs, partnerID)
}

// ExclusionsWithCurrent returns the exclusion set including the currently assigned partner.
// The receiver's slice is never modified.
func (o Order) ExclusionsWithCurrent() []string {
	out := make([]string, 0, len(o.ExcludedPartnerIDs)+1)
	out = append(out, o.ExcludedPartnerIDs...)
	if o.AssignedPartnerID != "" && !o.Excludes(o.AssignedPartnerID) {
		out = append(out, o.AssignedPartnerID)
	}
	return out
}
