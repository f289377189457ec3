package domain

import "time"

type OrderEventType string

const (
	EventOrderCreated    OrderEventType = "order.created"
	EventOrderAssigned   OrderEventType = "order.assigned"
	EventOrderReassigned OrderEventType = "order.reassigned"
	EventOrderExpired    OrderEventType = "order.expired"
	EventOrderConfirmed  OrderEventType = "order.confirmed"
	EventOrderCompleted  OrderEventType = "order.completed"
	EventOrderCancelled  OrderEventType = "order.cancelled"
)

// OrderEvent is published after a lifecycle transition has been persisted.
type OrderEvent struct {
	Type              OrderEventType `json:"type"`
	OrderID           string         `json:"order_id"`
	PartnerID         string         `json:"partner_id,omitempty"`
	PreviousPartnerID string         `json:"previous_partner_id,omitempty"`
	Status            OrderStatus    `json:"status"`
	OccurredAt        time.Time      `json:"occurred_at"`
}
