package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dakshkarigar/marketplace-api/internal/domain"
)

type OrderRepository struct {
	conn
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{conn: conn{pool: pool}}
}

func (r *OrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const orderColumns = `
id, customer_id, category, location, status,
COALESCE(assigned_partner_id::text, ''), assigned_at,
excluded_partner_ids::text[], expiry_budget_ms, created_at, updated_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o          domain.Order
		status     string
		assignedAt *time.Time
		budgetMS   int64
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.Category, &o.Location, &status,
		&o.AssignedPartnerID, &assignedAt,
		&o.ExcludedPartnerIDs, &budgetMS, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	if assignedAt != nil {
		o.AssignedAt = assignedAt.UTC()
	}
	if o.ExcludedPartnerIDs == nil {
		o.ExcludedPartnerIDs = []string{}
	}
	o.ExpiryBudget = time.Duration(budgetMS) * time.Millisecond
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return o, nil
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	const stmt = `
INSERT INTO orders (id, customer_id, category, location, status, assigned_partner_id, assigned_at,
	excluded_partner_ids, expiry_budget_ms, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6::uuid, $7, $8::uuid[], $9, $10, $11)`

	var assignedAt *time.Time
	if !order.AssignedAt.IsZero() {
		assignedAt = &order.AssignedAt
	}
	excluded := order.ExcludedPartnerIDs
	if excluded == nil {
		excluded = []string{}
	}

	_, err := r.exec(ctx, stmt,
		order.ID, order.CustomerID, order.Category, order.Location, order.Status,
		nullableUUID(order.AssignedPartnerID), assignedAt,
		excluded, order.ExpiryBudget.Milliseconds(), order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("create order %s: already exists", order.ID)
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.queryRow(ctx, query, orderID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// FindAssignedBefore returns assigned orders whose deadline (assigned_at + budget) is at or before
// cutoff, oldest assignment first.
func (r *OrderRepository) FindAssignedBefore(ctx context.Context, cutoff time.Time) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + `
FROM orders
WHERE status = 'assigned'
  AND assigned_at + expiry_budget_ms * INTERVAL '1 millisecond' <= $1
ORDER BY assigned_at, id`

	rows, err := r.query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find assigned orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

// excludePrevious appends the partner being replaced to the exclusion set in the same write.
const excludePrevious = `
excluded_partner_ids = CASE
	WHEN assigned_partner_id IS NULL OR assigned_partner_id = ANY(excluded_partner_ids)
		THEN excluded_partner_ids
	ELSE array_append(excluded_partner_ids, assigned_partner_id)
END`

// casGuard matches the row only while it still holds the values the caller read.
const casGuard = `WHERE id = $1 AND status = $2 AND assigned_partner_id IS NOT DISTINCT FROM $3::uuid`

func (r *OrderRepository) CompareAndSetAssignment(ctx context.Context, orderID, expectedPartnerID string, expectedStatus domain.OrderStatus, newPartnerID string, newAssignedAt time.Time) error {
	stmt := `
UPDATE orders SET ` + excludePrevious + `,
	assigned_partner_id = $4::uuid,
	assigned_at = $5,
	status = 'assigned',
	updated_at = $5
` + casGuard

	tag, err := r.exec(ctx, stmt, orderID, expectedStatus, nullableUUID(expectedPartnerID), newPartnerID, newAssignedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("compare and set assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAssignmentConflict
	}
	return nil
}

func (r *OrderRepository) CompareAndSetExpired(ctx context.Context, orderID, expectedPartnerID string, expectedStatus domain.OrderStatus, at time.Time) error {
	stmt := `
UPDATE orders SET ` + excludePrevious + `,
	status = 'expired',
	updated_at = $4
` + casGuard

	tag, err := r.exec(ctx, stmt, orderID, expectedStatus, nullableUUID(expectedPartnerID), at)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("compare and set expired: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAssignmentConflict
	}
	return nil
}

func (r *OrderRepository) CompareAndSetStatus(ctx context.Context, orderID, expectedPartnerID string, expectedStatus, newStatus domain.OrderStatus, at time.Time) error {
	stmt := `UPDATE orders SET status = $4, updated_at = $5 ` + casGuard

	tag, err := r.exec(ctx, stmt, orderID, expectedStatus, nullableUUID(expectedPartnerID), newStatus, at)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("compare and set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAssignmentConflict
	}
	return nil
}
