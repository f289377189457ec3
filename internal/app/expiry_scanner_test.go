package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dakshkarigar/marketplace-api/internal/domain"
)

type staticFinder struct {
	orders []domain.Order
	err    error
	cutoff time.Time
}

func (f *staticFinder) FindAssignedBefore(_ context.Context, cutoff time.Time) ([]domain.Order, error) {
	f.cutoff = cutoff
	return f.orders, f.err
}

func TestExpiryScanner_Scan(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	budget := 60 * time.Second

	assigned := func(id string, age time.Duration) domain.Order {
		return domain.Order{
			ID:                id,
			Status:            domain.OrderStatusAssigned,
			AssignedPartnerID: "partner-" + id,
			AssignedAt:        now.Add(-age),
			ExpiryBudget:      budget,
		}
	}

	t.Run("selects stale assignments only", func(t *testing.T) {
		finder := &staticFinder{orders: []domain.Order{
			assigned("o1", 61*time.Second),
			assigned("o3", 10*time.Second),
		}}
		got, err := NewExpiryScanner(finder).Scan(context.Background(), now)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 1 || got[0].ID != "o1" {
			t.Fatalf("expected only o1, got %+v", got)
		}
		if !finder.cutoff.Equal(now) {
			t.Fatalf("expected cutoff %v, got %v", now, finder.cutoff)
		}
	})

	t.Run("budget boundary is inclusive", func(t *testing.T) {
		finder := &staticFinder{orders: []domain.Order{assigned("edge", budget)}}
		got, err := NewExpiryScanner(finder).Scan(context.Background(), now)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected order at exactly the budget to be selected, got %d", len(got))
		}
	})

	t.Run("ignores non-assigned and duplicate rows", func(t *testing.T) {
		confirmed := assigned("o2", 5*time.Minute)
		confirmed.Status = domain.OrderStatusInProgress
		dup := assigned("o1", 2*time.Minute)

		finder := &staticFinder{orders: []domain.Order{dup, confirmed, dup}}
		got, err := NewExpiryScanner(finder).Scan(context.Background(), now)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 1 || got[0].ID != "o1" {
			t.Fatalf("expected single o1, got %+v", got)
		}
	})

	t.Run("per-order budgets", func(t *testing.T) {
		short := assigned("short", 20*time.Second)
		short.ExpiryBudget = 15 * time.Second
		long := assigned("long", 20*time.Second)
		long.ExpiryBudget = 5 * time.Minute

		got, err := NewExpiryScanner(&staticFinder{orders: []domain.Order{short, long}}).Scan(context.Background(), now)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 1 || got[0].ID != "short" {
			t.Fatalf("expected only short, got %+v", got)
		}
	})

	t.Run("store failure is a read failure", func(t *testing.T) {
		dbErr := errors.New("connection refused")
		_, err := NewExpiryScanner(&staticFinder{err: dbErr}).Scan(context.Background(), now)
		if !errors.Is(err, domain.ErrStoreRead) {
			t.Fatalf("expected ErrStoreRead, got %v", err)
		}
		if !errors.Is(err, dbErr) {
			t.Fatalf("expected wrapped driver error, got %v", err)
		}
	})
}
