package app

import (
	"context"
	"fmt"
	"time"

	"github.com/dakshkarigar/marketplace-api/internal/domain"
)

// ExpiredOrderFinder returns assigned orders whose assignment deadline is at or before cutoff.
type ExpiredOrderFinder interface {
	FindAssignedBefore(ctx context.Context, cutoff time.Time) ([]domain.Order, error)
}

// ExpiryScanner finds assigned orders that stayed unconfirmed past their expiry budget.
type ExpiryScanner struct {
	finder ExpiredOrderFinder
}

func NewExpiryScanner(finder ExpiredOrderFinder) *ExpiryScanner {
	return &ExpiryScanner{finder: finder}
}

// Scan returns every order with status assigned and now - AssignedAt >= ExpiryBudget.
// The caller samples now once; the whole scan is evaluated against it.
func (s *ExpiryScanner) Scan(ctx context.Context, now time.Time) ([]domain.Order, error) {
	candidates, err := s.finder.FindAssignedBefore(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreRead, err)
	}

	stale := make([]domain.Order, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, order := range candidates {
		if !order.AssignmentStale(now) {
			continue
		}
		if _, dup := seen[order.ID]; dup {
			continue
		}
		seen[order.ID] = struct{}{}
		stale = append(stale, order)
	}
	return stale, nil
}
