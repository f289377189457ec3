package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dakshkarigar/marketplace-api/internal/domain"
)

// PartnerDirectory returns partners matching criteria, minus excludeIDs, ranked by activity.
type PartnerDirectory interface {
	FindEligible(ctx context.Context, criteria domain.Criteria, excludeIDs []string) ([]domain.Partner, error)
}

// AssignmentPolicy picks the partner an order should be offered to next.
//
// Among eligible partners the most recently active one wins; partners with no recorded
// activity come last and equal activity times fall back to ascending partner ID.
type AssignmentPolicy struct {
	directory PartnerDirectory
}

func NewAssignmentPolicy(directory PartnerDirectory) *AssignmentPolicy {
	return &AssignmentPolicy{directory: directory}
}

// Select returns the chosen partner or domain.ErrNoEligiblePartner.
func (p *AssignmentPolicy) Select(ctx context.Context, order domain.Order, exclude []string) (domain.Partner, error) {
	criteria := order.Criteria()
	candidates, err := p.directory.FindEligible(ctx, criteria, exclude)
	if err != nil {
		return domain.Partner{}, fmt.Errorf("find eligible partners: %w", err)
	}

	partner, ok := ChoosePartner(criteria, candidates, exclude)
	if !ok {
		return domain.Partner{}, domain.ErrNoEligiblePartner
	}
	return partner, nil
}

// ChoosePartner filters candidates by criteria and exclusions and returns the first by rank.
func ChoosePartner(criteria domain.Criteria, candidates []domain.Partner, exclude []string) (domain.Partner, bool) {
	eligible := make([]domain.Partner, 0, len(candidates))
	for _, partner := range candidates {
		if !partner.Matches(criteria) || slices.Contains(exclude, partner.ID) {
			continue
		}
		eligible = append(eligible, partner)
	}
	if len(eligible) == 0 {
		return domain.Partner{}, false
	}
	RankPartners(eligible)
	return eligible[0], true
}

// RankPartners sorts partners in place into selection order.
func RankPartners(partners []domain.Partner) {
	slices.SortStableFunc(partners, comparePartners)
}

func comparePartners(a, b domain.Partner) int {
	switch {
	case a.LastActiveAt.Equal(b.LastActiveAt):
		return strings.Compare(a.ID, b.ID)
	case a.LastActiveAt.IsZero():
		return 1
	case b.LastActiveAt.IsZero():
		return -1
	case a.LastActiveAt.After(b.LastActiveAt):
		return -1
	default:
		return 1
	}
}
