package app

import (
	"context"
	"time"

	"github.com/dakshkarigar/marketplace-api/internal/clock"
	"github.com/dakshkarigar/marketplace-api/internal/domain"
)

type PartnerRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetPartnerForUpdate(ctx context.Context, partnerID string) (domain.Partner, error)
	GetDocumentForUpdate(ctx context.Context, documentID string) (domain.PartnerDocument, error)
	ListDocuments(ctx context.Context) ([]domain.PartnerDocument, error)
	UpdateDocumentStatus(ctx context.Context, documentID string, status domain.VerificationStatus, at time.Time) error
	DeclinePendingDocuments(ctx context.Context, partnerID string, at time.Time) error
	UpdatePartnerVerification(ctx context.Context, partnerID string, status domain.VerificationStatus) error
	UpdatePartnerAvailability(ctx context.Context, partnerID string, available bool, at time.Time) error
}

// PartnerService covers partner onboarding moderation and availability.
type PartnerService struct {
	repo  PartnerRepository
	clock clock.Clock
}

func NewPartnerService(repo PartnerRepository, clk clock.Clock) *PartnerService {
	return &PartnerService{
		repo:  repo,
		clock: clk,
	}
}

func (s *PartnerService) ListPartnerDocuments(ctx context.Context) ([]domain.PartnerDocument, error) {
	return s.repo.ListDocuments(ctx)
}

// VerifyDocument approves a document and, with it, the partner that uploaded it.
func (s *PartnerService) VerifyDocument(ctx context.Context, documentID string) (domain.PartnerDocument, error) {
	if err := validateID(documentID); err != nil {
		return domain.PartnerDocument{}, err
	}

	now := s.clock.Now()
	var result domain.PartnerDocument

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		doc, err := s.repo.GetDocumentForUpdate(txCtx, documentID)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateDocumentStatus(txCtx, doc.ID, domain.VerificationVerified, now); err != nil {
			return err
		}
		if err := s.repo.UpdatePartnerVerification(txCtx, doc.PartnerID, domain.VerificationVerified); err != nil {
			return err
		}

		doc.Status = domain.VerificationVerified
		doc.ReviewedAt = &now
		result = doc
		return nil
	})
	if err != nil {
		return domain.PartnerDocument{}, err
	}
	return result, nil
}

// DeclinePartner rejects the partner: it stops being eligible and its pending documents are declined.
// Orders already assigned to the partner are left to expire and get reassigned.
func (s *PartnerService) DeclinePartner(ctx context.Context, partnerID string) (domain.Partner, error) {
	if err := validateID(partnerID); err != nil {
		return domain.Partner{}, err
	}

	now := s.clock.Now()
	var result domain.Partner

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		partner, err := s.repo.GetPartnerForUpdate(txCtx, partnerID)
		if err != nil {
			return err
		}
		if err := s.repo.UpdatePartnerVerification(txCtx, partner.ID, domain.VerificationDeclined); err != nil {
			return err
		}
		if err := s.repo.UpdatePartnerAvailability(txCtx, partner.ID, false, now); err != nil {
			return err
		}
		if err := s.repo.DeclinePendingDocuments(txCtx, partner.ID, now); err != nil {
			return err
		}

		partner.Verification = domain.VerificationDeclined
		partner.Available = false
		partner.LastActiveAt = now
		result = partner
		return nil
	})
	if err != nil {
		return domain.Partner{}, err
	}
	return result, nil
}

// SetAvailability toggles whether the partner accepts new orders and records the activity.
func (s *PartnerService) SetAvailability(ctx context.Context, partnerID string, available bool) (domain.Partner, error) {
	if err := validateID(partnerID); err != nil {
		return domain.Partner{}, err
	}

	now := s.clock.Now()
	var result domain.Partner

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		partner, err := s.repo.GetPartnerForUpdate(txCtx, partnerID)
		if err != nil {
			return err
		}
		if available && partner.Verification == domain.VerificationDeclined {
			return domain.ErrInvalidTransition
		}
		if err := s.repo.UpdatePartnerAvailability(txCtx, partner.ID, available, now); err != nil {
			return err
		}

		partner.Available = available
		partner.LastActiveAt = now
		result = partner
		return nil
	})
	if err != nil {
		return domain.Partner{}, err
	}
	return result, nil
}
