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

type PartnerRepository struct {
	conn
}

func NewPartnerRepository(pool *pgxpool.Pool) *PartnerRepository {
	return &PartnerRepository{conn: conn{pool: pool}}
}

func (r *PartnerRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const partnerColumns = `id, name, category, location, available, verification_status, last_active_at, created_at`

func scanPartner(row pgx.Row) (domain.Partner, error) {
	var (
		p            domain.Partner
		verification string
		lastActive   *time.Time
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Location, &p.Available, &verification, &lastActive, &p.CreatedAt); err != nil {
		return domain.Partner{}, err
	}
	p.Verification = domain.VerificationStatus(verification)
	if lastActive != nil {
		p.LastActiveAt = lastActive.UTC()
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func (r *PartnerRepository) CreatePartner(ctx context.Context, p domain.Partner) error {
	const stmt = `
INSERT INTO partners (id, name, category, location, available, verification_status, last_active_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	var lastActive *time.Time
	if !p.LastActiveAt.IsZero() {
		lastActive = &p.LastActiveAt
	}
	_, err := r.exec(ctx, stmt, p.ID, p.Name, p.Category, p.Location, p.Available, p.Verification, lastActive, p.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("create partner %s: already exists", p.ID)
		}
		return fmt.Errorf("create partner: %w", err)
	}
	return nil
}

// FindEligible returns available, verified partners matching criteria that are not in excludeIDs,
// most recently active first. An empty criteria location matches every partner location.
func (r *PartnerRepository) FindEligible(ctx context.Context, criteria domain.Criteria, excludeIDs []string) ([]domain.Partner, error) {
	const query = `
SELECT ` + partnerColumns + `
FROM partners
WHERE category = $1
  AND ($2 = '' OR location = $2)
  AND available
  AND verification_status = 'verified'
  AND NOT (id::text = ANY($3::text[]))
ORDER BY last_active_at DESC NULLS LAST, id`

	if excludeIDs == nil {
		excludeIDs = []string{}
	}
	rows, err := r.query(ctx, query, criteria.Category, criteria.Location, excludeIDs)
	if err != nil {
		return nil, fmt.Errorf("find eligible partners: %w", err)
	}
	defer rows.Close()

	var partners []domain.Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan partner: %w", err)
		}
		partners = append(partners, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate partners: %w", err)
	}
	return partners, nil
}

func (r *PartnerRepository) GetPartnerForUpdate(ctx context.Context, partnerID string) (domain.Partner, error) {
	const query = `SELECT ` + partnerColumns + ` FROM partners WHERE id = $1 FOR UPDATE`

	p, err := scanPartner(r.queryRow(ctx, query, partnerID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Partner{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Partner{}, domain.ErrPartnerNotFound
		}
		return domain.Partner{}, fmt.Errorf("get partner: %w", err)
	}
	return p, nil
}

func (r *PartnerRepository) UpdatePartnerVerification(ctx context.Context, partnerID string, status domain.VerificationStatus) error {
	const stmt = `UPDATE partners SET verification_status = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, partnerID, status)
	if err != nil {
		return fmt.Errorf("update partner verification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPartnerNotFound
	}
	return nil
}

// UpdatePartnerAvailability also stamps last_active_at, which feeds partner ranking.
func (r *PartnerRepository) UpdatePartnerAvailability(ctx context.Context, partnerID string, available bool, at time.Time) error {
	const stmt = `UPDATE partners SET available = $2, last_active_at = $3 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, partnerID, available, at)
	if err != nil {
		return fmt.Errorf("update partner availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPartnerNotFound
	}
	return nil
}

const documentColumns = `d.id, d.partner_id, p.name, d.kind, d.url, d.status, d.uploaded_at, d.reviewed_at`

func scanDocument(row pgx.Row) (domain.PartnerDocument, error) {
	var (
		d      domain.PartnerDocument
		status string
	)
	if err := row.Scan(&d.ID, &d.PartnerID, &d.PartnerName, &d.Kind, &d.URL, &status, &d.UploadedAt, &d.ReviewedAt); err != nil {
		return domain.PartnerDocument{}, err
	}
	d.Status = domain.VerificationStatus(status)
	d.UploadedAt = d.UploadedAt.UTC()
	if d.ReviewedAt != nil {
		reviewed := d.ReviewedAt.UTC()
		d.ReviewedAt = &reviewed
	}
	return d, nil
}

func (r *PartnerRepository) CreateDocument(ctx context.Context, d domain.PartnerDocument) error {
	const stmt = `
INSERT INTO partner_documents (id, partner_id, kind, url, status, uploaded_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt, d.ID, d.PartnerID, d.Kind, d.URL, d.Status, d.UploadedAt)
	if err != nil {
		switch {
		case isInvalidUUID(err):
			return domain.ErrInvalidID
		case isForeignKeyViolation(err):
			return domain.ErrPartnerNotFound
		}
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// ListDocuments returns every uploaded document, pending ones first, newest upload first.
func (r *PartnerRepository) ListDocuments(ctx context.Context) ([]domain.PartnerDocument, error) {
	const query = `
SELECT ` + documentColumns + `
FROM partner_documents d
JOIN partners p ON p.id = d.partner_id
ORDER BY (d.status = 'pending') DESC, d.uploaded_at DESC, d.id`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.PartnerDocument{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (r *PartnerRepository) GetDocumentForUpdate(ctx context.Context, documentID string) (domain.PartnerDocument, error) {
	const query = `
SELECT ` + documentColumns + `
FROM partner_documents d
JOIN partners p ON p.id = d.partner_id
WHERE d.id = $1
FOR UPDATE OF d`

	d, err := scanDocument(r.queryRow(ctx, query, documentID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.PartnerDocument{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PartnerDocument{}, domain.ErrDocumentNotFound
		}
		return domain.PartnerDocument{}, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (r *PartnerRepository) UpdateDocumentStatus(ctx context.Context, documentID string, status domain.VerificationStatus, at time.Time) error {
	const stmt = `UPDATE partner_documents SET status = $2, reviewed_at = $3 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, documentID, status, at)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *PartnerRepository) DeclinePendingDocuments(ctx context.Context, partnerID string, at time.Time) error {
	const stmt = `
UPDATE partner_documents SET status = 'declined', reviewed_at = $2
WHERE partner_id = $1 AND status = 'pending'`

	if _, err := r.exec(ctx, stmt, partnerID, at); err != nil {
		return fmt.Errorf("decline pending documents: %w", err)
	}
	return nil
}
