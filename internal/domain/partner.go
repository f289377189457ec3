package domain

import "time"

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationDeclined VerificationStatus = "declined"
)

// Criteria describes what an order requires from a partner.
// An empty Location matches partners anywhere.
type Criteria struct {
	Category string
	Location string
}

// Partner is a service provider that can be assigned orders.
type Partner struct {
	ID           string
	Name         string
	Category     string
	Location     string
	Available    bool
	Verification VerificationStatus
	LastActiveAt time.Time
	CreatedAt    time.Time
}

// Matches reports whether the partner satisfies the category, location, availability
// and verification requirements. Exclusion history is checked separately.
func (p Partner) Matches(c Criteria) bool {
	if !p.Available || p.Verification != VerificationVerified {
		return false
	}
	if p.Category != c.Category {
		return false
	}
	return c.Location == "" || p.Location == c.Location
}

// PartnerDocument is the metadata of an identity/skill document uploaded by a partner.
type PartnerDocument struct {
	ID          string
	PartnerID   string
	PartnerName string
	Kind        string
	URL         string
	Status      VerificationStatus
	UploadedAt  time.Time
	ReviewedAt  *time.Time
}
