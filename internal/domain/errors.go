package domain

import "errors"

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrPartnerNotFound      = errors.New("partner not found")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrInvalidID            = errors.New("invalid id")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidExpiryBudget  = errors.New("invalid expiry budget")

	// ErrAssignmentConflict means a compare-and-set lost against a concurrent write.
	ErrAssignmentConflict = errors.New("assignment conflict")
	ErrNoEligiblePartner  = errors.New("no eligible partner")
	ErrNotAssignedPartner = errors.New("partner is not assigned to this order")
	ErrAssignmentExpired  = errors.New("assignment expired")
	ErrOrderTerminal      = errors.New("order is in a terminal state")
	ErrInvalidTransition  = errors.New("invalid status transition")

	ErrStoreRead = errors.New("store read failure")
)
