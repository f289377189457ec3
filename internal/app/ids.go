package app

import (
	"github.com/dakshkarigar/marketplace-api/internal/domain"
	"github.com/google/uuid"
)

func newID() string {
	return uuid.NewString()
}

// validateID rejects identifiers that are not UUIDs before they reach the store.
func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrInvalidID
	}
	return nil
}
