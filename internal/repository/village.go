package repository

import (
	"context"

	"dispatch/internal/domain"
)

// VillageRepository defines read access to the village reference table.
type VillageRepository interface {
	// GetAll retrieves every village. The table is small and read-only to
	// this core; callers load it once at startup.
	GetAll(ctx context.Context) ([]*domain.Village, error)
}
