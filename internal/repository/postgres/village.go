package postgres

import (
	"context"
	"database/sql"

	"dispatch/internal/domain"
)

// VillageRepository is a PostgreSQL implementation of repository.VillageRepository.
type VillageRepository struct {
	q Querier
}

// NewVillageRepository creates a new PostgreSQL village repository.
func NewVillageRepository(db *sql.DB) *VillageRepository {
	return &VillageRepository{q: db}
}

// GetAll retrieves every village.
func (r *VillageRepository) GetAll(ctx context.Context) ([]*domain.Village, error) {
	query := `SELECT id, name, lat, lng FROM villages ORDER BY name`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var villages []*domain.Village
	for rows.Next() {
		var v domain.Village
		if err := rows.Scan(&v.ID, &v.Name, &v.Lat, &v.Lng); err != nil {
			return nil, err
		}
		villages = append(villages, &v)
	}
	return villages, rows.Err()
}
