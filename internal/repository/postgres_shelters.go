package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nest-data/internal/domain"
)

// PostgresSheltersRepository 收容所 Repository 实现
type PostgresSheltersRepository struct {
	db Querier
}

// NewPostgresSheltersRepository 创建收容所 Repository
func NewPostgresSheltersRepository(db Querier) *PostgresSheltersRepository {
	return &PostgresSheltersRepository{db: db}
}

var _ SheltersRepository = (*PostgresSheltersRepository)(nil)

const shelterColumns = `shelter_id, name, COALESCE(address, ''), capacity, available_beds, geo_lat, geo_lng, COALESCE(amenities, '')`

func scanShelter(row rowScanner) (*domain.Shelter, error) {
	var s domain.Shelter
	if err := row.Scan(&s.ShelterID, &s.Name, &s.Address, &s.Capacity, &s.AvailableBeds,
		&s.GeoLat, &s.GeoLng, &s.Amenities); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateShelter 创建收容所
func (r *PostgresSheltersRepository) CreateShelter(ctx context.Context, s *domain.Shelter) (int64, error) {
	query := `
		INSERT INTO shelters (name, address, capacity, available_beds, geo_lat, geo_lng, amenities)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING shelter_id
	`
	err := r.db.QueryRowContext(ctx, query, s.Name, nullString(s.Address), s.Capacity, s.AvailableBeds,
		s.GeoLat, s.GeoLng, nullString(s.Amenities)).Scan(&s.ShelterID)
	if err != nil {
		return 0, fmt.Errorf("failed to create shelter: %w", err)
	}
	return s.ShelterID, nil
}

// GetShelter 根据 shelter_id 获取收容所
func (r *PostgresSheltersRepository) GetShelter(ctx context.Context, shelterID int64) (*domain.Shelter, error) {
	s, err := scanShelter(r.db.QueryRowContext(ctx,
		`SELECT `+shelterColumns+` FROM shelters WHERE shelter_id = $1`, shelterID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("shelter %d: %w", shelterID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get shelter: %w", err)
	}
	return s, nil
}

// ListShelters 所有收容所（按名称）
func (r *PostgresSheltersRepository) ListShelters(ctx context.Context) ([]*domain.Shelter, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+shelterColumns+` FROM shelters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list shelters: %w", err)
	}
	defer rows.Close()

	var out []*domain.Shelter
	for rows.Next() {
		s, err := scanShelter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shelter: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TakeBed 条件递减：available_beds > 0 才更新
func (r *PostgresSheltersRepository) TakeBed(ctx context.Context, shelterID int64) (int, error) {
	query := `
		UPDATE shelters SET available_beds = available_beds - 1
		WHERE shelter_id = $1 AND available_beds > 0
		RETURNING available_beds
	`
	var remaining int
	if err := r.db.QueryRowContext(ctx, query, shelterID).Scan(&remaining); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("shelter %d: %w", shelterID, domain.ErrNoBedsAvailable)
		}
		return 0, fmt.Errorf("failed to take bed: %w", err)
	}
	return remaining, nil
}

// ReleaseBed 条件递增：available_beds < capacity 才更新
func (r *PostgresSheltersRepository) ReleaseBed(ctx context.Context, shelterID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE shelters SET available_beds = available_beds + 1
		WHERE shelter_id = $1 AND available_beds < capacity
	`, shelterID)
	if err != nil {
		return false, fmt.Errorf("failed to release bed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}
