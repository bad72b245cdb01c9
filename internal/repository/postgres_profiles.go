package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"nest-data/internal/domain"
)

// PostgresProfilesRepository 档案 Repository 实现
type PostgresProfilesRepository struct {
	db Querier
}

// NewPostgresProfilesRepository 创建档案 Repository
func NewPostgresProfilesRepository(db Querier) *PostgresProfilesRepository {
	return &PostgresProfilesRepository{db: db}
}

var _ ProfilesRepository = (*PostgresProfilesRepository)(nil)

const profileColumns = `
	profile_id, name, COALESCE(alias, ''), age, COALESCE(gender, ''),
	COALESCE(health_status, ''), COALESCE(disabilities, ''), COALESCE(skills, ''),
	COALESCE(needs, ''), COALESCE(education, ''), geo_lat, geo_lng,
	priority, status, COALESCE(current_shelter, ''), COALESCE(current_job, ''),
	status_updated_at, registered_by, created_at`

func scanProfile(row rowScanner) (*domain.HomelessProfile, error) {
	var p domain.HomelessProfile
	var age, registeredBy sql.NullInt64
	var priority, status string
	err := row.Scan(
		&p.ProfileID, &p.Name, &p.Alias, &age, &p.Gender,
		&p.HealthStatus, &p.Disabilities, &p.Skills,
		&p.Needs, &p.Education, &p.GeoLat, &p.GeoLng,
		&priority, &status, &p.CurrentShelter, &p.CurrentJob,
		&p.StatusUpdatedAt, &registeredBy, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Age = intPtr(age)
	p.RegisteredBy = int64Ptr(registeredBy)
	p.Priority = domain.Priority(priority)
	p.Status = domain.ProfileStatus(status)
	return &p, nil
}

// CreateProfile 创建档案
func (r *PostgresProfilesRepository) CreateProfile(ctx context.Context, p *domain.HomelessProfile) (int64, error) {
	query := `
		INSERT INTO homeless_profiles (
			name, alias, age, gender, health_status, disabilities, skills, needs, education,
			geo_lat, geo_lng, priority, status, registered_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING profile_id, status_updated_at, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		p.Name, nullString(p.Alias), nullInt(p.Age), nullString(p.Gender),
		nullString(domain.TruncateHealthStatus(p.HealthStatus)), nullString(p.Disabilities),
		nullString(p.Skills), nullString(p.Needs), nullString(p.Education),
		p.GeoLat, p.GeoLng, string(p.Priority), string(p.Status), nullInt64(p.RegisteredBy),
	).Scan(&p.ProfileID, &p.StatusUpdatedAt, &p.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create profile: %w", err)
	}
	return p.ProfileID, nil
}

// GetProfile 根据 profile_id 获取档案
func (r *PostgresProfilesRepository) GetProfile(ctx context.Context, profileID int64) (*domain.HomelessProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM homeless_profiles WHERE profile_id = $1`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, profileID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %d: %w", profileID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// ListProfiles 查询档案列表（created_at 倒序）
func (r *PostgresProfilesRepository) ListProfiles(ctx context.Context, filters ProfileFilters) ([]*domain.HomelessProfile, error) {
	where := []string{"1=1"}
	args := []any{}
	argN := 1

	if filters.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argN))
		args = append(args, filters.Status)
		argN++
	}
	if filters.Priority != "" {
		where = append(where, fmt.Sprintf("priority = $%d", argN))
		args = append(args, filters.Priority)
		argN++
	}
	if filters.Search != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR alias ILIKE $%d)", argN, argN))
		args = append(args, "%"+filters.Search+"%")
		argN++
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s FROM homeless_profiles WHERE %s ORDER BY created_at DESC LIMIT $%d`,
		profileColumns, strings.Join(where, " AND "), argN)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var out []*domain.HomelessProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateStatus 写入状态及冗余展示字段
func (r *PostgresProfilesRepository) UpdateStatus(ctx context.Context, p *domain.HomelessProfile) error {
	query := `
		UPDATE homeless_profiles
		SET status = $2, current_shelter = $3, current_job = $4, status_updated_at = $5
		WHERE profile_id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		p.ProfileID, string(p.Status), nullString(p.CurrentShelter), nullString(p.CurrentJob), p.StatusUpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update profile status: %w", err)
	}
	return expectOneRow(result, fmt.Sprintf("profile %d", p.ProfileID))
}

// UpdateHealthStatus 覆盖 health_status（截断到 255）
func (r *PostgresProfilesRepository) UpdateHealthStatus(ctx context.Context, profileID int64, healthStatus string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE homeless_profiles SET health_status = $2 WHERE profile_id = $1`,
		profileID, domain.TruncateHealthStatus(healthStatus))
	if err != nil {
		return fmt.Errorf("failed to update health status: %w", err)
	}
	return expectOneRow(result, fmt.Sprintf("profile %d", profileID))
}

func expectOneRow(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}
