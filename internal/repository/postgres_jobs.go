package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nest-data/internal/domain"
)

// PostgresJobsRepository 工作分配 Repository 实现
type PostgresJobsRepository struct {
	db Querier
}

// NewPostgresJobsRepository 创建工作分配 Repository
func NewPostgresJobsRepository(db Querier) *PostgresJobsRepository {
	return &PostgresJobsRepository{db: db}
}

var _ JobsRepository = (*PostgresJobsRepository)(nil)

const allocationColumns = `alloc_id, profile_id, job_id, resource_name, status, assigned_by, assigned_at, confirmed_at`

func scanAllocation(row rowScanner) (*domain.JobAllocation, error) {
	var a domain.JobAllocation
	var assignedBy sql.NullInt64
	var confirmedAt sql.NullTime
	var status string
	if err := row.Scan(&a.AllocID, &a.ProfileID, &a.JobID, &a.ResourceName, &status,
		&assignedBy, &a.AssignedAt, &confirmedAt); err != nil {
		return nil, err
	}
	a.Status = domain.AllocationStatus(status)
	a.AssignedBy = int64Ptr(assignedBy)
	a.ConfirmedAt = timePtr(confirmedAt)
	return &a, nil
}

// CreateAllocation 创建工作分配
func (r *PostgresJobsRepository) CreateAllocation(ctx context.Context, a *domain.JobAllocation) (int64, error) {
	query := `
		INSERT INTO job_allocations (profile_id, job_id, resource_name, status, assigned_by, assigned_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING alloc_id
	`
	err := r.db.QueryRowContext(ctx, query, a.ProfileID, a.JobID, a.ResourceName, string(a.Status),
		nullInt64(a.AssignedBy), a.AssignedAt).Scan(&a.AllocID)
	if err != nil {
		return 0, fmt.Errorf("failed to create job allocation: %w", err)
	}
	return a.AllocID, nil
}

// GetAllocation 根据 alloc_id 获取
func (r *PostgresJobsRepository) GetAllocation(ctx context.Context, allocID int64) (*domain.JobAllocation, error) {
	a, err := scanAllocation(r.db.QueryRowContext(ctx,
		`SELECT `+allocationColumns+` FROM job_allocations WHERE alloc_id = $1`, allocID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("allocation %d: %w", allocID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get job allocation: %w", err)
	}
	return a, nil
}

// ListByProfile 档案的工作分配（assigned_at 倒序）
func (r *PostgresJobsRepository) ListByProfile(ctx context.Context, profileID int64) ([]*domain.JobAllocation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+allocationColumns+` FROM job_allocations WHERE profile_id = $1 ORDER BY assigned_at DESC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list job allocations: %w", err)
	}
	defer rows.Close()

	var out []*domain.JobAllocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job allocation: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Confirm requested -> confirmed
func (r *PostgresJobsRepository) Confirm(ctx context.Context, allocID int64, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE job_allocations SET status = 'confirmed', confirmed_at = $2
		WHERE alloc_id = $1 AND status = 'requested'
	`, allocID, at)
	if err != nil {
		return fmt.Errorf("failed to confirm job allocation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("allocation %d is not requested: %w", allocID, domain.ErrInvalidState)
	}
	return nil
}
