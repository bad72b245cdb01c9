package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nest-data/internal/domain"
)

// PostgresRequestsRepository 入住申请 Repository 实现
type PostgresRequestsRepository struct {
	db Querier
}

// NewPostgresRequestsRepository 创建入住申请 Repository
func NewPostgresRequestsRepository(db Querier) *PostgresRequestsRepository {
	return &PostgresRequestsRepository{db: db}
}

var _ RequestsRepository = (*PostgresRequestsRepository)(nil)

const requestColumns = `
	ar.request_id, ar.profile_id, ar.shelter_id, ar.requested_by, ar.status,
	ar.request_date, ar.response_date, ar.response_by,
	COALESCE(ar.rejection_reason, ''), COALESCE(ar.notes, '')`

func scanRequest(row rowScanner, extra ...any) (*domain.AssignmentRequest, error) {
	var req domain.AssignmentRequest
	var requestedBy, responseBy sql.NullInt64
	var responseDate sql.NullTime
	var status string
	dest := []any{
		&req.RequestID, &req.ProfileID, &req.ShelterID, &requestedBy, &status,
		&req.RequestDate, &responseDate, &responseBy,
		&req.RejectionReason, &req.Notes,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	req.RequestedBy = int64Ptr(requestedBy)
	req.ResponseBy = int64Ptr(responseBy)
	req.ResponseDate = timePtr(responseDate)
	req.Status = domain.RequestStatus(status)
	return &req, nil
}

// CreateRequest 创建 pending 申请
func (r *PostgresRequestsRepository) CreateRequest(ctx context.Context, req *domain.AssignmentRequest) (int64, error) {
	query := `
		INSERT INTO assignment_requests (profile_id, shelter_id, requested_by, status, request_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING request_id
	`
	err := r.db.QueryRowContext(ctx, query, req.ProfileID, req.ShelterID, nullInt64(req.RequestedBy),
		string(req.Status), req.RequestDate, nullString(req.Notes)).Scan(&req.RequestID)
	if err != nil {
		return 0, fmt.Errorf("failed to create assignment request: %w", err)
	}
	return req.RequestID, nil
}

// GetRequest 根据 request_id 获取申请
func (r *PostgresRequestsRepository) GetRequest(ctx context.Context, requestID int64) (*domain.AssignmentRequest, error) {
	req, err := scanRequest(r.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM assignment_requests ar WHERE ar.request_id = $1`, requestID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("request %d: %w", requestID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get assignment request: %w", err)
	}
	return req, nil
}

// ListPending 收容所待处理申请（request_date 倒序）
func (r *PostgresRequestsRepository) ListPending(ctx context.Context, shelterID int64) ([]domain.PendingRequestView, error) {
	query := `
		SELECT ` + requestColumns + `,
			hp.name, hp.age, COALESCE(hp.gender, ''), COALESCE(hp.health_status, ''), hp.priority
		FROM assignment_requests ar
		JOIN homeless_profiles hp ON hp.profile_id = ar.profile_id
		WHERE ar.shelter_id = $1 AND ar.status = 'pending'
		ORDER BY ar.request_date DESC
	`
	rows, err := r.db.QueryContext(ctx, query, shelterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}
	defer rows.Close()

	var out []domain.PendingRequestView
	for rows.Next() {
		var v domain.PendingRequestView
		var age sql.NullInt64
		var priority string
		req, err := scanRequest(rows, &v.ProfileName, &age, &v.Gender, &v.HealthStatus, &priority)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending request: %w", err)
		}
		v.AssignmentRequest = *req
		v.ProfileAge = intPtr(age)
		v.Priority = domain.Priority(priority)
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListAccepted 已接受申请（response_date 倒序）
func (r *PostgresRequestsRepository) ListAccepted(ctx context.Context) ([]domain.AcceptedRequestView, error) {
	query := `
		SELECT ` + requestColumns + `,
			hp.name, hp.status, s.name, COALESCE(s.address, '')
		FROM assignment_requests ar
		JOIN homeless_profiles hp ON hp.profile_id = ar.profile_id
		JOIN shelters s ON s.shelter_id = ar.shelter_id
		WHERE ar.status = 'accepted'
		ORDER BY ar.response_date DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accepted requests: %w", err)
	}
	defer rows.Close()

	var out []domain.AcceptedRequestView
	for rows.Next() {
		var v domain.AcceptedRequestView
		var profileStatus string
		req, err := scanRequest(rows, &v.ProfileName, &profileStatus, &v.ShelterName, &v.ShelterAddress)
		if err != nil {
			return nil, fmt.Errorf("failed to scan accepted request: %w", err)
		}
		v.AssignmentRequest = *req
		v.ProfileStatus = domain.ProfileStatus(profileStatus)
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListByProfile 档案的所有申请（request_date 倒序）
func (r *PostgresRequestsRepository) ListByProfile(ctx context.Context, profileID int64) ([]*domain.AssignmentRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM assignment_requests ar WHERE ar.profile_id = $1 ORDER BY ar.request_date DESC`,
		profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list profile requests: %w", err)
	}
	defer rows.Close()

	var out []*domain.AssignmentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// Resolve 只在 status='pending' 时更新，保证申请最多被处理一次
func (r *PostgresRequestsRepository) Resolve(ctx context.Context, res Resolution) error {
	query := `
		UPDATE assignment_requests
		SET status = $3, response_date = $4, response_by = $5,
			rejection_reason = $6, notes = COALESCE($7, notes)
		WHERE request_id = $1 AND shelter_id = $2 AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, res.RequestID, res.ShelterID, string(res.Status), res.At,
		nullInt64(res.ResponseBy), nullString(res.RejectionReason), nullString(res.Notes))
	if err != nil {
		return fmt.Errorf("failed to resolve assignment request: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("request %d is not pending: %w", res.RequestID, domain.ErrInvalidState)
	}
	return nil
}
