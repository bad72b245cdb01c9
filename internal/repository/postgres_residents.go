package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nest-data/internal/domain"
)

// PostgresResidentsRepository 收容所住户 Repository 实现
type PostgresResidentsRepository struct {
	db Querier
}

// NewPostgresResidentsRepository 创建住户 Repository
func NewPostgresResidentsRepository(db Querier) *PostgresResidentsRepository {
	return &PostgresResidentsRepository{db: db}
}

var _ ResidentsRepository = (*PostgresResidentsRepository)(nil)

const residentColumns = `
	resident_id, shelter_id, ngo_profile_id, name, age, COALESCE(gender, ''),
	COALESCE(health_status, ''), COALESCE(disabilities, ''), COALESCE(skills, ''),
	COALESCE(bed_number, ''), COALESCE(room_number, ''), admission_date, discharge_date,
	status, source, COALESCE(emergency_contact, ''), COALESCE(emergency_phone, ''), COALESCE(notes, '')`

func scanResident(row rowScanner) (*domain.ShelterResident, error) {
	var res domain.ShelterResident
	var profileID, age sql.NullInt64
	var dischargeDate sql.NullTime
	var status, source string
	err := row.Scan(
		&res.ResidentID, &res.ShelterID, &profileID, &res.Name, &age, &res.Gender,
		&res.HealthStatus, &res.Disabilities, &res.Skills,
		&res.BedNumber, &res.RoomNumber, &res.AdmissionDate, &dischargeDate,
		&status, &source, &res.EmergencyContact, &res.EmergencyPhone, &res.Notes,
	)
	if err != nil {
		return nil, err
	}
	res.NGOProfileID = int64Ptr(profileID)
	res.Age = intPtr(age)
	res.DischargeDate = timePtr(dischargeDate)
	res.Status = domain.ResidentStatus(status)
	res.Source = domain.ResidentSource(source)
	return &res, nil
}

// CreateResident 创建住户
func (r *PostgresResidentsRepository) CreateResident(ctx context.Context, res *domain.ShelterResident) (int64, error) {
	query := `
		INSERT INTO shelter_residents (
			shelter_id, ngo_profile_id, name, age, gender, health_status, disabilities, skills,
			bed_number, room_number, admission_date, status, source,
			emergency_contact, emergency_phone, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING resident_id
	`
	err := r.db.QueryRowContext(ctx, query,
		res.ShelterID, nullInt64(res.NGOProfileID), res.Name, nullInt(res.Age), nullString(res.Gender),
		nullString(res.HealthStatus), nullString(res.Disabilities), nullString(res.Skills),
		nullString(res.BedNumber), nullString(res.RoomNumber), res.AdmissionDate,
		string(res.Status), string(res.Source),
		nullString(res.EmergencyContact), nullString(res.EmergencyPhone), nullString(res.Notes),
	).Scan(&res.ResidentID)
	if err != nil {
		return 0, fmt.Errorf("failed to create resident: %w", err)
	}
	return res.ResidentID, nil
}

// GetResident 获取收容所内的住户；不属于该收容所视为不存在
func (r *PostgresResidentsRepository) GetResident(ctx context.Context, shelterID, residentID int64) (*domain.ShelterResident, error) {
	res, err := scanResident(r.db.QueryRowContext(ctx,
		`SELECT `+residentColumns+` FROM shelter_residents WHERE resident_id = $1 AND shelter_id = $2`,
		residentID, shelterID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("resident %d: %w", residentID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get resident: %w", err)
	}
	return res, nil
}

// ListResidents 收容所住户（admission_date 倒序），status 为空表示全部
func (r *PostgresResidentsRepository) ListResidents(ctx context.Context, shelterID int64, status string) ([]*domain.ShelterResident, error) {
	query := `SELECT ` + residentColumns + ` FROM shelter_residents WHERE shelter_id = $1`
	args := []any{shelterID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY admission_date DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list residents: %w", err)
	}
	defer rows.Close()

	var out []*domain.ShelterResident
	for rows.Next() {
		res, err := scanResident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resident: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// UpdateResident 更新可编辑字段
func (r *PostgresResidentsRepository) UpdateResident(ctx context.Context, res *domain.ShelterResident) error {
	query := `
		UPDATE shelter_residents
		SET name = $3, age = $4, gender = $5, health_status = $6, disabilities = $7, skills = $8,
			bed_number = $9, room_number = $10, status = $11, discharge_date = $12,
			emergency_contact = $13, emergency_phone = $14, notes = $15
		WHERE resident_id = $1 AND shelter_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, res.ResidentID, res.ShelterID,
		res.Name, nullInt(res.Age), nullString(res.Gender), nullString(res.HealthStatus),
		nullString(res.Disabilities), nullString(res.Skills),
		nullString(res.BedNumber), nullString(res.RoomNumber), string(res.Status), nullTime(res.DischargeDate),
		nullString(res.EmergencyContact), nullString(res.EmergencyPhone), nullString(res.Notes))
	if err != nil {
		return fmt.Errorf("failed to update resident: %w", err)
	}
	return expectOneRow(result, fmt.Sprintf("resident %d", res.ResidentID))
}

// MarkDischarged 只在 status='active' 时更新
func (r *PostgresResidentsRepository) MarkDischarged(ctx context.Context, shelterID, residentID int64, at time.Time, notes string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE shelter_residents SET status = 'discharged', discharge_date = $3, notes = $4
		WHERE resident_id = $1 AND shelter_id = $2 AND status = 'active'
	`, residentID, shelterID, at, nullString(notes))
	if err != nil {
		return fmt.Errorf("failed to discharge resident: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("resident %d is not active: %w", residentID, domain.ErrInvalidState)
	}
	return nil
}

// CountActive 在住人数
func (r *PostgresResidentsRepository) CountActive(ctx context.Context, shelterID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM shelter_residents WHERE shelter_id = $1 AND status = 'active'`, shelterID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count residents: %w", err)
	}
	return n, nil
}

// HasActiveByProfile 档案是否有 active 住户记录
func (r *PostgresResidentsRepository) HasActiveByProfile(ctx context.Context, profileID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM shelter_residents WHERE ngo_profile_id = $1 AND status = 'active')`,
		profileID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check active resident: %w", err)
	}
	return exists, nil
}
