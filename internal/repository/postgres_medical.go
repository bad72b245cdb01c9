package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nest-data/internal/domain"
)

// PostgresMedicalRepository 收容所侧医疗记录 Repository 实现
type PostgresMedicalRepository struct {
	db Querier
}

// NewPostgresMedicalRepository 创建收容所医疗记录 Repository
func NewPostgresMedicalRepository(db Querier) *PostgresMedicalRepository {
	return &PostgresMedicalRepository{db: db}
}

var _ MedicalRepository = (*PostgresMedicalRepository)(nil)

const shelterMedicalColumns = `
	smr.record_id, smr.resident_id, smr.record_date, smr.record_type, smr.description,
	COALESCE(smr.medications, ''), COALESCE(smr.doctor_name, ''), smr.follow_up_date,
	smr.recorded_by, smr.sync_to_ngo, smr.synced_at, smr.created_at`

func scanShelterMedical(row rowScanner, extra ...any) (*domain.ShelterMedicalRecord, error) {
	var rec domain.ShelterMedicalRecord
	var recordType string
	var followUp, syncedAt sql.NullTime
	var recordedBy sql.NullInt64
	dest := []any{
		&rec.RecordID, &rec.ResidentID, &rec.RecordDate, &recordType, &rec.Description,
		&rec.Medications, &rec.DoctorName, &followUp,
		&recordedBy, &rec.SyncToNGO, &syncedAt, &rec.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	rec.RecordType = domain.MedicalRecordType(recordType)
	rec.FollowUpDate = timePtr(followUp)
	rec.RecordedBy = int64Ptr(recordedBy)
	rec.SyncedAt = timePtr(syncedAt)
	return &rec, nil
}

// CreateRecord 写入医疗记录
func (r *PostgresMedicalRepository) CreateRecord(ctx context.Context, rec *domain.ShelterMedicalRecord) (int64, error) {
	query := `
		INSERT INTO shelter_medical_records (
			resident_id, record_date, record_type, description, medications, doctor_name,
			follow_up_date, recorded_by, sync_to_ngo
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING record_id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, rec.ResidentID, rec.RecordDate, string(rec.RecordType),
		rec.Description, nullString(rec.Medications), nullString(rec.DoctorName),
		nullTime(rec.FollowUpDate), nullInt64(rec.RecordedBy), rec.SyncToNGO,
	).Scan(&rec.RecordID, &rec.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create medical record: %w", err)
	}
	return rec.RecordID, nil
}

// GetRecord 根据 record_id 获取
func (r *PostgresMedicalRepository) GetRecord(ctx context.Context, recordID int64) (*domain.ShelterMedicalRecord, error) {
	rec, err := scanShelterMedical(r.db.QueryRowContext(ctx,
		`SELECT `+shelterMedicalColumns+` FROM shelter_medical_records smr WHERE smr.record_id = $1`, recordID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("medical record %d: %w", recordID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get medical record: %w", err)
	}
	return rec, nil
}

// ListRecords 住户医疗记录（record_date 倒序）
func (r *PostgresMedicalRepository) ListRecords(ctx context.Context, residentID int64) ([]*domain.ShelterMedicalRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+shelterMedicalColumns+` FROM shelter_medical_records smr
		WHERE smr.resident_id = $1 ORDER BY smr.record_date DESC`, residentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medical records: %w", err)
	}
	defer rows.Close()

	var out []*domain.ShelterMedicalRecord
	for rows.Next() {
		rec, err := scanShelterMedical(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan medical record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MarkSynced 只在尚未同步时写入 synced_at，重复同步返回 ErrInvalidState
func (r *PostgresMedicalRepository) MarkSynced(ctx context.Context, recordID int64, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE shelter_medical_records SET synced_at = $2 WHERE record_id = $1 AND synced_at IS NULL`,
		recordID, at)
	if err != nil {
		return fmt.Errorf("failed to mark medical record synced: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("medical record %d already synced: %w", recordID, domain.ErrInvalidState)
	}
	return nil
}

// ListPendingSync 需要重试的未同步记录（created_at 升序）
func (r *PostgresMedicalRepository) ListPendingSync(ctx context.Context, before time.Time, maxFailures, limit int) ([]domain.PendingSync, error) {
	query := `
		SELECT ` + shelterMedicalColumns + `, sr.shelter_id, s.name, sr.ngo_profile_id, f.failures
		FROM shelter_medical_records smr
		JOIN shelter_residents sr ON sr.resident_id = smr.resident_id
		JOIN shelters s ON s.shelter_id = sr.shelter_id
		CROSS JOIN LATERAL (
			SELECT COUNT(*) AS failures FROM data_sync_logs l
			WHERE l.record_id = smr.record_id AND NOT l.success
		) f
		WHERE smr.sync_to_ngo AND smr.synced_at IS NULL
			AND sr.ngo_profile_id IS NOT NULL
			AND smr.created_at < $1
			AND f.failures < $2
		ORDER BY smr.created_at
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, before, maxFailures, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending syncs: %w", err)
	}
	defer rows.Close()

	var out []domain.PendingSync
	for rows.Next() {
		var p domain.PendingSync
		rec, err := scanShelterMedical(rows, &p.ShelterID, &p.ShelterName, &p.NGOProfileID, &p.Failures)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending sync: %w", err)
		}
		p.Record = *rec
		out = append(out, p)
	}
	return out, rows.Err()
}

// NewerStatusSynced 是否已有更新的 checkup/incident 同步到该档案
func (r *PostgresMedicalRepository) NewerStatusSynced(ctx context.Context, profileID int64, recordDate time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM shelter_medical_records smr
			JOIN shelter_residents sr ON sr.resident_id = smr.resident_id
			WHERE sr.ngo_profile_id = $1
				AND smr.synced_at IS NOT NULL
				AND smr.record_type IN ('checkup', 'incident')
				AND smr.record_date > $2
		)
	`, profileID, recordDate).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check newer synced records: %w", err)
	}
	return exists, nil
}

// PostgresNGOMedicalRepository NGO 侧医疗记录 Repository 实现
type PostgresNGOMedicalRepository struct {
	db Querier
}

// NewPostgresNGOMedicalRepository 创建 NGO 医疗记录 Repository
func NewPostgresNGOMedicalRepository(db Querier) *PostgresNGOMedicalRepository {
	return &PostgresNGOMedicalRepository{db: db}
}

var _ NGOMedicalRepository = (*PostgresNGOMedicalRepository)(nil)

// CreateMedicalRecord 写入 NGO 医疗记录
func (r *PostgresNGOMedicalRepository) CreateMedicalRecord(ctx context.Context, rec *domain.MedicalRecord) (int64, error) {
	query := `
		INSERT INTO medical_records (profile_id, record_type, description, medications, doctor_name, follow_up_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING record_id
	`
	err := r.db.QueryRowContext(ctx, query, rec.ProfileID, string(rec.RecordType), rec.Description,
		nullString(rec.Medications), nullString(rec.DoctorName), nullTime(rec.FollowUpDate), rec.CreatedAt,
	).Scan(&rec.RecordID)
	if err != nil {
		return 0, fmt.Errorf("failed to create ngo medical record: %w", err)
	}
	return rec.RecordID, nil
}

// ListByProfile 档案的 NGO 医疗记录（created_at 倒序）
func (r *PostgresNGOMedicalRepository) ListByProfile(ctx context.Context, profileID int64) ([]*domain.MedicalRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT record_id, profile_id, record_type, description, COALESCE(medications, ''),
			COALESCE(doctor_name, ''), follow_up_date, created_at
		FROM medical_records WHERE profile_id = $1 ORDER BY created_at DESC
	`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ngo medical records: %w", err)
	}
	defer rows.Close()

	var out []*domain.MedicalRecord
	for rows.Next() {
		var rec domain.MedicalRecord
		var recordType string
		var followUp sql.NullTime
		if err := rows.Scan(&rec.RecordID, &rec.ProfileID, &recordType, &rec.Description,
			&rec.Medications, &rec.DoctorName, &followUp, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ngo medical record: %w", err)
		}
		rec.RecordType = domain.MedicalRecordType(recordType)
		rec.FollowUpDate = timePtr(followUp)
		out = append(out, &rec)
	}
	return out, rows.Err()
}
