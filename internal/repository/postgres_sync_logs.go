package repository

import (
	"context"
	"database/sql"
	"fmt"

	"nest-data/internal/domain"
)

// PostgresSyncLogsRepository 同步审计 Repository 实现（只追加）
type PostgresSyncLogsRepository struct {
	db Querier
}

// NewPostgresSyncLogsRepository 创建同步审计 Repository
func NewPostgresSyncLogsRepository(db Querier) *PostgresSyncLogsRepository {
	return &PostgresSyncLogsRepository{db: db}
}

var _ SyncLogsRepository = (*PostgresSyncLogsRepository)(nil)

// Append 追加一条同步日志
func (r *PostgresSyncLogsRepository) Append(ctx context.Context, l *domain.DataSyncLog) (int64, error) {
	var fields any
	if len(l.FieldsSynced) > 0 {
		fields = string(l.FieldsSynced)
	}
	query := `
		INSERT INTO data_sync_logs (
			profile_id, shelter_id, record_id, sync_type, direction, fields_synced,
			synced_by, success, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING sync_id
	`
	err := r.db.QueryRowContext(ctx, query,
		nullInt64(l.ProfileID), l.ShelterID, nullInt64(l.RecordID), string(l.SyncType), string(l.Direction),
		fields, nullInt64(l.SyncedBy), l.Success, nullString(l.ErrorMessage), l.CreatedAt,
	).Scan(&l.SyncID)
	if err != nil {
		return 0, fmt.Errorf("failed to append sync log: %w", err)
	}
	return l.SyncID, nil
}

// ListRecentByShelter 收容所最近的同步日志（created_at 倒序）
func (r *PostgresSyncLogsRepository) ListRecentByShelter(ctx context.Context, shelterID int64, limit int) ([]domain.DataSyncLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sync_id, profile_id, shelter_id, record_id, sync_type, direction,
			COALESCE(fields_synced::text, ''), synced_by, success, COALESCE(error_message, ''), created_at
		FROM data_sync_logs
		WHERE shelter_id = $1
		ORDER BY created_at DESC, sync_id DESC
		LIMIT $2
	`, shelterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync logs: %w", err)
	}
	defer rows.Close()

	var out []domain.DataSyncLog
	for rows.Next() {
		var l domain.DataSyncLog
		var profileID, recordID, syncedBy sql.NullInt64
		var syncType, direction, fields string
		if err := rows.Scan(&l.SyncID, &profileID, &l.ShelterID, &recordID, &syncType, &direction,
			&fields, &syncedBy, &l.Success, &l.ErrorMessage, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync log: %w", err)
		}
		l.ProfileID = int64Ptr(profileID)
		l.RecordID = int64Ptr(recordID)
		l.SyncedBy = int64Ptr(syncedBy)
		l.SyncType = domain.SyncType(syncType)
		l.Direction = domain.SyncDirection(direction)
		if fields != "" {
			l.FieldsSynced = []byte(fields)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
