package domain

import (
	"encoding/json"
	"time"
)

// SyncType 同步类型
type SyncType string

const (
	SyncInitial SyncType = "initial"
	SyncUpdate  SyncType = "update"
	SyncMedical SyncType = "medical"
	SyncStatus  SyncType = "status"
)

// SyncDirection 同步方向
type SyncDirection string

const (
	NGOToShelter SyncDirection = "ngo_to_shelter"
	ShelterToNGO SyncDirection = "shelter_to_ngo"
)

// DataSyncLog 跨系统同步审计（对应 data_sync_logs 表，只追加）
type DataSyncLog struct {
	SyncID       int64           `db:"sync_id" json:"sync_id"`
	ProfileID    *int64          `db:"profile_id" json:"profile_id,omitempty"`
	ShelterID    int64           `db:"shelter_id" json:"shelter_id"`
	RecordID     *int64          `db:"record_id" json:"record_id,omitempty"` // 来源医疗记录，用于重试
	SyncType     SyncType        `db:"sync_type" json:"sync_type"`
	Direction    SyncDirection   `db:"direction" json:"direction"`
	FieldsSynced json.RawMessage `db:"fields_synced" json:"fields_synced,omitempty"` // JSONB
	SyncedBy     *int64          `db:"synced_by" json:"synced_by,omitempty"`
	Success      bool            `db:"success" json:"success"`
	ErrorMessage string          `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// SyncStats 同步统计
type SyncStats struct {
	Total      int        `json:"total"`
	Successful int        `json:"successful"`
	Failed     int        `json:"failed"`
	LastSync   *time.Time `json:"last_sync"`
}

// SyncStatusReport 收容所同步状态
type SyncStatusReport struct {
	Stats       SyncStats     `json:"stats"`
	RecentSyncs []DataSyncLog `json:"recent_syncs"`
}

// BuildSyncStatus 基于最近的日志（按时间倒序）汇总
func BuildSyncStatus(logs []DataSyncLog) SyncStatusReport {
	rep := SyncStatusReport{RecentSyncs: logs}
	if rep.RecentSyncs == nil {
		rep.RecentSyncs = []DataSyncLog{}
	}
	for i := range logs {
		rep.Stats.Total++
		if logs[i].Success {
			rep.Stats.Successful++
		} else {
			rep.Stats.Failed++
		}
		if rep.Stats.LastSync == nil || logs[i].CreatedAt.After(*rep.Stats.LastSync) {
			t := logs[i].CreatedAt
			rep.Stats.LastSync = &t
		}
	}
	return rep
}
