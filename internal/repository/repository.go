package repository

import (
	"context"
	"database/sql"
	"time"

	"nest-data/internal/domain"
)

// Querier 由 *sql.DB 与 *sql.Tx 共同实现，Postgres 仓储在两者上都能工作
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ProfilesRepository NGO 档案
type ProfilesRepository interface {
	CreateProfile(ctx context.Context, p *domain.HomelessProfile) (int64, error)
	GetProfile(ctx context.Context, profileID int64) (*domain.HomelessProfile, error)
	ListProfiles(ctx context.Context, filters ProfileFilters) ([]*domain.HomelessProfile, error)
	// UpdateStatus 写入 status/current_shelter/current_job/status_updated_at
	UpdateStatus(ctx context.Context, p *domain.HomelessProfile) error
	UpdateHealthStatus(ctx context.Context, profileID int64, healthStatus string) error
}

// ProfileFilters 档案查询过滤器
type ProfileFilters struct {
	Status   string
	Priority string
	Search   string // name / alias 模糊匹配
	Limit    int
}

// SheltersRepository 收容所与床位计数
type SheltersRepository interface {
	CreateShelter(ctx context.Context, s *domain.Shelter) (int64, error)
	GetShelter(ctx context.Context, shelterID int64) (*domain.Shelter, error)
	ListShelters(ctx context.Context) ([]*domain.Shelter, error)
	// TakeBed 原子占用一个床位，返回剩余床位；没有空床返回 domain.ErrNoBedsAvailable
	TakeBed(ctx context.Context, shelterID int64) (int, error)
	// ReleaseBed 释放一个床位（不超过 capacity），返回是否实际释放
	ReleaseBed(ctx context.Context, shelterID int64) (bool, error)
}

// RequestsRepository 入住申请
type RequestsRepository interface {
	CreateRequest(ctx context.Context, r *domain.AssignmentRequest) (int64, error)
	GetRequest(ctx context.Context, requestID int64) (*domain.AssignmentRequest, error)
	ListPending(ctx context.Context, shelterID int64) ([]domain.PendingRequestView, error)
	ListAccepted(ctx context.Context) ([]domain.AcceptedRequestView, error)
	ListByProfile(ctx context.Context, profileID int64) ([]*domain.AssignmentRequest, error)
	// Resolve pending -> accepted/rejected（CAS）；已处理返回 domain.ErrInvalidState
	Resolve(ctx context.Context, res Resolution) error
}

// Resolution 申请处理结果
type Resolution struct {
	RequestID       int64
	ShelterID       int64
	Status          domain.RequestStatus
	ResponseBy      *int64
	RejectionReason string
	Notes           string
	At              time.Time
}

// JobsRepository 工作分配
type JobsRepository interface {
	CreateAllocation(ctx context.Context, a *domain.JobAllocation) (int64, error)
	GetAllocation(ctx context.Context, allocID int64) (*domain.JobAllocation, error)
	ListByProfile(ctx context.Context, profileID int64) ([]*domain.JobAllocation, error)
	// Confirm requested -> confirmed（CAS）
	Confirm(ctx context.Context, allocID int64, at time.Time) error
}

// ResidentsRepository 收容所住户
type ResidentsRepository interface {
	CreateResident(ctx context.Context, r *domain.ShelterResident) (int64, error)
	GetResident(ctx context.Context, shelterID, residentID int64) (*domain.ShelterResident, error)
	ListResidents(ctx context.Context, shelterID int64, status string) ([]*domain.ShelterResident, error)
	UpdateResident(ctx context.Context, r *domain.ShelterResident) error
	// MarkDischarged active -> discharged（CAS）
	MarkDischarged(ctx context.Context, shelterID, residentID int64, at time.Time, notes string) error
	CountActive(ctx context.Context, shelterID int64) (int, error)
	// HasActiveByProfile 档案是否已在任一收容所在住
	HasActiveByProfile(ctx context.Context, profileID int64) (bool, error)
}

// MedicalRepository 收容所侧医疗记录
type MedicalRepository interface {
	CreateRecord(ctx context.Context, rec *domain.ShelterMedicalRecord) (int64, error)
	GetRecord(ctx context.Context, recordID int64) (*domain.ShelterMedicalRecord, error)
	ListRecords(ctx context.Context, residentID int64) ([]*domain.ShelterMedicalRecord, error)
	MarkSynced(ctx context.Context, recordID int64, at time.Time) error
	// ListPendingSync 未同步、有关联档案、早于 before、失败次数 < maxFailures 的记录
	ListPendingSync(ctx context.Context, before time.Time, maxFailures, limit int) ([]domain.PendingSync, error)
	// NewerStatusSynced 该档案是否已有 record_date 更晚、已同步的 checkup/incident
	NewerStatusSynced(ctx context.Context, profileID int64, recordDate time.Time) (bool, error)
}

// NGOMedicalRepository NGO 侧医疗记录
type NGOMedicalRepository interface {
	CreateMedicalRecord(ctx context.Context, rec *domain.MedicalRecord) (int64, error)
	ListByProfile(ctx context.Context, profileID int64) ([]*domain.MedicalRecord, error)
}

// SyncLogsRepository 同步审计（只追加）
type SyncLogsRepository interface {
	Append(ctx context.Context, log *domain.DataSyncLog) (int64, error)
	ListRecentByShelter(ctx context.Context, shelterID int64, limit int) ([]domain.DataSyncLog, error)
}

// ChoicesRepository AI 推荐选择记录
type ChoicesRepository interface {
	CreateChoice(ctx context.Context, c *domain.RecommendationChoice) (int64, error)
	ListByProfile(ctx context.Context, profileID int64) ([]*domain.RecommendationChoice, error)
}

// Repos 一组绑定到同一连接（或事务）的仓储
type Repos struct {
	Profiles   ProfilesRepository
	Shelters   SheltersRepository
	Requests   RequestsRepository
	Jobs       JobsRepository
	Residents  ResidentsRepository
	Medical    MedicalRepository
	NGOMedical NGOMedicalRepository
	SyncLogs   SyncLogsRepository
	Choices    ChoicesRepository
}

// Store 仓储入口；WithinTx 内的写入要么全部提交，要么全部回滚
type Store interface {
	Repos() Repos
	WithinTx(ctx context.Context, fn func(Repos) error) error
}
