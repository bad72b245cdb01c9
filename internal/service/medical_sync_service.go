package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nest-data/internal/domain"
	"nest-data/internal/repository"

	"go.uber.org/zap"
)

// SyncStatusWindow 同步状态统计的日志条数
const SyncStatusWindow = 50

// MedicalSyncService 收容所医疗记录及其到 NGO 档案的同步
type MedicalSyncService interface {
	AddMedicalRecord(ctx context.Context, req AddMedicalRecordRequest) (*AddMedicalRecordResult, error)
	ListMedicalRecords(ctx context.Context, shelterID, residentID int64) ([]*domain.ShelterMedicalRecord, error)
	SyncStatus(ctx context.Context, shelterID int64) (*domain.SyncStatusReport, error)
	RetryFailed(ctx context.Context) (*RetryReport, error)
}

// AddMedicalRecordRequest 新增医疗记录
type AddMedicalRecordRequest struct {
	ShelterID    int64      `json:"-"`
	ResidentID   int64      `json:"-"`
	RecordedBy   *int64     `json:"-"`
	RecordType   string     `json:"record_type"`
	Description  string     `json:"description"`
	Medications  string     `json:"medications"`
	DoctorName   string     `json:"doctor_name"`
	RecordDate   *time.Time `json:"record_date"`
	FollowUpDate *time.Time `json:"follow_up_date"`
	SyncToNGO    *bool      `json:"sync_to_ngo"` // 默认 true
}

// AddMedicalRecordResult 记录总是写入；同步失败不影响返回
type AddMedicalRecordResult struct {
	Record    *domain.ShelterMedicalRecord `json:"record"`
	Synced    bool                         `json:"synced"`
	SyncError string                       `json:"sync_error,omitempty"`
}

// RetryReport 一次重试的结果
type RetryReport struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// SyncOptions 重试参数
type SyncOptions struct {
	MaxAttempts int
	Grace       time.Duration
	BatchSize   int
}

type medicalSyncService struct {
	store     repository.Store
	publisher EventPublisher
	metrics   *Metrics
	opts      SyncOptions
	logger    *zap.Logger
	now       func() time.Time
}

// NewMedicalSyncService 创建 MedicalSyncService 实例
func NewMedicalSyncService(store repository.Store, publisher EventPublisher, metrics *Metrics, opts SyncOptions, logger *zap.Logger) MedicalSyncService {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	return &medicalSyncService{
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		opts:      opts,
		logger:    logger,
		now:       nowUTC,
	}
}

func (s *medicalSyncService) AddMedicalRecord(ctx context.Context, req AddMedicalRecordRequest) (*AddMedicalRecordResult, error) {
	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		return nil, invalidInput("description is required")
	}
	recordType := domain.MedicalRecordType(req.RecordType)
	if req.RecordType == "" {
		recordType = domain.RecordNote
	}
	if !recordType.Valid() {
		return nil, invalidInput("invalid record_type %q", req.RecordType)
	}

	repos := s.store.Repos()
	resident, err := repos.Residents.GetResident(ctx, req.ShelterID, req.ResidentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	recordDate := now
	if req.RecordDate != nil {
		recordDate = req.RecordDate.UTC()
	}
	rec := &domain.ShelterMedicalRecord{
		ResidentID:   resident.ResidentID,
		RecordDate:   recordDate,
		RecordType:   recordType,
		Description:  req.Description,
		Medications:  req.Medications,
		DoctorName:   req.DoctorName,
		FollowUpDate: req.FollowUpDate,
		RecordedBy:   req.RecordedBy,
		SyncToNGO:    req.SyncToNGO == nil || *req.SyncToNGO,
	}
	// 记录本身独立写入，同步失败不回滚
	if _, err := repos.Medical.CreateRecord(ctx, rec); err != nil {
		return nil, err
	}
	result := &AddMedicalRecordResult{Record: rec}

	if !rec.SyncToNGO || resident.NGOProfileID == nil {
		return result, nil
	}

	syncErr := s.syncRecord(ctx, domain.PendingSync{
		Record:       *rec,
		ShelterID:    req.ShelterID,
		NGOProfileID: *resident.NGOProfileID,
	}, req.RecordedBy)
	if syncErr != nil {
		result.SyncError = syncErr.Error()
		return result, nil
	}
	result.Synced = true
	synced := s.now()
	rec.SyncedAt = &synced
	return result, nil
}

// syncRecord 事务内镜像到 NGO：医疗记录、health_status、synced_at、成功日志。
// 任何失败（包括收容所查询）都在事务外追加失败日志。
func (s *medicalSyncService) syncRecord(ctx context.Context, p domain.PendingSync, by *int64) error {
	rec := p.Record
	profileID := p.NGOProfileID
	recordID := rec.RecordID

	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		if p.ShelterName == "" {
			shelter, err := r.Shelters.GetShelter(ctx, p.ShelterID)
			if err != nil {
				return err
			}
			p.ShelterName = shelter.Name
		}
		if _, err := r.Profiles.GetProfile(ctx, profileID); err != nil {
			return err
		}
		now := s.now()
		if _, err := r.NGOMedical.CreateMedicalRecord(ctx, &domain.MedicalRecord{
			ProfileID:    profileID,
			RecordType:   rec.RecordType,
			Description:  fmt.Sprintf("[From %s] %s", p.ShelterName, rec.Description),
			Medications:  rec.Medications,
			DoctorName:   rec.DoctorName,
			FollowUpDate: rec.FollowUpDate,
			CreatedAt:    now,
		}); err != nil {
			return err
		}
		if rec.RecordType.OverwritesHealthStatus() {
			// 重放旧记录时不覆盖更新的 health_status
			newer, err := r.Medical.NewerStatusSynced(ctx, profileID, rec.RecordDate)
			if err != nil {
				return err
			}
			if !newer {
				if err := r.Profiles.UpdateHealthStatus(ctx, profileID, domain.TruncateHealthStatus(rec.Description)); err != nil {
					return err
				}
			}
		}
		if err := r.Medical.MarkSynced(ctx, recordID, now); err != nil {
			return err
		}
		_, err := r.SyncLogs.Append(ctx, &domain.DataSyncLog{
			ProfileID: &profileID,
			ShelterID: p.ShelterID,
			RecordID:  &recordID,
			SyncType:  domain.SyncMedical,
			Direction: domain.ShelterToNGO,
			FieldsSynced: mustJSON(map[string]any{
				"record_type": rec.RecordType,
				"description": rec.Description,
				"medications": rec.Medications,
			}),
			SyncedBy:  by,
			Success:   true,
			CreatedAt: now,
		})
		return err
	})
	if err == nil {
		s.metrics.SyncAttempt(true)
		s.logger.Info("Medical record synced to NGO profile",
			zap.Int64("record_id", recordID),
			zap.Int64("profile_id", profileID),
		)
		return nil
	}

	s.metrics.SyncAttempt(false)
	s.logger.Warn("Medical record sync failed",
		zap.Int64("record_id", recordID),
		zap.Int64("profile_id", profileID),
		zap.Int64("shelter_id", p.ShelterID),
		zap.Int("previous_failures", p.Failures),
		zap.Error(err),
	)
	if _, logErr := s.store.Repos().SyncLogs.Append(ctx, &domain.DataSyncLog{
		ProfileID:    &profileID,
		ShelterID:    p.ShelterID,
		RecordID:     &recordID,
		SyncType:     domain.SyncMedical,
		Direction:    domain.ShelterToNGO,
		SyncedBy:     by,
		Success:      false,
		ErrorMessage: err.Error(),
		CreatedAt:    s.now(),
	}); logErr != nil {
		s.logger.Error("Failed to record sync failure", zap.Int64("record_id", recordID), zap.Error(logErr))
	}
	publish(ctx, s.publisher, s.logger, Event{
		Type: EventSyncFailed, ShelterID: p.ShelterID, ProfileID: &profileID, RecordID: recordID,
		Data: map[string]any{"error": err.Error(), "attempt": p.Failures + 1},
	})
	return err
}

func (s *medicalSyncService) ListMedicalRecords(ctx context.Context, shelterID, residentID int64) ([]*domain.ShelterMedicalRecord, error) {
	repos := s.store.Repos()
	if _, err := repos.Residents.GetResident(ctx, shelterID, residentID); err != nil {
		return nil, err
	}
	out, err := repos.Medical.ListRecords(ctx, residentID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*domain.ShelterMedicalRecord{}
	}
	return out, nil
}

func (s *medicalSyncService) SyncStatus(ctx context.Context, shelterID int64) (*domain.SyncStatusReport, error) {
	logs, err := s.store.Repos().SyncLogs.ListRecentByShelter(ctx, shelterID, SyncStatusWindow)
	if err != nil {
		return nil, err
	}
	rep := domain.BuildSyncStatus(logs)
	return &rep, nil
}

// RetryFailed 重新同步早于 grace、失败次数未达上限的未同步记录
func (s *medicalSyncService) RetryFailed(ctx context.Context) (*RetryReport, error) {
	before := s.now().Add(-s.opts.Grace)
	pending, err := s.store.Repos().Medical.ListPendingSync(ctx, before, s.opts.MaxAttempts, s.opts.BatchSize)
	if err != nil {
		return nil, err
	}

	rep := &RetryReport{}
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Attempted++
		if err := s.syncRecord(ctx, p, nil); err != nil {
			rep.Failed++
			continue
		}
		rep.Succeeded++
	}
	if rep.Attempted > 0 {
		s.logger.Info("Medical sync retry finished",
			zap.Int("attempted", rep.Attempted),
			zap.Int("succeeded", rep.Succeeded),
			zap.Int("failed", rep.Failed),
		)
	}
	return rep, nil
}
