package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"nest-data/internal/domain"
	"nest-data/internal/repository"
	"nest-data/internal/store"

	"go.uber.org/zap"
)

// BedStatsTTL 床位统计缓存时间
const BedStatsTTL = 30 * time.Second

// AdmissionService 入住/离开与住户管理
type AdmissionService interface {
	AdmitFromRequest(ctx context.Context, req AdmitRequest) (*AdmissionResult, error)
	AdmitWalkIn(ctx context.Context, req WalkInRequest) (*domain.ShelterResident, error)
	Discharge(ctx context.Context, req DischargeRequest) (*domain.ShelterResident, error)
	UpdateResident(ctx context.Context, req UpdateResidentRequest) (*domain.ShelterResident, error)
	ListResidents(ctx context.Context, shelterID int64, status string) ([]*domain.ShelterResident, error)
	GetResident(ctx context.Context, shelterID, residentID int64) (*ResidentDetail, error)
	BedStats(ctx context.Context, shelterID int64) (*domain.BedStats, error)
}

// AdmitRequest 接受入住申请
type AdmitRequest struct {
	ShelterID  int64  `json:"-"`
	RequestID  int64  `json:"-"`
	ResponseBy *int64 `json:"-"`
	BedNumber  string `json:"bed_number"`
	RoomNumber string `json:"room_number"`
	Notes      string `json:"notes"`
}

// AdmissionResult 入住结果
type AdmissionResult struct {
	Resident      *domain.ShelterResident   `json:"resident"`
	Request       *domain.AssignmentRequest `json:"request"`
	ProfileStatus domain.ProfileStatus      `json:"profile_status"`
	AvailableBeds int                       `json:"available_beds"`
}

// WalkInRequest 直接入住（无 NGO 档案）
type WalkInRequest struct {
	ShelterID        int64  `json:"-"`
	Name             string `json:"name"`
	Age              *int   `json:"age"`
	Gender           string `json:"gender"`
	HealthStatus     string `json:"health_status"`
	Disabilities     string `json:"disabilities"`
	Skills           string `json:"skills"`
	BedNumber        string `json:"bed_number"`
	RoomNumber       string `json:"room_number"`
	Source           string `json:"source"`
	EmergencyContact string `json:"emergency_contact"`
	EmergencyPhone   string `json:"emergency_phone"`
	Notes            string `json:"notes"`
}

// DischargeRequest 离开
type DischargeRequest struct {
	ShelterID  int64  `json:"-"`
	ResidentID int64
	Reason     string
	By         *int64
}

// UpdateResidentRequest 更新住户；nil 字段不修改
type UpdateResidentRequest struct {
	ShelterID        int64   `json:"-"`
	ResidentID       int64   `json:"-"`
	By               *int64  `json:"-"`
	Name             *string `json:"name"`
	Age              *int    `json:"age"`
	Gender           *string `json:"gender"`
	HealthStatus     *string `json:"health_status"`
	Disabilities     *string `json:"disabilities"`
	Skills           *string `json:"skills"`
	BedNumber        *string `json:"bed_number"`
	RoomNumber       *string `json:"room_number"`
	EmergencyContact *string `json:"emergency_contact"`
	EmergencyPhone   *string `json:"emergency_phone"`
	Notes            *string `json:"notes"`
	Status           *string `json:"status"` // 只接受 discharged，等同于 Discharge
}

// ResidentDetail 住户详情（含关联档案摘要）
type ResidentDetail struct {
	*domain.ShelterResident
	Profile *ProfileSummary `json:"profile,omitempty"`
}

// ProfileSummary 关联 NGO 档案摘要
type ProfileSummary struct {
	ProfileID      int64                `json:"profile_id"`
	Priority       domain.Priority      `json:"priority"`
	CurrentShelter string               `json:"current_shelter,omitempty"`
	CurrentJob     string               `json:"current_job,omitempty"`
	Status         domain.ProfileStatus `json:"status"`
}

type admissionService struct {
	store     repository.Store
	cache     store.KV
	publisher EventPublisher
	metrics   *Metrics
	logger    *zap.Logger
}

// NewAdmissionService 创建 AdmissionService 实例
func NewAdmissionService(st repository.Store, cache store.KV, publisher EventPublisher, metrics *Metrics, logger *zap.Logger) AdmissionService {
	if cache == nil {
		cache = store.NopKV{}
	}
	return &admissionService{store: st, cache: cache, publisher: publisher, metrics: metrics, logger: logger}
}

// AdmitFromRequest 在一个事务内：处理申请、占床位、创建住户、更新档案状态、写同步日志。
// 没有空床时整个事务回滚，申请保持 pending。
func (s *admissionService) AdmitFromRequest(ctx context.Context, req AdmitRequest) (*AdmissionResult, error) {
	now := nowUTC()
	var result AdmissionResult

	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		ar, err := r.Requests.GetRequest(ctx, req.RequestID)
		if err != nil {
			return err
		}
		if ar.ShelterID != req.ShelterID {
			return fmt.Errorf("request %d: %w", req.RequestID, domain.ErrNotFound)
		}
		// 一个档案同时最多一个 active 住户
		housed, err := r.Residents.HasActiveByProfile(ctx, ar.ProfileID)
		if err != nil {
			return err
		}
		if housed {
			return fmt.Errorf("profile %d already resides in a shelter: %w", ar.ProfileID, domain.ErrInvalidState)
		}
		if err := r.Requests.Resolve(ctx, repository.Resolution{
			RequestID:  ar.RequestID,
			ShelterID:  req.ShelterID,
			Status:     domain.RequestAccepted,
			ResponseBy: req.ResponseBy,
			Notes:      req.Notes,
			At:         now,
		}); err != nil {
			return err
		}

		remaining, err := r.Shelters.TakeBed(ctx, req.ShelterID)
		if err != nil {
			return err
		}
		shelter, err := r.Shelters.GetShelter(ctx, req.ShelterID)
		if err != nil {
			return err
		}
		profile, err := r.Profiles.GetProfile(ctx, ar.ProfileID)
		if err != nil {
			return err
		}

		next, err := domain.Transition(profile.Status, domain.EventShelterAssigned)
		if err != nil {
			return err
		}

		resident := &domain.ShelterResident{
			ShelterID:     req.ShelterID,
			NGOProfileID:  &profile.ProfileID,
			Name:          profile.Name,
			Age:           profile.Age,
			Gender:        profile.Gender,
			HealthStatus:  profile.HealthStatus,
			Disabilities:  profile.Disabilities,
			Skills:        profile.Skills,
			BedNumber:     req.BedNumber,
			RoomNumber:    req.RoomNumber,
			AdmissionDate: now,
			Status:        domain.ResidentActive,
			Source:        domain.SourceNGO,
			Notes:         req.Notes,
		}
		if _, err := r.Residents.CreateResident(ctx, resident); err != nil {
			return err
		}

		profile.Status = next
		profile.CurrentShelter = shelter.Name
		profile.StatusUpdatedAt = now
		if err := r.Profiles.UpdateStatus(ctx, profile); err != nil {
			return err
		}

		if _, err := r.SyncLogs.Append(ctx, &domain.DataSyncLog{
			ProfileID: &profile.ProfileID,
			ShelterID: req.ShelterID,
			SyncType:  domain.SyncInitial,
			Direction: domain.NGOToShelter,
			FieldsSynced: mustJSON(map[string]any{
				"name":          profile.Name,
				"age":           profile.Age,
				"gender":        profile.Gender,
				"health_status": profile.HealthStatus,
				"disabilities":  profile.Disabilities,
				"skills":        profile.Skills,
			}),
			SyncedBy:  req.ResponseBy,
			Success:   true,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		ar.Status = domain.RequestAccepted
		ar.ResponseDate = &now
		ar.ResponseBy = req.ResponseBy
		if req.Notes != "" {
			ar.Notes = req.Notes
		}
		result = AdmissionResult{
			Resident:      resident,
			Request:       ar,
			ProfileStatus: next,
			AvailableBeds: remaining,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNoBedsAvailable) {
			s.metrics.Resolved("no_beds")
			s.logger.Warn("Admission refused: shelter full",
				zap.Int64("shelter_id", req.ShelterID),
				zap.Int64("request_id", req.RequestID),
			)
		}
		return nil, err
	}

	s.metrics.Resolved("accepted")
	s.metrics.Admitted(string(domain.SourceNGO))
	s.invalidateBedStats(ctx, req.ShelterID)
	s.logger.Info("Request accepted, resident admitted",
		zap.Int64("shelter_id", req.ShelterID),
		zap.Int64("request_id", req.RequestID),
		zap.Int64("resident_id", result.Resident.ResidentID),
		zap.Int("available_beds", result.AvailableBeds),
	)
	publish(ctx, s.publisher, s.logger, Event{
		Type: EventRequestAccepted, ShelterID: req.ShelterID, ProfileID: result.Resident.NGOProfileID,
		RequestID: req.RequestID, ResidentID: result.Resident.ResidentID, At: now,
	})
	publish(ctx, s.publisher, s.logger, Event{
		Type: EventResidentAdmitted, ShelterID: req.ShelterID, ProfileID: result.Resident.NGOProfileID,
		ResidentID: result.Resident.ResidentID, At: now,
		Data: map[string]any{"source": domain.SourceNGO, "available_beds": result.AvailableBeds},
	})
	return &result, nil
}

func (s *admissionService) AdmitWalkIn(ctx context.Context, req WalkInRequest) (*domain.ShelterResident, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, invalidInput("name is required")
	}
	source := domain.ResidentSource(req.Source)
	if req.Source == "" {
		source = domain.SourceWalkIn
	}
	if source != domain.SourceWalkIn && source != domain.SourceReferral {
		return nil, invalidInput("source must be walk_in or referral")
	}

	now := nowUTC()
	resident := &domain.ShelterResident{
		ShelterID:        req.ShelterID,
		Name:             req.Name,
		Age:              req.Age,
		Gender:           req.Gender,
		HealthStatus:     req.HealthStatus,
		Disabilities:     req.Disabilities,
		Skills:           req.Skills,
		BedNumber:        req.BedNumber,
		RoomNumber:       req.RoomNumber,
		AdmissionDate:    now,
		Status:           domain.ResidentActive,
		Source:           source,
		EmergencyContact: req.EmergencyContact,
		EmergencyPhone:   req.EmergencyPhone,
		Notes:            req.Notes,
	}

	var remaining int
	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		if _, err := r.Shelters.GetShelter(ctx, req.ShelterID); err != nil {
			return err
		}
		var err error
		if remaining, err = r.Shelters.TakeBed(ctx, req.ShelterID); err != nil {
			return err
		}
		_, err = r.Residents.CreateResident(ctx, resident)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Admitted(string(source))
	s.invalidateBedStats(ctx, req.ShelterID)
	s.logger.Info("Walk-in resident admitted",
		zap.Int64("shelter_id", req.ShelterID),
		zap.Int64("resident_id", resident.ResidentID),
		zap.String("source", string(source)),
	)
	publish(ctx, s.publisher, s.logger, Event{
		Type: EventResidentAdmitted, ShelterID: req.ShelterID, ResidentID: resident.ResidentID, At: now,
		Data: map[string]any{"source": source, "available_beds": remaining},
	})
	return resident, nil
}

// Discharge 在一个事务内：住户离开、释放床位、关联档案回到 active 并写同步日志
func (s *admissionService) Discharge(ctx context.Context, req DischargeRequest) (*domain.ShelterResident, error) {
	now := nowUTC()
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "No reason provided"
	}

	var out *domain.ShelterResident
	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		res, err := r.Residents.GetResident(ctx, req.ShelterID, req.ResidentID)
		if err != nil {
			return err
		}
		if res.Status != domain.ResidentActive {
			return fmt.Errorf("resident %d is %s: %w", res.ResidentID, res.Status, domain.ErrInvalidState)
		}

		notes := "Discharged: " + reason
		if res.Notes != "" {
			notes = res.Notes + "\n\n" + notes
		}
		if err := r.Residents.MarkDischarged(ctx, req.ShelterID, req.ResidentID, now, notes); err != nil {
			return err
		}
		if _, err := r.Shelters.ReleaseBed(ctx, req.ShelterID); err != nil {
			return err
		}

		if res.NGOProfileID != nil {
			if err := releaseProfile(ctx, r, *res.NGOProfileID, req.ShelterID, req.By, now); err != nil {
				return err
			}
		}

		res.Status = domain.ResidentDischarged
		res.DischargeDate = &now
		res.Notes = notes
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Discharged()
	s.invalidateBedStats(ctx, req.ShelterID)
	s.logger.Info("Resident discharged",
		zap.Int64("shelter_id", req.ShelterID),
		zap.Int64("resident_id", req.ResidentID),
	)
	publish(ctx, s.publisher, s.logger, Event{
		Type: EventResidentDischarged, ShelterID: req.ShelterID, ProfileID: out.NGOProfileID,
		ResidentID: out.ResidentID, At: now, Data: map[string]any{"reason": reason},
	})
	return out, nil
}

// releaseProfile 关联档案执行 shelter released 转换；inactive 档案保持不变
func releaseProfile(ctx context.Context, r repository.Repos, profileID, shelterID int64, by *int64, now time.Time) error {
	p, err := r.Profiles.GetProfile(ctx, profileID)
	if err != nil {
		return err
	}
	next, err := domain.Transition(p.Status, domain.EventShelterReleased)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			return nil
		}
		return err
	}
	p.Status = next
	if next != domain.ProfileCompleted {
		p.CurrentShelter = ""
	}
	p.StatusUpdatedAt = now
	if err := r.Profiles.UpdateStatus(ctx, p); err != nil {
		return err
	}
	_, err = r.SyncLogs.Append(ctx, &domain.DataSyncLog{
		ProfileID:    &profileID,
		ShelterID:    shelterID,
		SyncType:     domain.SyncStatus,
		Direction:    domain.ShelterToNGO,
		FieldsSynced: mustJSON(map[string]any{"status": next}),
		SyncedBy:     by,
		Success:      true,
		CreatedAt:    now,
	})
	return err
}

func (s *admissionService) UpdateResident(ctx context.Context, req UpdateResidentRequest) (*domain.ShelterResident, error) {
	if req.Status != nil && *req.Status != string(domain.ResidentDischarged) {
		return nil, invalidInput("status can only be set to discharged")
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, invalidInput("name cannot be empty")
	}

	now := nowUTC()
	var out *domain.ShelterResident
	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		res, err := r.Residents.GetResident(ctx, req.ShelterID, req.ResidentID)
		if err != nil {
			return err
		}
		if req.Status != nil && res.Status != domain.ResidentActive {
			return fmt.Errorf("resident %d is %s: %w", res.ResidentID, res.Status, domain.ErrInvalidState)
		}
		healthChanged := req.HealthStatus != nil && *req.HealthStatus != res.HealthStatus
		applyResidentUpdate(res, req)
		if err := r.Residents.UpdateResident(ctx, res); err != nil {
			return err
		}

		if healthChanged && res.NGOProfileID != nil {
			if err := r.Profiles.UpdateHealthStatus(ctx, *res.NGOProfileID, domain.TruncateHealthStatus(res.HealthStatus)); err != nil {
				return err
			}
			if _, err := r.SyncLogs.Append(ctx, &domain.DataSyncLog{
				ProfileID:    res.NGOProfileID,
				ShelterID:    req.ShelterID,
				SyncType:     domain.SyncUpdate,
				Direction:    domain.ShelterToNGO,
				FieldsSynced: mustJSON(map[string]any{"health_status": domain.TruncateHealthStatus(res.HealthStatus)}),
				SyncedBy:     req.By,
				Success:      true,
				CreatedAt:    now,
			}); err != nil {
				return err
			}
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		reason := ""
		if req.Notes != nil {
			reason = *req.Notes
		}
		return s.Discharge(ctx, DischargeRequest{
			ShelterID: req.ShelterID, ResidentID: req.ResidentID, Reason: reason, By: req.By,
		})
	}
	return out, nil
}

func applyResidentUpdate(res *domain.ShelterResident, req UpdateResidentRequest) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	if req.Name != nil {
		res.Name = strings.TrimSpace(*req.Name)
	}
	if req.Age != nil {
		res.Age = req.Age
	}
	set(&res.Gender, req.Gender)
	set(&res.HealthStatus, req.HealthStatus)
	set(&res.Disabilities, req.Disabilities)
	set(&res.Skills, req.Skills)
	set(&res.BedNumber, req.BedNumber)
	set(&res.RoomNumber, req.RoomNumber)
	set(&res.EmergencyContact, req.EmergencyContact)
	set(&res.EmergencyPhone, req.EmergencyPhone)
	if req.Status == nil {
		set(&res.Notes, req.Notes)
	}
}

func (s *admissionService) ListResidents(ctx context.Context, shelterID int64, status string) ([]*domain.ShelterResident, error) {
	switch domain.ResidentStatus(status) {
	case "", domain.ResidentActive, domain.ResidentDischarged, domain.ResidentTransferred:
	default:
		return nil, invalidInput("invalid resident status %q", status)
	}
	return s.store.Repos().Residents.ListResidents(ctx, shelterID, status)
}

func (s *admissionService) GetResident(ctx context.Context, shelterID, residentID int64) (*ResidentDetail, error) {
	repos := s.store.Repos()
	res, err := repos.Residents.GetResident(ctx, shelterID, residentID)
	if err != nil {
		return nil, err
	}
	detail := &ResidentDetail{ShelterResident: res}
	if res.NGOProfileID != nil {
		p, err := repos.Profiles.GetProfile(ctx, *res.NGOProfileID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if p != nil {
			detail.Profile = &ProfileSummary{
				ProfileID:      p.ProfileID,
				Priority:       p.Priority,
				CurrentShelter: p.CurrentShelter,
				CurrentJob:     p.CurrentJob,
				Status:         p.Status,
			}
		}
	}
	return detail, nil
}

// BedStats 先读缓存，miss 时计算并写入（30 秒）
func (s *admissionService) BedStats(ctx context.Context, shelterID int64) (*domain.BedStats, error) {
	key := store.BedStatsKey(shelterID)
	if cached, err := s.cache.Get(ctx, key); err == nil {
		var stats domain.BedStats
		if err := json.Unmarshal([]byte(cached), &stats); err == nil {
			return &stats, nil
		}
	} else if !errors.Is(err, store.ErrMiss) {
		s.logger.Warn("Bed stats cache read failed", zap.String("key", key), zap.Error(err))
	}

	repos := s.store.Repos()
	shelter, err := repos.Shelters.GetShelter(ctx, shelterID)
	if err != nil {
		return nil, err
	}
	active, err := repos.Residents.CountActive(ctx, shelterID)
	if err != nil {
		return nil, err
	}
	stats := &domain.BedStats{
		ShelterID:       shelterID,
		Capacity:        shelter.Capacity,
		Available:       shelter.AvailableBeds,
		Occupied:        shelter.Capacity - shelter.AvailableBeds,
		ActiveResidents: active,
	}
	if b, err := json.Marshal(stats); err == nil {
		if err := s.cache.Set(ctx, key, string(b), BedStatsTTL); err != nil {
			s.logger.Warn("Bed stats cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return stats, nil
}

func (s *admissionService) invalidateBedStats(ctx context.Context, shelterID int64) {
	if err := s.cache.Delete(ctx, store.BedStatsKey(shelterID)); err != nil {
		s.logger.Warn("Bed stats cache invalidation failed", zap.Int64("shelter_id", shelterID), zap.Error(err))
	}
}
