package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nest-data/internal/domain"
	"nest-data/internal/repository"

	"go.uber.org/zap"
)

// 资源类型
const (
	ResourceShelter = "shelter"
	ResourceJob     = "job"
)

// AssignmentService NGO 侧分配与收容所侧申请处理
type AssignmentService interface {
	// NGO
	CreateAssignment(ctx context.Context, req CreateAssignmentRequest) (*CreateAssignmentResponse, error)
	ListAccepted(ctx context.Context) ([]domain.AcceptedRequestView, error)
	ListProfileAssignments(ctx context.Context, profileID int64) (*ProfileAssignments, error)
	ConfirmJob(ctx context.Context, allocID int64, confirmedBy *int64) (*ConfirmJobResponse, error)

	// 收容所
	ListPending(ctx context.Context, shelterID int64) ([]domain.PendingRequestView, error)
	GetRequest(ctx context.Context, shelterID, requestID int64) (*domain.AssignmentRequest, error)
	AcceptRequest(ctx context.Context, req AdmitRequest) (*AdmissionResult, error)
	RejectRequest(ctx context.Context, req RejectRequestRequest) (*domain.AssignmentRequest, error)
}

// CreateAssignmentRequest 创建分配请求
type CreateAssignmentRequest struct {
	ProfileID    int64  `json:"profile_id"`
	ResourceID   int64  `json:"resource_id"`
	ResourceType string `json:"resource_type"`
	ResourceName string `json:"resource_name"`
	Notes        string `json:"notes"`
	RequestedBy  *int64 `json:"-"`
}

// CreateAssignmentResponse 创建分配响应
type CreateAssignmentResponse struct {
	Request       *domain.AssignmentRequest `json:"request,omitempty"`
	Allocation    *domain.JobAllocation     `json:"assignment,omitempty"`
	ProfileStatus domain.ProfileStatus      `json:"profile_status"`
	StatusMessage string                    `json:"status_message"`
}

// ProfileAssignments 档案的全部申请与工作分配
type ProfileAssignments struct {
	ProfileID   int64                       `json:"profile_id"`
	Requests    []*domain.AssignmentRequest `json:"requests"`
	Allocations []*domain.JobAllocation     `json:"allocations"`
}

// ConfirmJobResponse 工作确认响应
type ConfirmJobResponse struct {
	Allocation    *domain.JobAllocation `json:"assignment"`
	ProfileStatus domain.ProfileStatus  `json:"profile_status"`
	StatusMessage string                `json:"status_message"`
}

// RejectRequestRequest 拒绝申请
type RejectRequestRequest struct {
	ShelterID  int64
	RequestID  int64
	Reason     string
	ResponseBy *int64
}

type assignmentService struct {
	store     repository.Store
	admission AdmissionService
	publisher EventPublisher
	metrics   *Metrics
	logger    *zap.Logger
}

// NewAssignmentService 创建 AssignmentService 实例；接受申请委托给 admission
func NewAssignmentService(store repository.Store, admission AdmissionService, publisher EventPublisher, metrics *Metrics, logger *zap.Logger) AssignmentService {
	return &assignmentService{store: store, admission: admission, publisher: publisher, metrics: metrics, logger: logger}
}

func (s *assignmentService) CreateAssignment(ctx context.Context, req CreateAssignmentRequest) (*CreateAssignmentResponse, error) {
	if req.ProfileID <= 0 || req.ResourceID <= 0 {
		return nil, invalidInput("profile_id and resource_id are required")
	}
	req.ResourceName = strings.TrimSpace(req.ResourceName)

	switch req.ResourceType {
	case ResourceShelter:
		return s.requestShelter(ctx, req)
	case ResourceJob:
		if req.ResourceName == "" {
			return nil, invalidInput("resource_name is required for jobs")
		}
		return s.requestJob(ctx, req)
	default:
		return nil, invalidInput("resource_type must be shelter or job")
	}
}

// requestShelter 在一个事务内创建 pending 申请并更新档案状态
func (s *assignmentService) requestShelter(ctx context.Context, req CreateAssignmentRequest) (*CreateAssignmentResponse, error) {
	now := nowUTC()
	var resp CreateAssignmentResponse

	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		profile, err := r.Profiles.GetProfile(ctx, req.ProfileID)
		if err != nil {
			return err
		}
		next, err := domain.Transition(profile.Status, domain.EventShelterRequested)
		if err != nil {
			return err
		}
		shelter, err := r.Shelters.GetShelter(ctx, req.ResourceID)
		if err != nil {
			return err
		}
		name := req.ResourceName
		if name == "" {
			name = shelter.Name
		}

		ar := &domain.AssignmentRequest{
			ProfileID:   profile.ProfileID,
			ShelterID:   shelter.ShelterID,
			RequestedBy: req.RequestedBy,
			Status:      domain.RequestPending,
			RequestDate: now,
			Notes:       req.Notes,
		}
		if _, err := r.Requests.CreateRequest(ctx, ar); err != nil {
			return err
		}

		profile.Status = next
		profile.CurrentShelter = name
		profile.StatusUpdatedAt = now
		if err := r.Profiles.UpdateStatus(ctx, profile); err != nil {
			return err
		}

		resp = CreateAssignmentResponse{
			Request:       ar,
			ProfileStatus: next,
			StatusMessage: domain.StatusMessage(next, name),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Shelter request created",
		zap.Int64("profile_id", req.ProfileID),
		zap.Int64("shelter_id", req.ResourceID),
		zap.Int64("request_id", resp.Request.RequestID),
		zap.String("profile_status", string(resp.ProfileStatus)),
	)
	publish(ctx, s.publisher, s.logger, Event{
		Type: EventRequestCreated, ShelterID: resp.Request.ShelterID, ProfileID: &resp.Request.ProfileID,
		RequestID: resp.Request.RequestID, At: now,
	})
	return &resp, nil
}

func (s *assignmentService) requestJob(ctx context.Context, req CreateAssignmentRequest) (*CreateAssignmentResponse, error) {
	now := nowUTC()
	var resp CreateAssignmentResponse

	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		profile, err := r.Profiles.GetProfile(ctx, req.ProfileID)
		if err != nil {
			return err
		}
		next, err := domain.Transition(profile.Status, domain.EventJobRequested)
		if err != nil {
			return err
		}
		alloc := &domain.JobAllocation{
			ProfileID:    profile.ProfileID,
			JobID:        req.ResourceID,
			ResourceName: req.ResourceName,
			Status:       domain.AllocationRequested,
			AssignedBy:   req.RequestedBy,
			AssignedAt:   now,
		}
		if _, err := r.Jobs.CreateAllocation(ctx, alloc); err != nil {
			return err
		}

		profile.Status = next
		profile.CurrentJob = req.ResourceName
		profile.StatusUpdatedAt = now
		if err := r.Profiles.UpdateStatus(ctx, profile); err != nil {
			return err
		}
		resp = CreateAssignmentResponse{
			Allocation:    alloc,
			ProfileStatus: next,
			StatusMessage: domain.StatusMessage(next, req.ResourceName),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Job allocation requested",
		zap.Int64("profile_id", req.ProfileID),
		zap.Int64("job_id", req.ResourceID),
		zap.String("profile_status", string(resp.ProfileStatus)),
	)
	return &resp, nil
}

func (s *assignmentService) ListAccepted(ctx context.Context) ([]domain.AcceptedRequestView, error) {
	out, err := s.store.Repos().Requests.ListAccepted(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.AcceptedRequestView{}
	}
	return out, nil
}

func (s *assignmentService) ListProfileAssignments(ctx context.Context, profileID int64) (*ProfileAssignments, error) {
	repos := s.store.Repos()
	if _, err := repos.Profiles.GetProfile(ctx, profileID); err != nil {
		return nil, err
	}
	reqs, err := repos.Requests.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	allocs, err := repos.Jobs.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if reqs == nil {
		reqs = []*domain.AssignmentRequest{}
	}
	if allocs == nil {
		allocs = []*domain.JobAllocation{}
	}
	return &ProfileAssignments{ProfileID: profileID, Requests: reqs, Allocations: allocs}, nil
}

// ConfirmJob 工作确认：档案 -> job_assigned，已有收容所时 -> completed
func (s *assignmentService) ConfirmJob(ctx context.Context, allocID int64, confirmedBy *int64) (*ConfirmJobResponse, error) {
	now := nowUTC()
	var resp ConfirmJobResponse

	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		alloc, err := r.Jobs.GetAllocation(ctx, allocID)
		if err != nil {
			return err
		}
		profile, err := r.Profiles.GetProfile(ctx, alloc.ProfileID)
		if err != nil {
			return err
		}
		next, err := domain.Transition(profile.Status, domain.EventJobAssigned)
		if err != nil {
			return err
		}
		if err := r.Jobs.Confirm(ctx, allocID, now); err != nil {
			return err
		}
		profile.Status = next
		profile.CurrentJob = alloc.ResourceName
		profile.StatusUpdatedAt = now
		if err := r.Profiles.UpdateStatus(ctx, profile); err != nil {
			return err
		}

		alloc.Status = domain.AllocationConfirmed
		alloc.ConfirmedAt = &now
		resp = ConfirmJobResponse{
			Allocation:    alloc,
			ProfileStatus: next,
			StatusMessage: domain.StatusMessage(next, alloc.ResourceName),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Job allocation confirmed",
		zap.Int64("alloc_id", allocID),
		zap.String("profile_status", string(resp.ProfileStatus)),
	)
	return &resp, nil
}

func (s *assignmentService) ListPending(ctx context.Context, shelterID int64) ([]domain.PendingRequestView, error) {
	out, err := s.store.Repos().Requests.ListPending(ctx, shelterID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.PendingRequestView{}
	}
	return out, nil
}

// GetRequest 其他收容所的申请视为不存在
func (s *assignmentService) GetRequest(ctx context.Context, shelterID, requestID int64) (*domain.AssignmentRequest, error) {
	ar, err := s.store.Repos().Requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if ar.ShelterID != shelterID {
		return nil, fmt.Errorf("request %d: %w", requestID, domain.ErrNotFound)
	}
	return ar, nil
}

func (s *assignmentService) AcceptRequest(ctx context.Context, req AdmitRequest) (*AdmissionResult, error) {
	return s.admission.AdmitFromRequest(ctx, req)
}

// RejectRequest pending -> rejected；重复拒绝返回 ErrInvalidState
func (s *assignmentService) RejectRequest(ctx context.Context, req RejectRequestRequest) (*domain.AssignmentRequest, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		return nil, invalidInput("rejection reason is required")
	}

	ar, err := s.GetRequest(ctx, req.ShelterID, req.RequestID)
	if err != nil {
		return nil, err
	}
	if ar.Status != domain.RequestPending {
		return nil, fmt.Errorf("request %d already %s: %w", ar.RequestID, ar.Status, domain.ErrInvalidState)
	}

	now := nowUTC()
	if err := s.store.Repos().Requests.Resolve(ctx, repository.Resolution{
		RequestID:       req.RequestID,
		ShelterID:       req.ShelterID,
		Status:          domain.RequestRejected,
		ResponseBy:      req.ResponseBy,
		RejectionReason: req.Reason,
		At:              now,
	}); err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			s.logger.Info("Reject lost race, request already resolved", zap.Int64("request_id", req.RequestID))
		}
		return nil, err
	}

	ar.Status = domain.RequestRejected
	ar.RejectionReason = req.Reason
	ar.ResponseDate = &now
	ar.ResponseBy = req.ResponseBy

	s.metrics.Resolved("rejected")
	s.logger.Info("Request rejected",
		zap.Int64("shelter_id", req.ShelterID),
		zap.Int64("request_id", req.RequestID),
	)
	publish(ctx, s.publisher, s.logger, Event{
		Type: EventRequestRejected, ShelterID: req.ShelterID, ProfileID: &ar.ProfileID,
		RequestID: req.RequestID, At: now, Data: map[string]any{"reason": req.Reason},
	})
	return ar, nil
}
