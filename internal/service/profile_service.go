package service

import (
	"context"
	"fmt"
	"strings"

	"nest-data/internal/domain"
	"nest-data/internal/repository"

	"go.uber.org/zap"
)

// ProfileService 档案与收容所目录
type ProfileService interface {
	CreateProfile(ctx context.Context, req CreateProfileRequest) (*domain.HomelessProfile, error)
	ListProfiles(ctx context.Context, req ListProfilesRequest) ([]*domain.HomelessProfile, error)
	GetProfile(ctx context.Context, profileID int64) (*ProfileDetail, error)
	DeactivateProfile(ctx context.Context, profileID int64) (*domain.HomelessProfile, error)

	CreateShelter(ctx context.Context, req CreateShelterRequest) (*domain.Shelter, error)
	ListShelters(ctx context.Context) ([]*domain.Shelter, error)
	GetShelter(ctx context.Context, shelterID int64) (*domain.Shelter, error)
}

// CreateProfileRequest 创建档案请求
type CreateProfileRequest struct {
	Name         string  `json:"name"`
	Alias        string  `json:"alias"`
	Age          *int    `json:"age"`
	Gender       string  `json:"gender"`
	HealthStatus string  `json:"health_status"`
	Disabilities string  `json:"disabilities"`
	Skills       string  `json:"skills"`
	Needs        string  `json:"needs"`
	Education    string  `json:"education"`
	GeoLat       float64 `json:"geo_lat"`
	GeoLng       float64 `json:"geo_lng"`
	Priority     string  `json:"priority"`
	RegisteredBy *int64  `json:"-"`
}

// ListProfilesRequest 档案列表请求
type ListProfilesRequest struct {
	Status   string
	Priority string
	Search   string
	Limit    int
}

// ProfileDetail 档案详情
type ProfileDetail struct {
	Profile        *domain.HomelessProfile `json:"profile"`
	StatusMessage  string                  `json:"status_message"`
	MedicalRecords []*domain.MedicalRecord `json:"medical_records"`
}

// CreateShelterRequest 创建收容所请求
type CreateShelterRequest struct {
	Name          string  `json:"name"`
	Address       string  `json:"address"`
	Capacity      int     `json:"capacity"`
	AvailableBeds *int    `json:"available_beds"`
	GeoLat        float64 `json:"geo_lat"`
	GeoLng        float64 `json:"geo_lng"`
	Amenities     string  `json:"amenities"`
}

type profileService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewProfileService 创建 ProfileService 实例
func NewProfileService(store repository.Store, logger *zap.Logger) ProfileService {
	return &profileService{store: store, logger: logger}
}

func (s *profileService) CreateProfile(ctx context.Context, req CreateProfileRequest) (*domain.HomelessProfile, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, invalidInput("name is required")
	}
	if req.Age != nil && (*req.Age < 0 || *req.Age > 150) {
		return nil, invalidInput("age out of range")
	}
	priority := domain.Priority(req.Priority)
	if req.Priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.Valid() {
		return nil, invalidInput("invalid priority %q", req.Priority)
	}

	p := &domain.HomelessProfile{
		Name:         req.Name,
		Alias:        req.Alias,
		Age:          req.Age,
		Gender:       req.Gender,
		HealthStatus: req.HealthStatus,
		Disabilities: req.Disabilities,
		Skills:       req.Skills,
		Needs:        req.Needs,
		Education:    req.Education,
		GeoLat:       req.GeoLat,
		GeoLng:       req.GeoLng,
		Priority:     priority,
		Status:       domain.ProfileActive,
		RegisteredBy: req.RegisteredBy,
	}
	if _, err := s.store.Repos().Profiles.CreateProfile(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Profile registered", zap.Int64("profile_id", p.ProfileID))
	return p, nil
}

func (s *profileService) ListProfiles(ctx context.Context, req ListProfilesRequest) ([]*domain.HomelessProfile, error) {
	if req.Status != "" && !domain.ProfileStatus(req.Status).Valid() {
		return nil, invalidInput("invalid status %q", req.Status)
	}
	return s.store.Repos().Profiles.ListProfiles(ctx, repository.ProfileFilters{
		Status:   req.Status,
		Priority: req.Priority,
		Search:   req.Search,
		Limit:    req.Limit,
	})
}

func (s *profileService) GetProfile(ctx context.Context, profileID int64) (*ProfileDetail, error) {
	repos := s.store.Repos()
	p, err := repos.Profiles.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	records, err := repos.NGOMedical.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*domain.MedicalRecord{}
	}
	resource := p.CurrentShelter
	if p.Status == domain.ProfileJobRequested || p.Status == domain.ProfileJobAssigned {
		resource = p.CurrentJob
	}
	return &ProfileDetail{
		Profile:        p,
		StatusMessage:  domain.StatusMessage(p.Status, resource),
		MedicalRecords: records,
	}, nil
}

func (s *profileService) DeactivateProfile(ctx context.Context, profileID int64) (*domain.HomelessProfile, error) {
	var out *domain.HomelessProfile
	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		p, err := r.Profiles.GetProfile(ctx, profileID)
		if err != nil {
			return err
		}
		next, err := domain.Transition(p.Status, domain.EventDeactivate)
		if err != nil {
			return err
		}
		p.Status = next
		p.StatusUpdatedAt = nowUTC()
		if err := r.Profiles.UpdateStatus(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Profile deactivated", zap.Int64("profile_id", profileID))
	return out, nil
}

func (s *profileService) CreateShelter(ctx context.Context, req CreateShelterRequest) (*domain.Shelter, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, invalidInput("shelter name is required")
	}
	if req.Capacity < 0 {
		return nil, invalidInput("capacity must be >= 0")
	}
	available := req.Capacity
	if req.AvailableBeds != nil {
		available = *req.AvailableBeds
	}
	if available < 0 || available > req.Capacity {
		return nil, invalidInput("available_beds must be between 0 and capacity")
	}
	sh := &domain.Shelter{
		Name:          req.Name,
		Address:       req.Address,
		Capacity:      req.Capacity,
		AvailableBeds: available,
		GeoLat:        req.GeoLat,
		GeoLng:        req.GeoLng,
		Amenities:     req.Amenities,
	}
	if _, err := s.store.Repos().Shelters.CreateShelter(ctx, sh); err != nil {
		return nil, fmt.Errorf("create shelter %q: %w", req.Name, err)
	}
	return sh, nil
}

func (s *profileService) ListShelters(ctx context.Context) ([]*domain.Shelter, error) {
	return s.store.Repos().Shelters.ListShelters(ctx)
}

func (s *profileService) GetShelter(ctx context.Context, shelterID int64) (*domain.Shelter, error) {
	return s.store.Repos().Shelters.GetShelter(ctx, shelterID)
}
