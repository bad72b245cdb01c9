package service

import (
	"context"

	"nest-data/internal/domain"
	"nest-data/internal/repository"

	"go.uber.org/zap"
)

// DefaultTopK 推荐条数默认值
const DefaultTopK = 5

// ShelterRecommender 由 AIClient 实现
type ShelterRecommender interface {
	RecommendShelters(ctx context.Context, p *domain.HomelessProfile, shelters []*domain.Shelter, topK int) ([]domain.ShelterRecommendation, error)
}

// RecommendationService AI 推荐与选择记录
type RecommendationService interface {
	RecommendShelters(ctx context.Context, profileID int64, topK int) (*RecommendationsResponse, error)
	RecordChoice(ctx context.Context, req RecordChoiceRequest) (*domain.RecommendationChoice, error)
}

// RecommendationsResponse 推荐结果
type RecommendationsResponse struct {
	ProfileID             int64                          `json:"profile_id"`
	ProfileName           string                         `json:"profile_name"`
	Recommendations       []domain.ShelterRecommendation `json:"recommendations"`
	TotalSheltersAnalyzed int                            `json:"total_shelters_analyzed"`
	Message               string                         `json:"message,omitempty"`
}

// RecordChoiceRequest 记录用户选择的推荐
type RecordChoiceRequest struct {
	ProfileID          int64   `json:"-"`
	ChosenBy           *int64  `json:"-"`
	RecommendationType string  `json:"recommendation_type"`
	ResourceID         int64   `json:"resource_id"`
	ResourceName       string  `json:"resource_name"`
	Score              float64 `json:"score"`
}

type recommendationService struct {
	store       repository.Store
	recommender ShelterRecommender
	logger      *zap.Logger
}

// NewRecommendationService 创建 RecommendationService 实例
func NewRecommendationService(store repository.Store, recommender ShelterRecommender, logger *zap.Logger) RecommendationService {
	return &recommendationService{store: store, recommender: recommender, logger: logger}
}

func (s *recommendationService) RecommendShelters(ctx context.Context, profileID int64, topK int) (*RecommendationsResponse, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	repos := s.store.Repos()
	profile, err := repos.Profiles.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	all, err := repos.Shelters.ListShelters(ctx)
	if err != nil {
		return nil, err
	}
	var candidates []*domain.Shelter
	for _, sh := range all {
		if sh.AvailableBeds > 0 {
			candidates = append(candidates, sh)
		}
	}

	resp := &RecommendationsResponse{
		ProfileID:       profile.ProfileID,
		ProfileName:     profile.Name,
		Recommendations: []domain.ShelterRecommendation{},
	}
	if len(candidates) == 0 {
		resp.Message = "No shelters available"
		return resp, nil
	}

	recs, err := s.recommender.RecommendShelters(ctx, profile, candidates, topK)
	if err != nil {
		return nil, err
	}
	if recs != nil {
		resp.Recommendations = recs
	}
	resp.TotalSheltersAnalyzed = len(candidates)
	return resp, nil
}

func (s *recommendationService) RecordChoice(ctx context.Context, req RecordChoiceRequest) (*domain.RecommendationChoice, error) {
	if req.RecommendationType == "" {
		req.RecommendationType = ResourceShelter
	}
	if req.RecommendationType != ResourceShelter && req.RecommendationType != ResourceJob {
		return nil, invalidInput("invalid recommendation_type %q", req.RecommendationType)
	}
	if req.ResourceID <= 0 {
		return nil, invalidInput("resource_id is required")
	}

	repos := s.store.Repos()
	if _, err := repos.Profiles.GetProfile(ctx, req.ProfileID); err != nil {
		return nil, err
	}
	choice := &domain.RecommendationChoice{
		ProfileID:          req.ProfileID,
		RecommendationType: req.RecommendationType,
		ResourceID:         req.ResourceID,
		ResourceName:       req.ResourceName,
		Score:              req.Score,
		ChosenBy:           req.ChosenBy,
		CreatedAt:          nowUTC(),
	}
	if _, err := repos.Choices.CreateChoice(ctx, choice); err != nil {
		return nil, err
	}
	s.logger.Info("Recommendation choice recorded",
		zap.Int64("profile_id", req.ProfileID),
		zap.String("type", req.RecommendationType),
		zap.Int64("resource_id", req.ResourceID),
	)
	return choice, nil
}
