package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"nest-data/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// AIRecommendPath AI 服务的收容所推荐接口
const AIRecommendPath = "/api/v1/recommend/shelters"

// aiIndividual 推荐请求中的个人信息
type aiIndividual struct {
	ID           string      `json:"id"`
	Skills       []string    `json:"skills"`
	Location     *[2]float64 `json:"location"`
	Priority     string      `json:"priority"`
	Age          *int        `json:"age"`
	Gender       string      `json:"gender,omitempty"`
	Education    string      `json:"education,omitempty"`
	HealthStatus string      `json:"health_status,omitempty"`
}

// aiShelter 推荐请求中的候选收容所
type aiShelter struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Location        *[2]float64 `json:"location"`
	Capacity        int         `json:"capacity"`
	Occupied        int         `json:"occupied"`
	Amenities       []string    `json:"amenities"`
	PrioritySupport []string    `json:"priority_support"`
	RequiredSkills  []string    `json:"required_skills"`
}

type aiRecommendRequest struct {
	Individual aiIndividual `json:"individual"`
	Shelters   []aiShelter  `json:"shelters"`
	TopK       int          `json:"top_k"`
	UseBandit  bool         `json:"use_bandit"`
}

type aiRecommendation struct {
	ResourceID   string             `json:"resource_id"`
	ResourceName string             `json:"resource_name"`
	Score        float64            `json:"score"`
	Explanation  map[string]float64 `json:"explanation"`
}

type aiRecommendResponse struct {
	Recommendations []aiRecommendation `json:"recommendations"`
}

// AIClient AI 推荐服务客户端
type AIClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewAIClient 创建 AI 客户端
func NewAIClient(baseURL string, timeout time.Duration, logger *zap.Logger) *AIClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(1 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &AIClient{httpClient: client, logger: logger}
}

// RecommendShelters 对候选收容所打分排序；任何失败都返回 domain.ErrUpstreamUnavailable
func (c *AIClient) RecommendShelters(ctx context.Context, p *domain.HomelessProfile, shelters []*domain.Shelter, topK int) ([]domain.ShelterRecommendation, error) {
	body := aiRecommendRequest{
		Individual: aiIndividual{
			ID:           strconv.FormatInt(p.ProfileID, 10),
			Skills:       splitCSV(p.Skills),
			Location:     location(p.GeoLat, p.GeoLng),
			Priority:     aiPriority(p),
			Age:          p.Age,
			Gender:       p.Gender,
			Education:    p.Education,
			HealthStatus: p.HealthStatus,
		},
		TopK:      topK,
		UseBandit: true,
	}
	byID := make(map[string]*domain.Shelter, len(shelters))
	for _, s := range shelters {
		id := strconv.FormatInt(s.ShelterID, 10)
		byID[id] = s
		body.Shelters = append(body.Shelters, aiShelter{
			ID:              id,
			Name:            s.Name,
			Location:        location(s.GeoLat, s.GeoLng),
			Capacity:        s.Capacity,
			Occupied:        s.Capacity - s.AvailableBeds,
			Amenities:       splitCSV(s.Amenities),
			PrioritySupport: []string{"low", "medium", "high", "critical"},
			RequiredSkills:  []string{},
		})
	}

	c.logger.Info("Calling AI service: recommend shelters",
		zap.Int64("profile_id", p.ProfileID),
		zap.Int("candidates", len(shelters)),
		zap.Int("top_k", topK),
	)

	var response aiRecommendResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&response).
		Post(AIRecommendPath)
	if err != nil {
		c.logger.Error("AI service call failed", zap.Error(err))
		return nil, fmt.Errorf("failed to call AI service: %v: %w", err, domain.ErrUpstreamUnavailable)
	}
	if resp.IsError() {
		c.logger.Error("AI service returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return nil, fmt.Errorf("AI service status %d: %w", resp.StatusCode(), domain.ErrUpstreamUnavailable)
	}

	out := make([]domain.ShelterRecommendation, 0, len(response.Recommendations))
	for _, r := range response.Recommendations {
		s, ok := byID[r.ResourceID]
		if !ok {
			c.logger.Warn("AI service recommended unknown shelter", zap.String("resource_id", r.ResourceID))
			continue
		}
		out = append(out, domain.ShelterRecommendation{
			ShelterID:     s.ShelterID,
			Name:          s.Name,
			Score:         r.Score,
			AvailableBeds: s.AvailableBeds,
			Explanation:   r.Explanation,
		})
	}
	return out, nil
}

func splitCSV(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func location(lat, lng float64) *[2]float64 {
	if lat == 0 && lng == 0 {
		return nil
	}
	return &[2]float64{lat, lng}
}

// aiPriority 档案优先级优先；否则按健康状况和年龄估计
func aiPriority(p *domain.HomelessProfile) string {
	switch p.Priority {
	case domain.PriorityCritical, domain.PriorityHigh, domain.PriorityLow:
		return strings.ToLower(string(p.Priority))
	}
	health := strings.ToLower(p.HealthStatus)
	switch {
	case strings.Contains(health, "critical"):
		return "critical"
	case p.Age != nil && (*p.Age < 18 || *p.Age > 65):
		return "high"
	case strings.Contains(health, "chronic"):
		return "high"
	}
	return "medium"
}
