package domain

import "time"

// RecommendationChoice 用户选择的 AI 推荐结果（对应 ai_recommendation_choices 表）
type RecommendationChoice struct {
	ChoiceID           int64     `db:"choice_id" json:"choice_id"`
	ProfileID          int64     `db:"profile_id" json:"profile_id"`
	RecommendationType string    `db:"recommendation_type" json:"recommendation_type"` // shelter / job
	ResourceID         int64     `db:"resource_id" json:"resource_id"`
	ResourceName       string    `db:"resource_name" json:"resource_name"`
	Score              float64   `db:"score" json:"score"`
	ChosenBy           *int64    `db:"chosen_by" json:"chosen_by,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// ShelterRecommendation AI 服务返回的单条推荐
type ShelterRecommendation struct {
	ShelterID     int64              `json:"shelter_id"`
	Name          string             `json:"name"`
	Score         float64            `json:"score"`
	AvailableBeds int                `json:"available_beds"`
	Explanation   map[string]float64 `json:"explanation,omitempty"` // location_score / availability_score / ...
}
