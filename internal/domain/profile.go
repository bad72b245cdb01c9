package domain

import "time"

// ProfileStatus 流浪者档案状态
type ProfileStatus string

const (
	ProfileActive           ProfileStatus = "active"
	ProfileShelterRequested ProfileStatus = "shelter_requested"
	ProfileJobRequested     ProfileStatus = "job_requested"
	ProfileBothRequested    ProfileStatus = "both_requested"
	ProfileShelterAssigned  ProfileStatus = "shelter_assigned"
	ProfileJobAssigned      ProfileStatus = "job_assigned"
	ProfileCompleted        ProfileStatus = "completed"
	ProfileInactive         ProfileStatus = "inactive"
)

// Valid 是否为已知状态
func (s ProfileStatus) Valid() bool {
	switch s {
	case ProfileActive, ProfileShelterRequested, ProfileJobRequested, ProfileBothRequested,
		ProfileShelterAssigned, ProfileJobAssigned, ProfileCompleted, ProfileInactive:
		return true
	}
	return false
}

// Priority 档案优先级
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Valid 是否为已知优先级
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// HomelessProfile NGO 侧档案（对应 homeless_profiles 表）
type HomelessProfile struct {
	ProfileID    int64   `db:"profile_id" json:"profile_id"`
	Name         string  `db:"name" json:"name"`
	Alias        string  `db:"alias" json:"alias,omitempty"`
	Age          *int    `db:"age" json:"age,omitempty"`
	Gender       string  `db:"gender" json:"gender,omitempty"`
	HealthStatus string  `db:"health_status" json:"health_status,omitempty"` // VARCHAR(255)
	Disabilities string  `db:"disabilities" json:"disabilities,omitempty"`
	Skills       string  `db:"skills" json:"skills,omitempty"`
	Needs        string  `db:"needs" json:"needs,omitempty"`
	Education    string  `db:"education" json:"education,omitempty"`
	GeoLat       float64 `db:"geo_lat" json:"geo_lat"`
	GeoLng       float64 `db:"geo_lng" json:"geo_lng"`

	Priority Priority      `db:"priority" json:"priority"`
	Status   ProfileStatus `db:"status" json:"status"`

	// 展示用冗余字段，仅在分配事件时刷新
	CurrentShelter string `db:"current_shelter" json:"current_shelter,omitempty"`
	CurrentJob     string `db:"current_job" json:"current_job,omitempty"`

	StatusUpdatedAt time.Time `db:"status_updated_at" json:"status_updated_at"`
	RegisteredBy    *int64    `db:"registered_by" json:"registered_by,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// HealthStatusMaxLen health_status 列长度
const HealthStatusMaxLen = 255

// TruncateHealthStatus 截断到列长度（按字符）
func TruncateHealthStatus(s string) string {
	r := []rune(s)
	if len(r) <= HealthStatusMaxLen {
		return s
	}
	return string(r[:HealthStatusMaxLen])
}
