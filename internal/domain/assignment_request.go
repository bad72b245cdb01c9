package domain

import "time"

// RequestStatus 入住申请状态
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
	RequestExpired  RequestStatus = "expired"
)

// AssignmentRequest NGO -> 收容所的入住申请（对应 assignment_requests 表）
// 只能从 pending 被处理一次
type AssignmentRequest struct {
	RequestID       int64         `db:"request_id" json:"request_id"`
	ProfileID       int64         `db:"profile_id" json:"profile_id"`
	ShelterID       int64         `db:"shelter_id" json:"shelter_id"`
	RequestedBy     *int64        `db:"requested_by" json:"requested_by,omitempty"`
	Status          RequestStatus `db:"status" json:"status"`
	RequestDate     time.Time     `db:"request_date" json:"request_date"`
	ResponseDate    *time.Time    `db:"response_date" json:"response_date,omitempty"`
	ResponseBy      *int64        `db:"response_by" json:"response_by,omitempty"`
	RejectionReason string        `db:"rejection_reason" json:"rejection_reason,omitempty"`
	Notes           string        `db:"notes" json:"notes,omitempty"`
}

// AcceptedRequestView 已接受申请 + 档案/收容所摘要
type AcceptedRequestView struct {
	AssignmentRequest
	ProfileName    string        `json:"profile_name"`
	ProfileStatus  ProfileStatus `json:"profile_status"`
	ShelterName    string        `json:"shelter_name"`
	ShelterAddress string        `json:"shelter_address,omitempty"`
}

// PendingRequestView 收容所待处理申请 + 档案摘要
type PendingRequestView struct {
	AssignmentRequest
	ProfileName  string   `json:"profile_name"`
	ProfileAge   *int     `json:"profile_age,omitempty"`
	Gender       string   `json:"gender,omitempty"`
	HealthStatus string   `json:"health_status,omitempty"`
	Priority     Priority `json:"priority,omitempty"`
}
