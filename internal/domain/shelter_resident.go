package domain

import "time"

// ResidentStatus 住户状态
type ResidentStatus string

const (
	ResidentActive      ResidentStatus = "active"
	ResidentDischarged  ResidentStatus = "discharged"
	ResidentTransferred ResidentStatus = "transferred"
)

// ResidentSource 住户来源
type ResidentSource string

const (
	SourceNGO      ResidentSource = "ngo"
	SourceWalkIn   ResidentSource = "walk_in"
	SourceReferral ResidentSource = "referral"
)

// ShelterResident 收容所住户（对应 shelter_residents 表）
// NGOProfileID 为空表示 walk-in / referral
type ShelterResident struct {
	ResidentID       int64          `db:"resident_id" json:"resident_id"`
	ShelterID        int64          `db:"shelter_id" json:"shelter_id"`
	NGOProfileID     *int64         `db:"ngo_profile_id" json:"ngo_profile_id,omitempty"`
	Name             string         `db:"name" json:"name"`
	Age              *int           `db:"age" json:"age,omitempty"`
	Gender           string         `db:"gender" json:"gender,omitempty"`
	HealthStatus     string         `db:"health_status" json:"health_status,omitempty"`
	Disabilities     string         `db:"disabilities" json:"disabilities,omitempty"`
	Skills           string         `db:"skills" json:"skills,omitempty"`
	BedNumber        string         `db:"bed_number" json:"bed_number,omitempty"`
	RoomNumber       string         `db:"room_number" json:"room_number,omitempty"`
	AdmissionDate    time.Time      `db:"admission_date" json:"admission_date"`
	DischargeDate    *time.Time     `db:"discharge_date" json:"discharge_date,omitempty"`
	Status           ResidentStatus `db:"status" json:"status"`
	Source           ResidentSource `db:"source" json:"source"`
	EmergencyContact string         `db:"emergency_contact" json:"emergency_contact,omitempty"`
	EmergencyPhone   string         `db:"emergency_phone" json:"emergency_phone,omitempty"`
	Notes            string         `db:"notes" json:"notes,omitempty"`
}
