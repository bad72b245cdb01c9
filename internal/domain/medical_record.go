package domain

import "time"

// MedicalRecordType 医疗记录类型
type MedicalRecordType string

const (
	RecordCheckup    MedicalRecordType = "checkup"
	RecordMedication MedicalRecordType = "medication"
	RecordIncident   MedicalRecordType = "incident"
	RecordNote       MedicalRecordType = "note"
)

// Valid 是否为已知类型
func (t MedicalRecordType) Valid() bool {
	switch t {
	case RecordCheckup, RecordMedication, RecordIncident, RecordNote:
		return true
	}
	return false
}

// OverwritesHealthStatus checkup/incident 会覆盖档案的 health_status
func (t MedicalRecordType) OverwritesHealthStatus() bool {
	return t == RecordCheckup || t == RecordIncident
}

// ShelterMedicalRecord 收容所侧医疗记录（对应 shelter_medical_records 表）
// SyncedAt 为空表示尚未同步到 NGO
type ShelterMedicalRecord struct {
	RecordID     int64             `db:"record_id" json:"record_id"`
	ResidentID   int64             `db:"resident_id" json:"resident_id"`
	RecordDate   time.Time         `db:"record_date" json:"record_date"`
	RecordType   MedicalRecordType `db:"record_type" json:"record_type"`
	Description  string            `db:"description" json:"description"`
	Medications  string            `db:"medications" json:"medications,omitempty"`
	DoctorName   string            `db:"doctor_name" json:"doctor_name,omitempty"`
	FollowUpDate *time.Time        `db:"follow_up_date" json:"follow_up_date,omitempty"`
	RecordedBy   *int64            `db:"recorded_by" json:"recorded_by,omitempty"`
	SyncToNGO    bool              `db:"sync_to_ngo" json:"sync_to_ngo"`
	SyncedAt     *time.Time        `db:"synced_at" json:"synced_at,omitempty"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
}

// MedicalRecord NGO 侧医疗记录（对应 medical_records 表）
type MedicalRecord struct {
	RecordID     int64             `db:"record_id" json:"record_id"`
	ProfileID    int64             `db:"profile_id" json:"profile_id"`
	RecordType   MedicalRecordType `db:"record_type" json:"record_type"`
	Description  string            `db:"description" json:"description"`
	Medications  string            `db:"medications" json:"medications,omitempty"`
	DoctorName   string            `db:"doctor_name" json:"doctor_name,omitempty"`
	FollowUpDate *time.Time        `db:"follow_up_date" json:"follow_up_date,omitempty"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
}

// PendingSync 等待重试的未同步记录
type PendingSync struct {
	Record       ShelterMedicalRecord
	ShelterID    int64
	ShelterName  string
	NGOProfileID int64
	Failures     int
}
