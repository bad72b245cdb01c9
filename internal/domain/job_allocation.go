package domain

import "time"

// AllocationStatus 工作分配状态
type AllocationStatus string

const (
	AllocationRequested AllocationStatus = "requested"
	AllocationConfirmed AllocationStatus = "confirmed"
)

// JobAllocation 工作分配（对应 job_allocations 表）
type JobAllocation struct {
	AllocID      int64            `db:"alloc_id" json:"alloc_id"`
	ProfileID    int64            `db:"profile_id" json:"profile_id"`
	JobID        int64            `db:"job_id" json:"job_id"`
	ResourceName string           `db:"resource_name" json:"resource_name"`
	Status       AllocationStatus `db:"status" json:"status"`
	AssignedBy   *int64           `db:"assigned_by" json:"assigned_by,omitempty"`
	AssignedAt   time.Time        `db:"assigned_at" json:"assigned_at"`
	ConfirmedAt  *time.Time       `db:"confirmed_at" json:"confirmed_at,omitempty"`
}
