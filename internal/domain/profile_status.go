package domain

import "fmt"

// StatusEvent 触发档案状态变化的事件
type StatusEvent string

const (
	EventShelterRequested StatusEvent = "shelter_requested"
	EventJobRequested     StatusEvent = "job_requested"
	EventShelterAssigned  StatusEvent = "shelter_assigned"
	EventJobAssigned      StatusEvent = "job_assigned"
	EventShelterReleased  StatusEvent = "shelter_released"
	EventDeactivate       StatusEvent = "deactivate"
)

// Transition 计算事件后的新状态；非法转换返回 ErrInvalidState。
// completed/inactive 永不回到 active，inactive 为终态。
func Transition(current ProfileStatus, event StatusEvent) (ProfileStatus, error) {
	if current == ProfileInactive {
		return current, fmt.Errorf("profile is inactive: %w", ErrInvalidState)
	}
	if event == EventDeactivate {
		return ProfileInactive, nil
	}
	if current == ProfileCompleted {
		if event == EventShelterReleased {
			return ProfileCompleted, nil
		}
		return current, fmt.Errorf("profile is completed: %w", ErrInvalidState)
	}

	switch event {
	case EventShelterRequested:
		switch current {
		case ProfileActive:
			return ProfileShelterRequested, nil
		case ProfileJobRequested, ProfileBothRequested:
			return ProfileBothRequested, nil
		case ProfileShelterAssigned:
			return current, fmt.Errorf("profile already has a shelter: %w", ErrInvalidState)
		}
		return current, nil

	case EventJobRequested:
		switch current {
		case ProfileActive:
			return ProfileJobRequested, nil
		case ProfileShelterRequested, ProfileBothRequested:
			return ProfileBothRequested, nil
		}
		return current, nil

	case EventShelterAssigned:
		if current == ProfileJobAssigned {
			return ProfileCompleted, nil
		}
		return ProfileShelterAssigned, nil

	case EventJobAssigned:
		if current == ProfileShelterAssigned {
			return ProfileCompleted, nil
		}
		return ProfileJobAssigned, nil

	case EventShelterReleased:
		switch current {
		case ProfileShelterRequested, ProfileShelterAssigned:
			return ProfileActive, nil
		case ProfileBothRequested:
			return ProfileJobRequested, nil
		}
		return current, nil
	}

	return current, fmt.Errorf("unknown status event %q: %w", event, ErrInvalidInput)
}

// IsTerminal 是否不再接受分配
func (s ProfileStatus) IsTerminal() bool {
	return s == ProfileCompleted || s == ProfileInactive
}

// StatusMessage 返回给前端的状态说明；resource 为收容所/机构名称
func StatusMessage(status ProfileStatus, resource string) string {
	switch status {
	case ProfileShelterRequested:
		return fmt.Sprintf("Request sent to %s shelter on behalf of this person", resource)
	case ProfileJobRequested:
		return fmt.Sprintf("Request sent to %s organization for job placement", resource)
	case ProfileBothRequested:
		return "Requests sent to both shelter and job organization"
	case ProfileShelterAssigned:
		return fmt.Sprintf("Successfully placed in %s shelter", resource)
	case ProfileJobAssigned:
		return fmt.Sprintf("Successfully employed at %s", resource)
	case ProfileCompleted:
		return "Successfully housed and employed"
	case ProfileInactive:
		return "Profile is inactive"
	default:
		return "Looking for assistance"
	}
}
