package models

import "time"

type GuestStatus string

const (
	GuestStatusInvited   GuestStatus = "invited"
	GuestStatusCheckedIn GuestStatus = "checkedIn"
)

// GuestlistEntry is one user's attendance record for one event. Name,
// AvatarURL and University are copied from the profile when the entry is
// written and are not refreshed afterwards.
type GuestlistEntry struct {
	EventID     string      `json:"event_id"`
	UserID      string      `json:"user_id"`
	Status      GuestStatus `json:"status"`
	InvitedBy   string      `json:"invited_by,omitempty"`
	CheckedInBy string      `json:"checked_in_by,omitempty"`
	CheckedInAt *time.Time  `json:"checked_in_at,omitempty"`
	Name        string      `json:"name"`
	AvatarURL   string      `json:"avatar_url,omitempty"`
	University  string      `json:"university,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type JoinRequestStatus string

const (
	JoinRequestRequested JoinRequestStatus = "requested"
	JoinRequestApproved  JoinRequestStatus = "approved"
)

type JoinRequest struct {
	EventID    string            `json:"event_id"`
	UserID     string            `json:"user_id"`
	Status     JoinRequestStatus `json:"status"`
	ApprovedBy string            `json:"approved_by,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// AttendanceRecord marks an event in the user's own attendance history.
type AttendanceRecord struct {
	UserID     string    `json:"user_id"`
	EventID    string    `json:"event_id"`
	AttendedAt time.Time `json:"attended_at"`
}
