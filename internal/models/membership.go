package models

import "time"

type MembershipStatus string

const (
	MembershipInvited MembershipStatus = "invited"
	MembershipJoined  MembershipStatus = "joined"
)

type HostMembership struct {
	HostID    string           `json:"host_id"`
	UserID    string           `json:"user_id"`
	Status    MembershipStatus `json:"status"`
	InvitedBy string           `json:"invited_by,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
