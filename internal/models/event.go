package models

import "time"

type Event struct {
	ID               string    `json:"id"`
	PosterID         string    `json:"poster_id"`
	HostID           string    `json:"host_id,omitempty"`
	Title            string    `json:"title"`
	StartsAt         time.Time `json:"starts_at"`
	EndsAt           time.Time `json:"ends_at"`
	InviteOnly       bool      `json:"invite_only"`
	RequiresApproval bool      `json:"requires_approval"`
}

// HasEnded reports whether the event is over at now. Events without an end
// time never end.
func (e *Event) HasEnded(now time.Time) bool {
	return !e.EndsAt.IsZero() && now.After(e.EndsAt)
}

type Host struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`
}

// EventUserActionState gates which guestlist transitions a user may take.
// It is derived on every read and never stored.
type EventUserActionState string

const (
	ActionStatePastEvent          EventUserActionState = "pastEvent"
	ActionStateOnGuestlist        EventUserActionState = "onGuestlist"
	ActionStateRequestToJoin      EventUserActionState = "requestToJoin"
	ActionStatePendingJoinRequest EventUserActionState = "pendingJoinRequest"
	ActionStateOpen               EventUserActionState = "open"
	ActionStateInviteOnly         EventUserActionState = "inviteOnly"
)
