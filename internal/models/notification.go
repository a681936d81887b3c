package models

import "time"

type NotificationType string

const (
	NotificationTypeFriendRequest      NotificationType = "friendRequest"
	NotificationTypeFriendAccepted     NotificationType = "friendAccepted"
	NotificationTypeEventLiked         NotificationType = "eventLiked"
	NotificationTypeMemberInvited      NotificationType = "memberInvited"
	NotificationTypeMemberJoined       NotificationType = "memberJoined"
	NotificationTypeGuestlistJoined    NotificationType = "guestlistJoined"
	NotificationTypeGuestlistAdded     NotificationType = "guestlistAdded"
	NotificationTypeGuestlistRequested NotificationType = "guestlistRequested"
)

// Notification is a display-only record of a state transition. It is never
// used to derive state.
type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipient_id"`
	Type        NotificationType `json:"type"`
	ActorID     string           `json:"actor_id,omitempty"`
	EventID     string           `json:"event_id,omitempty"`
	HostID      string           `json:"host_id,omitempty"`
	Read        bool             `json:"read"`
	CreatedAt   time.Time        `json:"created_at"`
}
