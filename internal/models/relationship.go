package models

import "time"

type RelationshipState string

const (
	RelationshipNotFriends      RelationshipState = "notFriends"
	RelationshipRequestSent     RelationshipState = "requestSent"
	RelationshipRequestReceived RelationshipState = "requestReceived"
	RelationshipFriends         RelationshipState = "friends"
	RelationshipBlocked         RelationshipState = "blocked"
)

// Relationship is the single stored document for a pair of users. Only
// requestSent, friends and blocked are ever stored; requestReceived is the
// recipient's view of requestSent and notFriends is the absence of a document.
type Relationship struct {
	Key         string            `json:"key"`
	InitiatorID string            `json:"initiator_id"`
	RecipientID string            `json:"recipient_id"`
	UserIDs     []string          `json:"user_ids"`
	State       RelationshipState `json:"state"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// StateFor resolves the state as seen by viewer. A nil relationship is
// notFriends.
func (r *Relationship) StateFor(viewer string) RelationshipState {
	if r == nil {
		return RelationshipNotFriends
	}
	if r.State == RelationshipRequestSent && viewer != r.InitiatorID {
		return RelationshipRequestReceived
	}
	return r.State
}

// OtherUser returns the member of the pair that is not viewer.
func (r *Relationship) OtherUser(viewer string) string {
	if r.InitiatorID == viewer {
		return r.RecipientID
	}
	return r.InitiatorID
}

// RelationshipView is a relationship resolved for one viewer.
type RelationshipView struct {
	Key       string            `json:"key"`
	UserID    string            `json:"user_id"`
	State     RelationshipState `json:"state"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty"`
}

// ViewFor builds the viewer-relative representation of r.
func (r *Relationship) ViewFor(viewer, other string) RelationshipView {
	view := RelationshipView{UserID: other, State: r.StateFor(viewer)}
	if r != nil {
		view.Key = r.Key
		updated := r.UpdatedAt
		view.UpdatedAt = &updated
	}
	return view
}
