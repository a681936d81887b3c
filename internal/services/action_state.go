package services

import (
	"time"

	"github.com/HammerMeetNail/guestlist/internal/models"
)

// ResolveActionState derives what user may do for event at now. entry and
// request may be nil. The first matching rule wins: an ended event, then an
// existing guestlist entry, then invite-only, then manual approval.
func ResolveActionState(event *models.Event, now time.Time, entry *models.GuestlistEntry, request *models.JoinRequest) models.EventUserActionState {
	switch {
	case event.HasEnded(now):
		return models.ActionStatePastEvent
	case entry != nil:
		return models.ActionStateOnGuestlist
	case event.InviteOnly:
		return models.ActionStateInviteOnly
	case event.RequiresApproval:
		if request != nil && request.Status == models.JoinRequestRequested {
			return models.ActionStatePendingJoinRequest
		}
		return models.ActionStateRequestToJoin
	default:
		return models.ActionStateOpen
	}
}
