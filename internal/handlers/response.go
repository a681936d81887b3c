package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/HammerMeetNail/guestlist/internal/identity"
	"github.com/HammerMeetNail/guestlist/internal/logging"
	"github.com/HammerMeetNail/guestlist/internal/services"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// DependentStepResponse is returned with 202 when the primary change
// committed but a follow-up write did not.
type DependentStepResponse struct {
	Message    string `json:"message"`
	Committed  bool   `json:"committed"`
	FailedStep string `json:"failed_step"`
}

type errorMapping struct {
	err     error
	status  int
	message string
}

var serviceErrors = []errorMapping{
	{services.ErrInvalidID, http.StatusBadRequest, "Invalid ID"},
	{services.ErrSelfRelationship, http.StatusBadRequest, "Cannot do that with yourself"},
	{services.ErrApprovalNotRequired, http.StatusBadRequest, "Event does not require approval"},

	{services.ErrRelationshipBlocked, http.StatusForbidden, "Relationship is blocked"},
	{services.ErrNotBlocker, http.StatusForbidden, "Only the user who blocked can unblock"},
	{services.ErrNotEventManager, http.StatusForbidden, "Not allowed to manage this guestlist"},
	{services.ErrNotHostManager, http.StatusForbidden, "Not allowed to manage this host"},
	{services.ErrInviteOnly, http.StatusForbidden, "Event is invite-only"},
	{services.ErrApprovalRequired, http.StatusForbidden, "Event requires approval"},

	{services.ErrRequestNotFound, http.StatusNotFound, "Friend request not found"},
	{services.ErrRelationshipNotFound, http.StatusNotFound, "Relationship not found"},
	{services.ErrEventNotFound, http.StatusNotFound, "Event not found"},
	{services.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{services.ErrHostNotFound, http.StatusNotFound, "Host not found"},
	{services.ErrNotOnGuestlist, http.StatusNotFound, "Not on the guestlist"},
	{services.ErrJoinRequestNotFound, http.StatusNotFound, "Join request not found"},
	{services.ErrInviteNotFound, http.StatusNotFound, "Invite not found"},
	{services.ErrMembershipNotFound, http.StatusNotFound, "Membership not found"},
	{services.ErrNotificationNotFound, http.StatusNotFound, "Notification not found"},

	{services.ErrDuplicateRequest, http.StatusConflict, "Friend request already pending"},
	{services.ErrAlreadyFriends, http.StatusConflict, "Already friends"},
	{services.ErrAlreadyOnGuestlist, http.StatusConflict, "Already on the guestlist"},
	{services.ErrAlreadyCheckedIn, http.StatusConflict, "Already checked in"},
	{services.ErrEventEnded, http.StatusConflict, "Event has ended"},
	{services.ErrJoinRequestPending, http.StatusConflict, "Join request already pending"},
	{services.ErrAlreadyMember, http.StatusConflict, "Already a member"},
	{services.ErrInvitePending, http.StatusConflict, "Invite already pending"},
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps a service error to a response. Unknown errors are
// logged and reported as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	logger := logging.FromContext(r.Context())
	var stepErr *services.DependentStepError
	if errors.As(err, &stepErr) {
		logger.Warn("Dependent step failed", map[string]interface{}{
			"operation": operation,
			"step":      stepErr.Step,
			"error":     stepErr.Err.Error(),
		})
		writeJSON(w, http.StatusAccepted, DependentStepResponse{
			Message:    "Change saved; follow-up update pending",
			Committed:  stepErr.PrimaryCommitted,
			FailedStep: stepErr.Step,
		})
		return
	}

	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.message)
			return
		}
	}

	logger.Error("Request failed", map[string]interface{}{
		"operation": operation,
		"error":     err.Error(),
	})
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// currentUser returns the caller's ID or writes 401.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := identity.UserID(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return "", false
	}
	return userID, true
}

// pathUser resolves a {user} path value, where "me" names the caller.
func pathUser(r *http.Request, caller string) string {
	user := r.PathValue("user")
	if user == "me" {
		return caller
	}
	return user
}
