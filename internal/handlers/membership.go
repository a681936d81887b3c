package handlers

import (
	"net/http"

	"github.com/HammerMeetNail/guestlist/internal/models"
	"github.com/HammerMeetNail/guestlist/internal/services"
)

type MembershipHandler struct {
	memberships services.MembershipServiceInterface
}

func NewMembershipHandler(memberships services.MembershipServiceInterface) *MembershipHandler {
	return &MembershipHandler{memberships: memberships}
}

type MembershipResponse struct {
	Membership *models.HostMembership `json:"membership,omitempty"`
	Message    string                 `json:"message,omitempty"`
}

type MembersResponse struct {
	Members []models.HostMembership `json:"members"`
}

func (h *MembershipHandler) Invite(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	link, err := h.memberships.Invite(r.Context(), r.PathValue("id"), pathUser(r, userID), userID)
	if err != nil {
		writeServiceError(w, r, "invite member", err)
		return
	}
	writeJSON(w, http.StatusCreated, MembershipResponse{Membership: link})
}

// Accept joins the caller to the host. When the membership link committed
// but the user profile update failed the response is 202.
func (h *MembershipHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	link, err := h.memberships.Accept(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeServiceError(w, r, "accept membership", err)
		return
	}
	writeJSON(w, http.StatusOK, MembershipResponse{Membership: link, Message: "Joined host"})
}

func (h *MembershipHandler) Reject(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.memberships.Reject(r.Context(), r.PathValue("id"), userID); err != nil {
		writeServiceError(w, r, "reject membership", err)
		return
	}
	writeJSON(w, http.StatusOK, MembershipResponse{Message: "Invite declined"})
}

func (h *MembershipHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.memberships.Remove(r.Context(), r.PathValue("id"), pathUser(r, userID), userID); err != nil {
		writeServiceError(w, r, "remove member", err)
		return
	}
	writeJSON(w, http.StatusOK, MembershipResponse{Message: "Member removed"})
}

func (h *MembershipHandler) Members(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}
	links, err := h.memberships.Members(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, "list members", err)
		return
	}
	writeJSON(w, http.StatusOK, MembersResponse{Members: links})
}
