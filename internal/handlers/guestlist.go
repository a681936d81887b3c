package handlers

import (
	"net/http"

	"github.com/HammerMeetNail/guestlist/internal/models"
	"github.com/HammerMeetNail/guestlist/internal/services"
)

type GuestlistHandler struct {
	guestlists services.GuestlistServiceInterface
}

func NewGuestlistHandler(guestlists services.GuestlistServiceInterface) *GuestlistHandler {
	return &GuestlistHandler{guestlists: guestlists}
}

type GuestlistEntryResponse struct {
	Entry   *models.GuestlistEntry `json:"entry,omitempty"`
	Message string                 `json:"message,omitempty"`
}

type GuestlistResponse struct {
	Guests []models.GuestlistEntry `json:"guests"`
}

type ActionStateResponse struct {
	State models.EventUserActionState `json:"state"`
}

type JoinRequestResponse struct {
	Request *models.JoinRequest `json:"request"`
}

func (h *GuestlistHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	entry, err := h.guestlists.Join(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeServiceError(w, r, "join guestlist", err)
		return
	}
	writeJSON(w, http.StatusCreated, GuestlistEntryResponse{Entry: entry})
}

func (h *GuestlistHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.guestlists.Leave(r.Context(), r.PathValue("id"), userID); err != nil {
		writeServiceError(w, r, "leave guestlist", err)
		return
	}
	writeJSON(w, http.StatusOK, GuestlistEntryResponse{Message: "Left the guestlist"})
}

func (h *GuestlistHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}
	entries, err := h.guestlists.List(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, "list guestlist", err)
		return
	}
	writeJSON(w, http.StatusOK, GuestlistResponse{Guests: entries})
}

func (h *GuestlistHandler) ActionState(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	state, err := h.guestlists.ActionState(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeServiceError(w, r, "resolve action state", err)
		return
	}
	writeJSON(w, http.StatusOK, ActionStateResponse{State: state})
}

func (h *GuestlistHandler) RequestToJoin(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	req, err := h.guestlists.RequestToJoin(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeServiceError(w, r, "request to join", err)
		return
	}
	writeJSON(w, http.StatusCreated, JoinRequestResponse{Request: req})
}

func (h *GuestlistHandler) Approve(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	entry, err := h.guestlists.ApproveGuest(r.Context(), r.PathValue("id"), r.PathValue("user"), userID)
	if err != nil {
		writeServiceError(w, r, "approve guest", err)
		return
	}
	writeJSON(w, http.StatusOK, GuestlistEntryResponse{Entry: entry})
}

func (h *GuestlistHandler) Invite(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	entry, err := h.guestlists.Invite(r.Context(), r.PathValue("id"), r.PathValue("user"), userID)
	if err != nil {
		writeServiceError(w, r, "invite guest", err)
		return
	}
	writeJSON(w, http.StatusCreated, GuestlistEntryResponse{Entry: entry})
}

func (h *GuestlistHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	entry, err := h.guestlists.CheckIn(r.Context(), r.PathValue("id"), r.PathValue("user"), userID)
	if err != nil {
		writeServiceError(w, r, "check in guest", err)
		return
	}
	writeJSON(w, http.StatusOK, GuestlistEntryResponse{Entry: entry})
}

func (h *GuestlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.guestlists.Remove(r.Context(), r.PathValue("id"), r.PathValue("user"), userID); err != nil {
		writeServiceError(w, r, "remove guest", err)
		return
	}
	writeJSON(w, http.StatusOK, GuestlistEntryResponse{Message: "Guest removed"})
}
