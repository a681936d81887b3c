package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/HammerMeetNail/guestlist/internal/models"
	"github.com/HammerMeetNail/guestlist/internal/services"
)

const watchKeepAlive = 25 * time.Second

type RelationshipHandler struct {
	relationships services.RelationshipServiceInterface
}

func NewRelationshipHandler(relationships services.RelationshipServiceInterface) *RelationshipHandler {
	return &RelationshipHandler{relationships: relationships}
}

type RelationshipResponse struct {
	Relationship *models.RelationshipView `json:"relationship,omitempty"`
	Message      string                   `json:"message,omitempty"`
}

type RelationshipListResponse struct {
	Relationships []models.RelationshipView `json:"relationships"`
}

func (h *RelationshipHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	other := r.PathValue("id")

	rel, err := h.relationships.SendRequest(r.Context(), userID, other)
	if err != nil {
		writeServiceError(w, r, "send friend request", err)
		return
	}
	view := rel.ViewFor(userID, other)
	writeJSON(w, http.StatusCreated, RelationshipResponse{Relationship: &view, Message: "Friend request sent"})
}

func (h *RelationshipHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	other := r.PathValue("id")

	rel, err := h.relationships.Accept(r.Context(), userID, other)
	if err != nil {
		writeServiceError(w, r, "accept friend request", err)
		return
	}
	view := rel.ViewFor(userID, other)
	writeJSON(w, http.StatusOK, RelationshipResponse{Relationship: &view, Message: "Friend request accepted"})
}

// Remove cancels a sent request, declines a received one, or unfriends.
func (h *RelationshipHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.relationships.CancelOrRemove(r.Context(), userID, r.PathValue("id")); err != nil {
		writeServiceError(w, r, "remove relationship", err)
		return
	}
	writeJSON(w, http.StatusOK, RelationshipResponse{Message: "Relationship removed"})
}

func (h *RelationshipHandler) Block(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	other := r.PathValue("id")

	rel, err := h.relationships.Block(r.Context(), userID, other)
	if err != nil {
		writeServiceError(w, r, "block user", err)
		return
	}
	view := rel.ViewFor(userID, other)
	writeJSON(w, http.StatusOK, RelationshipResponse{Relationship: &view, Message: "User blocked"})
}

func (h *RelationshipHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.relationships.Unblock(r.Context(), userID, r.PathValue("id")); err != nil {
		writeServiceError(w, r, "unblock user", err)
		return
	}
	writeJSON(w, http.StatusOK, RelationshipResponse{Message: "User unblocked"})
}

func (h *RelationshipHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	view, err := h.relationships.Status(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, "relationship status", err)
		return
	}
	writeJSON(w, http.StatusOK, RelationshipResponse{Relationship: &view})
}

func (h *RelationshipHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	views, err := h.relationships.ListFriends(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "list friends", err)
		return
	}
	writeJSON(w, http.StatusOK, RelationshipListResponse{Relationships: views})
}

func (h *RelationshipHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	views, err := h.relationships.ListIncomingRequests(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "list friend requests", err)
		return
	}
	writeJSON(w, http.StatusOK, RelationshipListResponse{Relationships: views})
}

// Watch streams the caller's view of the relationship as Server-Sent
// Events. The current state is sent first, then one event per change.
func (h *RelationshipHandler) Watch(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	other := r.PathValue("id")
	ctx := r.Context()

	current, err := h.relationships.Status(ctx, userID, other)
	if err != nil {
		writeServiceError(w, r, "watch relationship", err)
		return
	}

	// Views carry the full state, so when the client falls behind a dropped
	// update is superseded by the next one.
	updates := make(chan models.RelationshipView, 8)
	sub, err := h.relationships.Watch(ctx, userID, other, func(view models.RelationshipView) {
		select {
		case updates <- view:
		default:
		}
	})
	if err != nil {
		writeServiceError(w, r, "watch relationship", err)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})
	if err := writeEvent(w, rc, current); err != nil {
		return
	}

	ticker := time.NewTicker(watchKeepAlive)
	defer ticker.Stop()

	for {
		// Pending updates go out before a cancellation is noticed.
		select {
		case view := <-updates:
			if err := writeEvent(w, rc, view); err != nil {
				return
			}
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return
		case view := <-updates:
			if err := writeEvent(w, rc, view); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			_ = rc.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, view models.RelationshipView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: relationship\ndata: %s\n\n", data); err != nil {
		return err
	}
	_ = rc.Flush()
	return nil
}
