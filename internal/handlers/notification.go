package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/HammerMeetNail/guestlist/internal/models"
	"github.com/HammerMeetNail/guestlist/internal/services"
)

type NotificationHandler struct {
	notifications services.NotificationServiceInterface
}

func NewNotificationHandler(notifications services.NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

type NotificationsResponse struct {
	Notifications []models.Notification `json:"notifications"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

// List supports ?limit=, ?before= (RFC 3339) and ?unread=true.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var params services.NotificationListParams
	query := r.URL.Query()
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		params.Limit = limit
	}
	if v := query.Get("before"); v != "" {
		before, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid before timestamp")
			return
		}
		params.Before = &before
	}
	if v := query.Get("unread"); v != "" {
		unread, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid unread filter")
			return
		}
		params.UnreadOnly = unread
	}

	notifications, err := h.notifications.List(r.Context(), userID, params)
	if err != nil {
		writeServiceError(w, r, "list notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, NotificationsResponse{Notifications: notifications})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(r.Context(), userID, r.PathValue("id")); err != nil {
		writeServiceError(w, r, "mark notification read", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Notification marked read"})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.notifications.MarkAllRead(r.Context(), userID); err != nil {
		writeServiceError(w, r, "mark all notifications read", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "All notifications marked read"})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	count, err := h.notifications.UnreadCount(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "count unread notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, UnreadCountResponse{Count: count})
}
