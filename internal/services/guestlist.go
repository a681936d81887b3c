package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HammerMeetNail/guestlist/internal/docstore"
	"github.com/HammerMeetNail/guestlist/internal/models"
)

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrEventEnded          = errors.New("event has already ended")
	ErrInviteOnly          = errors.New("event is invite-only")
	ErrApprovalRequired    = errors.New("event requires approval to join")
	ErrApprovalNotRequired = errors.New("event does not require approval")
	ErrAlreadyOnGuestlist  = errors.New("user is already on the guestlist")
	ErrNotOnGuestlist      = errors.New("user is not on the guestlist")
	ErrAlreadyCheckedIn    = errors.New("cannot leave after checking in")
	ErrJoinRequestPending  = errors.New("join request already pending")
	ErrJoinRequestNotFound = errors.New("no pending join request")
)

type GuestlistService struct {
	store         docstore.Store
	batcher       *Batcher
	notifications *NotificationService
	access        access
	now           func() time.Time
}

func NewGuestlistService(store docstore.Store, notifications *NotificationService) *GuestlistService {
	return &GuestlistService{
		store:         store,
		batcher:       NewBatcher(store),
		notifications: notifications,
		access:        access{store: store},
		now:           time.Now,
	}
}

func (s *GuestlistService) SetClock(now func() time.Time) {
	s.now = now
}

// Join puts userID on an open event's guestlist and notifies the poster.
func (s *GuestlistService) Join(ctx context.Context, eventID, userID string) (*models.GuestlistEntry, error) {
	if err := requireIDs(eventID, userID); err != nil {
		return nil, err
	}
	event, entry, request, err := s.snapshot(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}

	switch ResolveActionState(event, s.now(), entry, request) {
	case models.ActionStatePastEvent:
		return nil, ErrEventEnded
	case models.ActionStateOnGuestlist:
		return nil, ErrAlreadyOnGuestlist
	case models.ActionStateInviteOnly:
		return nil, ErrInviteOnly
	case models.ActionStateRequestToJoin, models.ActionStatePendingJoinRequest:
		return nil, ErrApprovalRequired
	}

	user, err := s.access.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry = s.newEntry(event.ID, user, "")
	b := s.batcher.Batch()
	b.Set(CollectionGuestlists, GuestlistEntryID(eventID, userID), guestlistFields(entry))
	if err := s.notifications.EmitIn(b, Notify{
		RecipientID: event.PosterID,
		Type:        models.NotificationTypeGuestlistJoined,
		ActorID:     userID,
		EventID:     eventID,
	}); err != nil {
		return nil, err
	}
	if _, err := s.batcher.Run(ctx, "join guestlist", b); err != nil {
		return nil, err
	}
	return entry, nil
}

// Leave removes userID's own entry before the event ends and before
// check-in, and retracts the poster's guestlistJoined notification.
func (s *GuestlistService) Leave(ctx context.Context, eventID, userID string) error {
	if err := requireIDs(eventID, userID); err != nil {
		return err
	}
	event, err := s.access.loadEvent(ctx, eventID)
	if err != nil {
		return err
	}
	entry, err := s.entry(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if entry == nil {
		return ErrNotOnGuestlist
	}
	if event.HasEnded(s.now()) {
		return ErrEventEnded
	}
	if entry.Status == models.GuestStatusCheckedIn {
		return ErrAlreadyCheckedIn
	}

	b := s.batcher.Batch()
	b.Delete(CollectionGuestlists, GuestlistEntryID(eventID, userID))
	b.Delete(CollectionJoinRequests, JoinRequestID(eventID, userID))
	if _, err := s.notifications.RetractIn(ctx, b, Retraction{
		RecipientID: event.PosterID,
		Types:       []models.NotificationType{models.NotificationTypeGuestlistJoined},
		ActorID:     userID,
		EventID:     eventID,
	}); err != nil {
		return err
	}
	_, err = s.batcher.Run(ctx, "leave guestlist", b)
	return err
}

// CheckIn marks the guest checked in and records the event in the guest's
// attendance history in the same batch. Checking in twice keeps the first
// check-in time.
func (s *GuestlistService) CheckIn(ctx context.Context, eventID, userID, by string) (*models.GuestlistEntry, error) {
	if err := requireIDs(eventID, userID, by); err != nil {
		return nil, err
	}
	event, err := s.access.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.access.requireEventManager(ctx, event, by); err != nil {
		return nil, err
	}
	entry, err := s.entry(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotOnGuestlist
	}

	now := s.now().UTC()
	checkedInAt := now
	if entry.Status == models.GuestStatusCheckedIn && entry.CheckedInAt != nil {
		checkedInAt = *entry.CheckedInAt
	} else {
		entry.CheckedInBy = by
	}
	entry.Status = models.GuestStatusCheckedIn
	entry.CheckedInAt = &checkedInAt
	entry.UpdatedAt = now

	b := s.batcher.Batch()
	b.Update(CollectionGuestlists, GuestlistEntryID(eventID, userID), docstore.Fields{
		"status":        string(entry.Status),
		"checked_in_by": entry.CheckedInBy,
		"checked_in_at": checkedInAt,
		"updated_at":    now,
	})
	b.Set(CollectionAttendance, AttendanceID(userID, eventID), docstore.Fields{
		"user_id":     userID,
		"event_id":    eventID,
		"attended_at": checkedInAt,
	})
	if _, err := s.batcher.Run(ctx, "check in guest", b); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrNotOnGuestlist
		}
		return nil, err
	}
	return entry, nil
}

// Invite adds userID to the guestlist on a manager's behalf and notifies
// the guest.
func (s *GuestlistService) Invite(ctx context.Context, eventID, userID, by string) (*models.GuestlistEntry, error) {
	if err := requireIDs(eventID, userID, by); err != nil {
		return nil, err
	}
	event, err := s.access.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.access.requireEventManager(ctx, event, by); err != nil {
		return nil, err
	}
	if event.HasEnded(s.now()) {
		return nil, ErrEventEnded
	}
	existing, err := s.entry(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyOnGuestlist
	}
	user, err := s.access.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry := s.newEntry(eventID, user, by)
	b := s.batcher.Batch()
	b.Set(CollectionGuestlists, GuestlistEntryID(eventID, userID), guestlistFields(entry))
	if err := s.notifications.EmitIn(b, Notify{
		RecipientID: userID,
		Type:        models.NotificationTypeGuestlistAdded,
		ActorID:     by,
		EventID:     eventID,
	}); err != nil {
		return nil, err
	}
	if _, err := s.batcher.Run(ctx, "invite to guestlist", b); err != nil {
		return nil, err
	}
	return entry, nil
}

// RequestToJoin files a join request for an event that requires approval
// and notifies the poster.
func (s *GuestlistService) RequestToJoin(ctx context.Context, eventID, userID string) (*models.JoinRequest, error) {
	if err := requireIDs(eventID, userID); err != nil {
		return nil, err
	}
	event, entry, request, err := s.snapshot(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}

	switch ResolveActionState(event, s.now(), entry, request) {
	case models.ActionStatePastEvent:
		return nil, ErrEventEnded
	case models.ActionStateOnGuestlist:
		return nil, ErrAlreadyOnGuestlist
	case models.ActionStateInviteOnly:
		return nil, ErrInviteOnly
	case models.ActionStatePendingJoinRequest:
		return nil, ErrJoinRequestPending
	case models.ActionStateOpen:
		return nil, ErrApprovalNotRequired
	}

	now := s.now().UTC()
	req := &models.JoinRequest{
		EventID:   eventID,
		UserID:    userID,
		Status:    models.JoinRequestRequested,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b := s.batcher.Batch()
	b.Set(CollectionJoinRequests, JoinRequestID(eventID, userID), docstore.Fields{
		"event_id":   eventID,
		"user_id":    userID,
		"status":     string(req.Status),
		"created_at": now,
		"updated_at": now,
	})
	if err := s.notifications.EmitIn(b, Notify{
		RecipientID: event.PosterID,
		Type:        models.NotificationTypeGuestlistRequested,
		ActorID:     userID,
		EventID:     eventID,
	}); err != nil {
		return nil, err
	}
	if _, err := s.batcher.Run(ctx, "request to join", b); err != nil {
		return nil, err
	}
	return req, nil
}

// ApproveGuest accepts a pending join request: the guest is added to the
// guestlist and notified, and the poster's request notification is
// retracted.
func (s *GuestlistService) ApproveGuest(ctx context.Context, eventID, userID, by string) (*models.GuestlistEntry, error) {
	if err := requireIDs(eventID, userID, by); err != nil {
		return nil, err
	}
	event, entry, request, err := s.snapshot(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.access.requireEventManager(ctx, event, by); err != nil {
		return nil, err
	}
	if request == nil || request.Status != models.JoinRequestRequested {
		return nil, ErrJoinRequestNotFound
	}
	if entry != nil {
		return nil, ErrAlreadyOnGuestlist
	}
	user, err := s.access.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry = s.newEntry(eventID, user, by)
	b := s.batcher.Batch()
	b.Set(CollectionGuestlists, GuestlistEntryID(eventID, userID), guestlistFields(entry))
	b.Update(CollectionJoinRequests, JoinRequestID(eventID, userID), docstore.Fields{
		"status":      string(models.JoinRequestApproved),
		"approved_by": by,
		"updated_at":  entry.UpdatedAt,
	})
	if err := s.notifications.EmitIn(b, Notify{
		RecipientID: userID,
		Type:        models.NotificationTypeGuestlistAdded,
		ActorID:     by,
		EventID:     eventID,
	}); err != nil {
		return nil, err
	}
	if _, err := s.notifications.RetractIn(ctx, b, Retraction{
		RecipientID: event.PosterID,
		Types:       []models.NotificationType{models.NotificationTypeGuestlistRequested},
		ActorID:     userID,
		EventID:     eventID,
	}); err != nil {
		return nil, err
	}
	if _, err := s.batcher.Run(ctx, "approve guest", b); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrJoinRequestNotFound
		}
		return nil, err
	}
	return entry, nil
}

// Remove deletes a guest's entry on a manager's behalf and retracts the
// join and add notifications for that guest and event.
func (s *GuestlistService) Remove(ctx context.Context, eventID, userID, by string) error {
	if err := requireIDs(eventID, userID, by); err != nil {
		return err
	}
	event, err := s.access.loadEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if err := s.access.requireEventManager(ctx, event, by); err != nil {
		return err
	}
	entry, err := s.entry(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if entry == nil {
		return ErrNotOnGuestlist
	}

	b := s.batcher.Batch()
	b.Delete(CollectionGuestlists, GuestlistEntryID(eventID, userID))
	b.Delete(CollectionJoinRequests, JoinRequestID(eventID, userID))
	retractions := []Retraction{
		{
			RecipientID: event.PosterID,
			Types:       []models.NotificationType{models.NotificationTypeGuestlistJoined},
			ActorID:     userID,
			EventID:     eventID,
		},
		{
			RecipientID: userID,
			Types:       []models.NotificationType{models.NotificationTypeGuestlistAdded},
			EventID:     eventID,
		},
	}
	for _, r := range retractions {
		if _, err := s.notifications.RetractIn(ctx, b, r); err != nil {
			return err
		}
	}
	_, err = s.batcher.Run(ctx, "remove from guestlist", b)
	return err
}

// ActionState resolves the user's current action state for the event.
func (s *GuestlistService) ActionState(ctx context.Context, eventID, userID string) (models.EventUserActionState, error) {
	if err := requireIDs(eventID, userID); err != nil {
		return "", err
	}
	event, entry, request, err := s.snapshot(ctx, eventID, userID)
	if err != nil {
		return "", err
	}
	return ResolveActionState(event, s.now(), entry, request), nil
}

// List returns the event's guestlist ordered by user ID.
func (s *GuestlistService) List(ctx context.Context, eventID string) ([]models.GuestlistEntry, error) {
	if err := requireIDs(eventID); err != nil {
		return nil, err
	}
	if _, err := s.access.loadEvent(ctx, eventID); err != nil {
		return nil, err
	}
	docs, err := s.store.Query(ctx, CollectionGuestlists, docstore.Where("event_id", docstore.OpEqual, eventID))
	if err != nil {
		return nil, fmt.Errorf("listing guestlist: %w", err)
	}
	entries := make([]models.GuestlistEntry, 0, len(docs))
	for i := range docs {
		var entry models.GuestlistEntry
		if err := docstore.Decode(&docs[i], &entry); err != nil {
			return nil, fmt.Errorf("decoding guestlist entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *GuestlistService) snapshot(ctx context.Context, eventID, userID string) (*models.Event, *models.GuestlistEntry, *models.JoinRequest, error) {
	event, err := s.access.loadEvent(ctx, eventID)
	if err != nil {
		return nil, nil, nil, err
	}
	entry, err := s.entry(ctx, eventID, userID)
	if err != nil {
		return nil, nil, nil, err
	}
	request, err := load[models.JoinRequest](ctx, s.store, CollectionJoinRequests, JoinRequestID(eventID, userID), nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return event, entry, request, nil
}

func (s *GuestlistService) entry(ctx context.Context, eventID, userID string) (*models.GuestlistEntry, error) {
	return load[models.GuestlistEntry](ctx, s.store, CollectionGuestlists, GuestlistEntryID(eventID, userID), nil)
}

func (s *GuestlistService) newEntry(eventID string, user *models.User, invitedBy string) *models.GuestlistEntry {
	now := s.now().UTC()
	return &models.GuestlistEntry{
		EventID:    eventID,
		UserID:     user.ID,
		Status:     models.GuestStatusInvited,
		InvitedBy:  invitedBy,
		Name:       user.Name,
		AvatarURL:  user.AvatarURL,
		University: user.University,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func guestlistFields(e *models.GuestlistEntry) docstore.Fields {
	fields := docstore.Fields{
		"event_id":   e.EventID,
		"user_id":    e.UserID,
		"status":     string(e.Status),
		"name":       e.Name,
		"avatar_url": e.AvatarURL,
		"university": e.University,
		"created_at": e.CreatedAt,
		"updated_at": e.UpdatedAt,
	}
	if e.InvitedBy != "" {
		fields["invited_by"] = e.InvitedBy
	}
	return fields
}
