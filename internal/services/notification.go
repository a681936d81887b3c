package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/guestlist/internal/docstore"
	"github.com/HammerMeetNail/guestlist/internal/models"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidNotification  = errors.New("notification needs a recipient and a type")
	ErrInvalidRetraction    = errors.New("retraction needs a recipient and at least one type")
)

// Notify describes a notification to emit. ActorID, EventID and HostID are
// optional scopes that later retractions match on.
type Notify struct {
	RecipientID string
	Type        models.NotificationType
	ActorID     string
	EventID     string
	HostID      string
}

// Retraction selects notifications to delete. Every non-empty field must
// match.
type Retraction struct {
	RecipientID string
	Types       []models.NotificationType
	ActorID     string
	EventID     string
	HostID      string
}

type NotificationListParams struct {
	Limit      int
	Before     *time.Time
	UnreadOnly bool
}

type NotificationService struct {
	store docstore.Store
	now   func() time.Time
	newID func() string
}

func NewNotificationService(store docstore.Store) *NotificationService {
	return &NotificationService{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

func (s *NotificationService) SetClock(now func() time.Time) {
	s.now = now
}

// EmitIn stages n in batch so it commits together with the transition that
// caused it. Self-notifications are skipped.
func (s *NotificationService) EmitIn(batch docstore.Batch, n Notify) error {
	if n.RecipientID == "" || n.Type == "" {
		return ErrInvalidNotification
	}
	if n.RecipientID == n.ActorID {
		return nil
	}
	id := s.newID()
	batch.Set(CollectionNotifications, id, s.fields(id, n))
	return nil
}

// Emit writes a single notification outside of any batch.
func (s *NotificationService) Emit(ctx context.Context, n Notify) error {
	b := s.store.Batch()
	if err := s.EmitIn(b, n); err != nil {
		return err
	}
	if b.Len() == 0 {
		return nil
	}
	if err := b.Commit(ctx); err != nil {
		return fmt.Errorf("emitting notification: %w", err)
	}
	return nil
}

// RetractIn looks up the notifications matching r and stages their deletion
// in batch. Finding none is not an error.
func (s *NotificationService) RetractIn(ctx context.Context, batch docstore.Batch, r Retraction) (int, error) {
	docs, err := s.match(ctx, r)
	if err != nil {
		return 0, err
	}
	for _, doc := range docs {
		batch.Delete(CollectionNotifications, doc.ID)
	}
	return len(docs), nil
}

// Retract deletes every notification matching r and returns how many were
// found.
func (s *NotificationService) Retract(ctx context.Context, r Retraction) (int, error) {
	b := s.store.Batch()
	n, err := s.RetractIn(ctx, b, r)
	if err != nil || n == 0 {
		return n, err
	}
	if err := b.Commit(ctx); err != nil {
		return 0, fmt.Errorf("retracting notifications: %w", err)
	}
	return n, nil
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, params NotificationListParams) ([]models.Notification, error) {
	if err := requireIDs(userID); err != nil {
		return nil, err
	}
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	preds := []docstore.Predicate{docstore.Where("recipient_id", docstore.OpEqual, userID)}
	if params.UnreadOnly {
		preds = append(preds, docstore.Where("read", docstore.OpEqual, false))
	}
	docs, err := s.store.Query(ctx, CollectionNotifications, preds...)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	notifications := make([]models.Notification, 0, len(docs))
	for i := range docs {
		var n models.Notification
		if err := docstore.Decode(&docs[i], &n); err != nil {
			return nil, fmt.Errorf("decoding notification: %w", err)
		}
		n.ID = docs[i].ID
		if params.Before != nil && !n.CreatedAt.Before(*params.Before) {
			continue
		}
		notifications = append(notifications, n)
	}

	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	if len(notifications) > limit {
		notifications = notifications[:limit]
	}
	return notifications, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	if err := requireIDs(userID, notificationID); err != nil {
		return err
	}
	n, err := load[models.Notification](ctx, s.store, CollectionNotifications, notificationID, ErrNotificationNotFound)
	if err != nil {
		return err
	}
	if n.RecipientID != userID {
		return ErrNotificationNotFound
	}
	if n.Read {
		return nil
	}
	if err := s.store.Update(ctx, CollectionNotifications, notificationID, docstore.Fields{"read": true}); err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	docs, err := s.unread(ctx, userID)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	b := s.store.Batch()
	for _, doc := range docs {
		b.Update(CollectionNotifications, doc.ID, docstore.Fields{"read": true})
	}
	if err := b.Commit(ctx); err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	return nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	docs, err := s.unread(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (s *NotificationService) unread(ctx context.Context, userID string) ([]docstore.Document, error) {
	if err := requireIDs(userID); err != nil {
		return nil, err
	}
	docs, err := s.store.Query(ctx, CollectionNotifications,
		docstore.Where("recipient_id", docstore.OpEqual, userID),
		docstore.Where("read", docstore.OpEqual, false),
	)
	if err != nil {
		return nil, fmt.Errorf("counting unread notifications: %w", err)
	}
	return docs, nil
}

func (s *NotificationService) match(ctx context.Context, r Retraction) ([]docstore.Document, error) {
	if r.RecipientID == "" || len(r.Types) == 0 {
		return nil, ErrInvalidRetraction
	}

	preds := []docstore.Predicate{docstore.Where("recipient_id", docstore.OpEqual, r.RecipientID)}
	if len(r.Types) == 1 {
		preds = append(preds, docstore.Where("type", docstore.OpEqual, string(r.Types[0])))
	} else {
		types := make([]string, len(r.Types))
		for i, t := range r.Types {
			types[i] = string(t)
		}
		preds = append(preds, docstore.Where("type", docstore.OpIn, types))
	}
	scopes := []struct{ field, value string }{
		{"actor_id", r.ActorID},
		{"event_id", r.EventID},
		{"host_id", r.HostID},
	}
	for _, scope := range scopes {
		if scope.value != "" {
			preds = append(preds, docstore.Where(scope.field, docstore.OpEqual, scope.value))
		}
	}

	docs, err := s.store.Query(ctx, CollectionNotifications, preds...)
	if err != nil {
		return nil, fmt.Errorf("finding notifications to retract: %w", err)
	}
	return docs, nil
}

func (s *NotificationService) fields(id string, n Notify) docstore.Fields {
	fields := docstore.Fields{
		"id":           id,
		"recipient_id": n.RecipientID,
		"type":         string(n.Type),
		"read":         false,
		"created_at":   s.now().UTC(),
	}
	if n.ActorID != "" {
		fields["actor_id"] = n.ActorID
	}
	if n.EventID != "" {
		fields["event_id"] = n.EventID
	}
	if n.HostID != "" {
		fields["host_id"] = n.HostID
	}
	return fields
}
