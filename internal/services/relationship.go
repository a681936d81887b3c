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
	ErrSelfRelationship     = errors.New("cannot form a relationship with yourself")
	ErrDuplicateRequest     = errors.New("a friend request between these users is already pending")
	ErrAlreadyFriends       = errors.New("users are already friends")
	ErrRelationshipBlocked  = errors.New("relationship is blocked")
	ErrRequestNotFound      = errors.New("no pending friend request from this user")
	ErrRelationshipNotFound = errors.New("relationship not found")
	ErrNotBlocker           = errors.New("only the user who blocked can unblock")
)

var friendNotificationTypes = []models.NotificationType{
	models.NotificationTypeFriendRequest,
	models.NotificationTypeFriendAccepted,
}

type RelationshipService struct {
	store         docstore.Store
	batcher       *Batcher
	notifications *NotificationService
	now           func() time.Time
}

func NewRelationshipService(store docstore.Store, notifications *NotificationService) *RelationshipService {
	return &RelationshipService{
		store:         store,
		batcher:       NewBatcher(store),
		notifications: notifications,
		now:           time.Now,
	}
}

func (s *RelationshipService) SetClock(now func() time.Time) {
	s.now = now
}

// SendRequest creates a pending request from -> to and notifies to. A
// request already pending in either direction is ErrDuplicateRequest and
// writes nothing.
func (s *RelationshipService) SendRequest(ctx context.Context, from, to string) (*models.Relationship, error) {
	if err := validatePair(from, to); err != nil {
		return nil, err
	}

	key := CanonicalKey(from, to)
	existing, err := s.get(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		switch existing.State {
		case models.RelationshipRequestSent:
			return nil, ErrDuplicateRequest
		case models.RelationshipFriends:
			return nil, ErrAlreadyFriends
		case models.RelationshipBlocked:
			return nil, ErrRelationshipBlocked
		}
	}

	now := s.now().UTC()
	rel := &models.Relationship{
		Key:         key,
		InitiatorID: from,
		RecipientID: to,
		UserIDs:     sortedPair(from, to),
		State:       models.RelationshipRequestSent,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	b := s.batcher.Batch()
	b.Set(CollectionRelationships, key, relationshipFields(rel))
	if err := s.notifications.EmitIn(b, Notify{
		RecipientID: to,
		Type:        models.NotificationTypeFriendRequest,
		ActorID:     from,
	}); err != nil {
		return nil, err
	}
	if _, err := s.batcher.Run(ctx, "send friend request", b); err != nil {
		return nil, err
	}
	return rel, nil
}

// Accept turns the request that requesterID sent to userID into a
// friendship and notifies the requester.
func (s *RelationshipService) Accept(ctx context.Context, userID, requesterID string) (*models.Relationship, error) {
	if err := validatePair(userID, requesterID); err != nil {
		return nil, err
	}

	key := CanonicalKey(userID, requesterID)
	rel, err := s.get(ctx, key)
	if err != nil {
		return nil, err
	}
	switch rel.StateFor(userID) {
	case models.RelationshipRequestReceived:
	case models.RelationshipFriends:
		return nil, ErrAlreadyFriends
	case models.RelationshipBlocked:
		return nil, ErrRelationshipBlocked
	default:
		return nil, ErrRequestNotFound
	}

	rel.State = models.RelationshipFriends
	rel.UpdatedAt = s.now().UTC()

	// Update fails if the request was withdrawn since the read above.
	b := s.batcher.Batch()
	b.Update(CollectionRelationships, key, docstore.Fields{
		"state":      string(rel.State),
		"updated_at": rel.UpdatedAt,
	})
	if err := s.notifications.EmitIn(b, Notify{
		RecipientID: requesterID,
		Type:        models.NotificationTypeFriendAccepted,
		ActorID:     userID,
	}); err != nil {
		return nil, err
	}
	if _, err := s.batcher.Run(ctx, "accept friend request", b); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return rel, nil
}

// CancelOrRemove deletes the pair's relationship whatever its state and
// retracts friend notifications between them in both directions.
func (s *RelationshipService) CancelOrRemove(ctx context.Context, a, b string) error {
	if err := validatePair(a, b); err != nil {
		return err
	}

	batch := s.batcher.Batch()
	batch.Delete(CollectionRelationships, CanonicalKey(a, b))
	if err := s.retractFriendNotifications(ctx, batch, a, b); err != nil {
		return err
	}
	_, err := s.batcher.Run(ctx, "remove relationship", batch)
	return err
}

// retractFriendNotifications stages removal of friend notifications
// between a and b in both directions.
func (s *RelationshipService) retractFriendNotifications(ctx context.Context, batch docstore.Batch, a, b string) error {
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		if _, err := s.notifications.RetractIn(ctx, batch, Retraction{
			RecipientID: pair[0],
			Types:       friendNotificationTypes,
			ActorID:     pair[1],
		}); err != nil {
			return err
		}
	}
	return nil
}

// Block marks the pair blocked regardless of prior state. Fields not
// touched by the block survive the merge. Blocking is silent.
func (s *RelationshipService) Block(ctx context.Context, initiator, target string) (*models.Relationship, error) {
	if err := validatePair(initiator, target); err != nil {
		return nil, err
	}

	key := CanonicalKey(initiator, target)
	existing, err := s.get(ctx, key)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	fields := docstore.Fields{
		"key":          key,
		"initiator_id": initiator,
		"recipient_id": target,
		"user_ids":     sortedPair(initiator, target),
		"state":        string(models.RelationshipBlocked),
		"updated_at":   now,
	}
	rel := &models.Relationship{
		Key:         key,
		InitiatorID: initiator,
		RecipientID: target,
		UserIDs:     sortedPair(initiator, target),
		State:       models.RelationshipBlocked,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if existing == nil {
		fields["created_at"] = now
	} else {
		rel.CreatedAt = existing.CreatedAt
	}

	if err := s.store.Set(ctx, CollectionRelationships, key, fields, docstore.Merge()); err != nil {
		return nil, fmt.Errorf("blocking user: %w", err)
	}
	return rel, nil
}

// Unblock removes a block and any friend notifications left over from
// before it. Only the user who placed it may lift it.
func (s *RelationshipService) Unblock(ctx context.Context, initiator, target string) error {
	if err := validatePair(initiator, target); err != nil {
		return err
	}

	key := CanonicalKey(initiator, target)
	rel, err := s.get(ctx, key)
	if err != nil {
		return err
	}
	if rel == nil || rel.State != models.RelationshipBlocked {
		return ErrRelationshipNotFound
	}
	if rel.InitiatorID != initiator {
		return ErrNotBlocker
	}

	batch := s.batcher.Batch()
	batch.Delete(CollectionRelationships, key)
	if err := s.retractFriendNotifications(ctx, batch, initiator, target); err != nil {
		return err
	}
	_, err = s.batcher.Run(ctx, "unblock user", batch)
	return err
}

// Status resolves the relationship between viewer and other as viewer sees it.
func (s *RelationshipService) Status(ctx context.Context, viewer, other string) (models.RelationshipView, error) {
	if err := validatePair(viewer, other); err != nil {
		return models.RelationshipView{}, err
	}
	rel, err := s.get(ctx, CanonicalKey(viewer, other))
	if err != nil {
		return models.RelationshipView{}, err
	}
	return rel.ViewFor(viewer, other), nil
}

func (s *RelationshipService) ListFriends(ctx context.Context, userID string) ([]models.RelationshipView, error) {
	if err := requireIDs(userID); err != nil {
		return nil, err
	}
	return s.list(ctx, userID,
		docstore.Where("user_ids", docstore.OpArrayContains, userID),
		docstore.Where("state", docstore.OpEqual, string(models.RelationshipFriends)),
	)
}

// ListIncomingRequests returns pending requests addressed to userID.
func (s *RelationshipService) ListIncomingRequests(ctx context.Context, userID string) ([]models.RelationshipView, error) {
	if err := requireIDs(userID); err != nil {
		return nil, err
	}
	return s.list(ctx, userID,
		docstore.Where("recipient_id", docstore.OpEqual, userID),
		docstore.Where("state", docstore.OpEqual, string(models.RelationshipRequestSent)),
	)
}

// Watch calls fn with the viewer's state every time the pair's relationship
// document changes, until ctx is done or the subscription is closed.
func (s *RelationshipService) Watch(ctx context.Context, viewer, other string, fn func(models.RelationshipView)) (docstore.Subscription, error) {
	if err := validatePair(viewer, other); err != nil {
		return nil, err
	}
	return s.store.Subscribe(ctx, CollectionRelationships, CanonicalKey(viewer, other), func(change docstore.Change) {
		var rel *models.Relationship
		if change.Kind == docstore.ChangeSet {
			var decoded models.Relationship
			if err := docstore.DecodeFields(change.Fields, &decoded); err != nil {
				return
			}
			rel = &decoded
		}
		fn(rel.ViewFor(viewer, other))
	})
}

func (s *RelationshipService) list(ctx context.Context, viewer string, preds ...docstore.Predicate) ([]models.RelationshipView, error) {
	docs, err := s.store.Query(ctx, CollectionRelationships, preds...)
	if err != nil {
		return nil, fmt.Errorf("listing relationships: %w", err)
	}
	views := make([]models.RelationshipView, 0, len(docs))
	for i := range docs {
		var rel models.Relationship
		if err := docstore.Decode(&docs[i], &rel); err != nil {
			return nil, fmt.Errorf("decoding relationship: %w", err)
		}
		rel.Key = docs[i].ID
		views = append(views, rel.ViewFor(viewer, rel.OtherUser(viewer)))
	}
	return views, nil
}

func (s *RelationshipService) get(ctx context.Context, key string) (*models.Relationship, error) {
	rel, err := load[models.Relationship](ctx, s.store, CollectionRelationships, key, nil)
	if err != nil {
		return nil, err
	}
	if rel != nil {
		rel.Key = key
	}
	return rel, nil
}

func relationshipFields(rel *models.Relationship) docstore.Fields {
	return docstore.Fields{
		"key":          rel.Key,
		"initiator_id": rel.InitiatorID,
		"recipient_id": rel.RecipientID,
		"user_ids":     rel.UserIDs,
		"state":        string(rel.State),
		"created_at":   rel.CreatedAt,
		"updated_at":   rel.UpdatedAt,
	}
}

func validatePair(a, b string) error {
	if err := requireIDs(a, b); err != nil {
		return err
	}
	if a == b {
		return ErrSelfRelationship
	}
	return nil
}
