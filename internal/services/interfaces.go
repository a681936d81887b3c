package services

import (
	"context"

	"github.com/HammerMeetNail/guestlist/internal/docstore"
	"github.com/HammerMeetNail/guestlist/internal/models"
)

// RelationshipServiceInterface defines the contract for friend and block operations used by handlers.
type RelationshipServiceInterface interface {
	SendRequest(ctx context.Context, from, to string) (*models.Relationship, error)
	Accept(ctx context.Context, userID, requesterID string) (*models.Relationship, error)
	CancelOrRemove(ctx context.Context, a, b string) error
	Block(ctx context.Context, initiator, target string) (*models.Relationship, error)
	Unblock(ctx context.Context, initiator, target string) error
	Status(ctx context.Context, viewer, other string) (models.RelationshipView, error)
	ListFriends(ctx context.Context, userID string) ([]models.RelationshipView, error)
	ListIncomingRequests(ctx context.Context, userID string) ([]models.RelationshipView, error)
	Watch(ctx context.Context, viewer, other string, fn func(models.RelationshipView)) (docstore.Subscription, error)
}

// GuestlistServiceInterface defines the contract for event attendance operations.
type GuestlistServiceInterface interface {
	Join(ctx context.Context, eventID, userID string) (*models.GuestlistEntry, error)
	Leave(ctx context.Context, eventID, userID string) error
	CheckIn(ctx context.Context, eventID, userID, by string) (*models.GuestlistEntry, error)
	Invite(ctx context.Context, eventID, userID, by string) (*models.GuestlistEntry, error)
	RequestToJoin(ctx context.Context, eventID, userID string) (*models.JoinRequest, error)
	ApproveGuest(ctx context.Context, eventID, userID, by string) (*models.GuestlistEntry, error)
	Remove(ctx context.Context, eventID, userID, by string) error
	ActionState(ctx context.Context, eventID, userID string) (models.EventUserActionState, error)
	List(ctx context.Context, eventID string) ([]models.GuestlistEntry, error)
}

// MembershipServiceInterface defines the contract for host membership operations.
type MembershipServiceInterface interface {
	Invite(ctx context.Context, hostID, userID, by string) (*models.HostMembership, error)
	Accept(ctx context.Context, hostID, userID string) (*models.HostMembership, error)
	Reject(ctx context.Context, hostID, userID string) error
	Remove(ctx context.Context, hostID, userID, by string) error
	Members(ctx context.Context, hostID string) ([]models.HostMembership, error)
}

// NotificationServiceInterface defines the contract for the notification read paths.
type NotificationServiceInterface interface {
	List(ctx context.Context, userID string, params NotificationListParams) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

var (
	_ RelationshipServiceInterface = (*RelationshipService)(nil)
	_ GuestlistServiceInterface    = (*GuestlistService)(nil)
	_ MembershipServiceInterface   = (*MembershipService)(nil)
	_ NotificationServiceInterface = (*NotificationService)(nil)
)
