package handlers

import (
	"context"

	"github.com/HammerMeetNail/guestlist/internal/docstore"
	"github.com/HammerMeetNail/guestlist/internal/models"
	"github.com/HammerMeetNail/guestlist/internal/services"
)

type mockRelationshipService struct {
	SendRequestFunc          func(ctx context.Context, from, to string) (*models.Relationship, error)
	AcceptFunc               func(ctx context.Context, userID, requesterID string) (*models.Relationship, error)
	CancelOrRemoveFunc       func(ctx context.Context, a, b string) error
	BlockFunc                func(ctx context.Context, initiator, target string) (*models.Relationship, error)
	UnblockFunc              func(ctx context.Context, initiator, target string) error
	StatusFunc               func(ctx context.Context, viewer, other string) (models.RelationshipView, error)
	ListFriendsFunc          func(ctx context.Context, userID string) ([]models.RelationshipView, error)
	ListIncomingRequestsFunc func(ctx context.Context, userID string) ([]models.RelationshipView, error)
	WatchFunc                func(ctx context.Context, viewer, other string, fn func(models.RelationshipView)) (docstore.Subscription, error)
}

func (m *mockRelationshipService) SendRequest(ctx context.Context, from, to string) (*models.Relationship, error) {
	if m.SendRequestFunc != nil {
		return m.SendRequestFunc(ctx, from, to)
	}
	return nil, nil
}

func (m *mockRelationshipService) Accept(ctx context.Context, userID, requesterID string) (*models.Relationship, error) {
	if m.AcceptFunc != nil {
		return m.AcceptFunc(ctx, userID, requesterID)
	}
	return nil, nil
}

func (m *mockRelationshipService) CancelOrRemove(ctx context.Context, a, b string) error {
	if m.CancelOrRemoveFunc != nil {
		return m.CancelOrRemoveFunc(ctx, a, b)
	}
	return nil
}

func (m *mockRelationshipService) Block(ctx context.Context, initiator, target string) (*models.Relationship, error) {
	if m.BlockFunc != nil {
		return m.BlockFunc(ctx, initiator, target)
	}
	return nil, nil
}

func (m *mockRelationshipService) Unblock(ctx context.Context, initiator, target string) error {
	if m.UnblockFunc != nil {
		return m.UnblockFunc(ctx, initiator, target)
	}
	return nil
}

func (m *mockRelationshipService) Status(ctx context.Context, viewer, other string) (models.RelationshipView, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, viewer, other)
	}
	return models.RelationshipView{UserID: other, State: models.RelationshipNotFriends}, nil
}

func (m *mockRelationshipService) ListFriends(ctx context.Context, userID string) ([]models.RelationshipView, error) {
	if m.ListFriendsFunc != nil {
		return m.ListFriendsFunc(ctx, userID)
	}
	return []models.RelationshipView{}, nil
}

func (m *mockRelationshipService) ListIncomingRequests(ctx context.Context, userID string) ([]models.RelationshipView, error) {
	if m.ListIncomingRequestsFunc != nil {
		return m.ListIncomingRequestsFunc(ctx, userID)
	}
	return []models.RelationshipView{}, nil
}

func (m *mockRelationshipService) Watch(ctx context.Context, viewer, other string, fn func(models.RelationshipView)) (docstore.Subscription, error) {
	if m.WatchFunc != nil {
		return m.WatchFunc(ctx, viewer, other, fn)
	}
	return &mockSubscription{}, nil
}

type mockSubscription struct {
	closed bool
}

func (s *mockSubscription) Close() error {
	s.closed = true
	return nil
}

type mockGuestlistService struct {
	JoinFunc          func(ctx context.Context, eventID, userID string) (*models.GuestlistEntry, error)
	LeaveFunc         func(ctx context.Context, eventID, userID string) error
	CheckInFunc       func(ctx context.Context, eventID, userID, by string) (*models.GuestlistEntry, error)
	InviteFunc        func(ctx context.Context, eventID, userID, by string) (*models.GuestlistEntry, error)
	RequestToJoinFunc func(ctx context.Context, eventID, userID string) (*models.JoinRequest, error)
	ApproveGuestFunc  func(ctx context.Context, eventID, userID, by string) (*models.GuestlistEntry, error)
	RemoveFunc        func(ctx context.Context, eventID, userID, by string) error
	ActionStateFunc   func(ctx context.Context, eventID, userID string) (models.EventUserActionState, error)
	ListFunc          func(ctx context.Context, eventID string) ([]models.GuestlistEntry, error)
}

func (m *mockGuestlistService) Join(ctx context.Context, eventID, userID string) (*models.GuestlistEntry, error) {
	if m.JoinFunc != nil {
		return m.JoinFunc(ctx, eventID, userID)
	}
	return &models.GuestlistEntry{EventID: eventID, UserID: userID, Status: models.GuestStatusInvited}, nil
}

func (m *mockGuestlistService) Leave(ctx context.Context, eventID, userID string) error {
	if m.LeaveFunc != nil {
		return m.LeaveFunc(ctx, eventID, userID)
	}
	return nil
}

func (m *mockGuestlistService) CheckIn(ctx context.Context, eventID, userID, by string) (*models.GuestlistEntry, error) {
	if m.CheckInFunc != nil {
		return m.CheckInFunc(ctx, eventID, userID, by)
	}
	return &models.GuestlistEntry{EventID: eventID, UserID: userID, Status: models.GuestStatusCheckedIn, CheckedInBy: by}, nil
}

func (m *mockGuestlistService) Invite(ctx context.Context, eventID, userID, by string) (*models.GuestlistEntry, error) {
	if m.InviteFunc != nil {
		return m.InviteFunc(ctx, eventID, userID, by)
	}
	return &models.GuestlistEntry{EventID: eventID, UserID: userID, InvitedBy: by}, nil
}

func (m *mockGuestlistService) RequestToJoin(ctx context.Context, eventID, userID string) (*models.JoinRequest, error) {
	if m.RequestToJoinFunc != nil {
		return m.RequestToJoinFunc(ctx, eventID, userID)
	}
	return &models.JoinRequest{EventID: eventID, UserID: userID, Status: models.JoinRequestRequested}, nil
}

func (m *mockGuestlistService) ApproveGuest(ctx context.Context, eventID, userID, by string) (*models.GuestlistEntry, error) {
	if m.ApproveGuestFunc != nil {
		return m.ApproveGuestFunc(ctx, eventID, userID, by)
	}
	return &models.GuestlistEntry{EventID: eventID, UserID: userID, InvitedBy: by}, nil
}

func (m *mockGuestlistService) Remove(ctx context.Context, eventID, userID, by string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, eventID, userID, by)
	}
	return nil
}

func (m *mockGuestlistService) ActionState(ctx context.Context, eventID, userID string) (models.EventUserActionState, error) {
	if m.ActionStateFunc != nil {
		return m.ActionStateFunc(ctx, eventID, userID)
	}
	return models.ActionStateOpen, nil
}

func (m *mockGuestlistService) List(ctx context.Context, eventID string) ([]models.GuestlistEntry, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, eventID)
	}
	return []models.GuestlistEntry{}, nil
}

type mockMembershipService struct {
	InviteFunc  func(ctx context.Context, hostID, userID, by string) (*models.HostMembership, error)
	AcceptFunc  func(ctx context.Context, hostID, userID string) (*models.HostMembership, error)
	RejectFunc  func(ctx context.Context, hostID, userID string) error
	RemoveFunc  func(ctx context.Context, hostID, userID, by string) error
	MembersFunc func(ctx context.Context, hostID string) ([]models.HostMembership, error)
}

func (m *mockMembershipService) Invite(ctx context.Context, hostID, userID, by string) (*models.HostMembership, error) {
	if m.InviteFunc != nil {
		return m.InviteFunc(ctx, hostID, userID, by)
	}
	return &models.HostMembership{HostID: hostID, UserID: userID, Status: models.MembershipInvited, InvitedBy: by}, nil
}

func (m *mockMembershipService) Accept(ctx context.Context, hostID, userID string) (*models.HostMembership, error) {
	if m.AcceptFunc != nil {
		return m.AcceptFunc(ctx, hostID, userID)
	}
	return &models.HostMembership{HostID: hostID, UserID: userID, Status: models.MembershipJoined}, nil
}

func (m *mockMembershipService) Reject(ctx context.Context, hostID, userID string) error {
	if m.RejectFunc != nil {
		return m.RejectFunc(ctx, hostID, userID)
	}
	return nil
}

func (m *mockMembershipService) Remove(ctx context.Context, hostID, userID, by string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, hostID, userID, by)
	}
	return nil
}

func (m *mockMembershipService) Members(ctx context.Context, hostID string) ([]models.HostMembership, error) {
	if m.MembersFunc != nil {
		return m.MembersFunc(ctx, hostID)
	}
	return []models.HostMembership{}, nil
}

type mockNotificationService struct {
	ListFunc        func(ctx context.Context, userID string, params services.NotificationListParams) ([]models.Notification, error)
	MarkReadFunc    func(ctx context.Context, userID, notificationID string) error
	MarkAllReadFunc func(ctx context.Context, userID string) error
	UnreadCountFunc func(ctx context.Context, userID string) (int, error)
}

func (m *mockNotificationService) List(ctx context.Context, userID string, params services.NotificationListParams) ([]models.Notification, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID, params)
	}
	return []models.Notification{}, nil
}

func (m *mockNotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, userID, notificationID)
	}
	return nil
}

func (m *mockNotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if m.MarkAllReadFunc != nil {
		return m.MarkAllReadFunc(ctx, userID)
	}
	return nil
}

func (m *mockNotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	if m.UnreadCountFunc != nil {
		return m.UnreadCountFunc(ctx, userID)
	}
	return 0, nil
}
