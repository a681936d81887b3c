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
	ErrHostNotFound       = errors.New("host not found")
	ErrAlreadyMember      = errors.New("user is already a member of this host")
	ErrInvitePending      = errors.New("a membership invite is already pending")
	ErrInviteNotFound     = errors.New("no pending membership invite")
	ErrMembershipNotFound = errors.New("membership not found")
)

const (
	stepUserMembership  = "user.membership"
	stepUserAccountType = "user.account_type"
)

// MembershipService runs the host membership lifecycle. The link document
// and its notifications commit in one batch; the user's membership set and
// account type live on the user document and are updated afterwards as
// dependent steps.
type MembershipService struct {
	store         docstore.Store
	batcher       *Batcher
	notifications *NotificationService
	access        access
	now           func() time.Time
}

func NewMembershipService(store docstore.Store, notifications *NotificationService) *MembershipService {
	return &MembershipService{
		store:         store,
		batcher:       NewBatcher(store),
		notifications: notifications,
		access:        access{store: store},
		now:           time.Now,
	}
}

func (s *MembershipService) SetClock(now func() time.Time) {
	s.now = now
}

// Invite creates a pending invite for userID. At most one invite per pair
// can be pending.
func (s *MembershipService) Invite(ctx context.Context, hostID, userID, by string) (*models.HostMembership, error) {
	if err := requireIDs(hostID, userID, by); err != nil {
		return nil, err
	}
	host, err := s.access.loadHost(ctx, hostID)
	if err != nil {
		return nil, err
	}
	ok, err := s.access.canManageHost(ctx, host, by)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotHostManager
	}
	if _, err := s.access.loadUser(ctx, userID); err != nil {
		return nil, err
	}

	link, err := s.link(ctx, hostID, userID)
	if err != nil {
		return nil, err
	}
	if link != nil {
		if link.Status == models.MembershipJoined {
			return nil, ErrAlreadyMember
		}
		return nil, ErrInvitePending
	}

	now := s.now().UTC()
	link = &models.HostMembership{
		HostID:    hostID,
		UserID:    userID,
		Status:    models.MembershipInvited,
		InvitedBy: by,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b := s.batcher.Batch()
	b.Set(CollectionHostMembers, MembershipID(hostID, userID), docstore.Fields{
		"host_id":    hostID,
		"user_id":    userID,
		"status":     string(link.Status),
		"invited_by": by,
		"created_at": now,
		"updated_at": now,
	})
	if err := s.notifications.EmitIn(b, Notify{
		RecipientID: userID,
		Type:        models.NotificationTypeMemberInvited,
		ActorID:     by,
		HostID:      hostID,
	}); err != nil {
		return nil, err
	}
	if _, err := s.batcher.Run(ctx, "invite member", b); err != nil {
		return nil, err
	}
	return link, nil
}

// Accept joins userID to the host. Accepting an already joined link only
// re-runs the user document update, and only when the user document is
// missing the host.
func (s *MembershipService) Accept(ctx context.Context, hostID, userID string) (*models.HostMembership, error) {
	if err := requireIDs(hostID, userID); err != nil {
		return nil, err
	}
	host, err := s.access.loadHost(ctx, hostID)
	if err != nil {
		return nil, err
	}
	link, err := s.link(ctx, hostID, userID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrInviteNotFound
	}

	var primary docstore.Batch
	if link.Status != models.MembershipJoined {
		link.Status = models.MembershipJoined
		link.UpdatedAt = s.now().UTC()

		primary = s.batcher.Batch()
		primary.Update(CollectionHostMembers, MembershipID(hostID, userID), docstore.Fields{
			"status":     string(link.Status),
			"updated_at": link.UpdatedAt,
		})
		if host.OwnerID != "" {
			if err := s.notifications.EmitIn(primary, Notify{
				RecipientID: host.OwnerID,
				Type:        models.NotificationTypeMemberJoined,
				ActorID:     userID,
				HostID:      hostID,
			}); err != nil {
				return nil, err
			}
		}
		if _, err := s.notifications.RetractIn(ctx, primary, Retraction{
			RecipientID: userID,
			Types:       []models.NotificationType{models.NotificationTypeMemberInvited},
			HostID:      hostID,
		}); err != nil {
			return nil, err
		}
	}

	var steps []Step
	if primary != nil {
		steps = append(steps, s.addToUser(hostID, userID))
	} else {
		user, err := s.access.loadUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !user.IsMemberOf(hostID) || user.AccountType != models.AccountTypeMember {
			steps = append(steps, s.addToUser(hostID, userID))
		}
	}

	if _, err := s.batcher.Run(ctx, "accept membership", primary, steps...); err != nil {
		if !errors.Is(err, ErrDependentStep) && errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrInviteNotFound
		}
		return link, err
	}
	return link, nil
}

// Reject declines a pending invite.
func (s *MembershipService) Reject(ctx context.Context, hostID, userID string) error {
	if err := requireIDs(hostID, userID); err != nil {
		return err
	}
	link, err := s.link(ctx, hostID, userID)
	if err != nil {
		return err
	}
	if link == nil || link.Status != models.MembershipInvited {
		return ErrInviteNotFound
	}

	b := s.batcher.Batch()
	b.Delete(CollectionHostMembers, MembershipID(hostID, userID))
	if _, err := s.notifications.RetractIn(ctx, b, Retraction{
		RecipientID: userID,
		Types:       []models.NotificationType{models.NotificationTypeMemberInvited},
		HostID:      hostID,
	}); err != nil {
		return err
	}
	_, err = s.batcher.Run(ctx, "reject membership", b)
	return err
}

// Remove ends a membership or withdraws a pending invite. Users may remove
// themselves; anyone else must manage the host. For a joined member the host
// is then taken out of the user's membership set and the account type
// reverts to personal when no memberships remain.
func (s *MembershipService) Remove(ctx context.Context, hostID, userID, by string) error {
	if err := requireIDs(hostID, userID, by); err != nil {
		return err
	}
	host, err := s.access.loadHost(ctx, hostID)
	if err != nil {
		return err
	}
	if by != userID {
		ok, err := s.access.canManageHost(ctx, host, by)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotHostManager
		}
	}
	link, err := s.link(ctx, hostID, userID)
	if err != nil {
		return err
	}
	if link == nil {
		return ErrMembershipNotFound
	}

	b := s.batcher.Batch()
	b.Delete(CollectionHostMembers, MembershipID(hostID, userID))
	retractions := []Retraction{
		{
			RecipientID: host.OwnerID,
			Types:       []models.NotificationType{models.NotificationTypeMemberJoined},
			ActorID:     userID,
			HostID:      hostID,
		},
		{
			RecipientID: userID,
			Types:       []models.NotificationType{models.NotificationTypeMemberInvited},
			HostID:      hostID,
		},
	}
	for _, r := range retractions {
		if r.RecipientID == "" {
			continue
		}
		if _, err := s.notifications.RetractIn(ctx, b, r); err != nil {
			return err
		}
	}

	var steps []Step
	if link.Status == models.MembershipJoined {
		steps = append(steps, s.removeFromUser(hostID, userID), s.revertAccountType(userID))
	}
	_, err = s.batcher.Run(ctx, "remove member", b, steps...)
	return err
}

// Members lists the host's membership links, invited and joined.
func (s *MembershipService) Members(ctx context.Context, hostID string) ([]models.HostMembership, error) {
	if err := requireIDs(hostID); err != nil {
		return nil, err
	}
	docs, err := s.store.Query(ctx, CollectionHostMembers, docstore.Where("host_id", docstore.OpEqual, hostID))
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	links := make([]models.HostMembership, 0, len(docs))
	for i := range docs {
		var link models.HostMembership
		if err := docstore.Decode(&docs[i], &link); err != nil {
			return nil, fmt.Errorf("decoding membership: %w", err)
		}
		links = append(links, link)
	}
	return links, nil
}

func (s *MembershipService) addToUser(hostID, userID string) Step {
	return Step{
		Name: stepUserMembership,
		Run: func(ctx context.Context) error {
			return s.store.Update(ctx, CollectionUsers, userID, docstore.Fields{
				"host_ids":     docstore.ArrayUnion(hostID),
				"account_type": string(models.AccountTypeMember),
			})
		},
	}
}

func (s *MembershipService) removeFromUser(hostID, userID string) Step {
	return Step{
		Name: stepUserMembership,
		Run: func(ctx context.Context) error {
			return s.store.Update(ctx, CollectionUsers, userID, docstore.Fields{
				"host_ids": docstore.ArrayRemove(hostID),
			})
		},
	}
}

func (s *MembershipService) revertAccountType(userID string) Step {
	return Step{
		Name: stepUserAccountType,
		Run: func(ctx context.Context) error {
			user, err := s.access.loadUser(ctx, userID)
			if err != nil {
				return err
			}
			if len(user.HostIDs) > 0 || user.AccountType == models.AccountTypePersonal {
				return nil
			}
			return s.store.Update(ctx, CollectionUsers, userID, docstore.Fields{
				"account_type": string(models.AccountTypePersonal),
			})
		},
	}
}

func (s *MembershipService) link(ctx context.Context, hostID, userID string) (*models.HostMembership, error) {
	return load[models.HostMembership](ctx, s.store, CollectionHostMembers, MembershipID(hostID, userID), nil)
}
