package services

import (
	"context"
	"errors"

	"github.com/HammerMeetNail/guestlist/internal/docstore"
	"github.com/HammerMeetNail/guestlist/internal/models"
)

var (
	ErrNotEventManager = errors.New("only the event poster or its host may manage the guestlist")
	ErrNotHostManager  = errors.New("only the host owner or a member may manage members")
)

type access struct {
	store docstore.Store
}

// canManageHost is true for the host owner and for joined members.
func (a access) canManageHost(ctx context.Context, host *models.Host, userID string) (bool, error) {
	if host.OwnerID == userID {
		return true, nil
	}
	link, err := load[models.HostMembership](ctx, a.store, CollectionHostMembers, MembershipID(host.ID, userID), nil)
	if err != nil {
		return false, err
	}
	return link != nil && link.Status == models.MembershipJoined, nil
}

// requireEventManager allows the poster, and the owner or a joined member
// of the event's host.
func (a access) requireEventManager(ctx context.Context, event *models.Event, userID string) error {
	if event.PosterID == userID {
		return nil
	}
	if event.HostID == "" {
		return ErrNotEventManager
	}
	host, err := load[models.Host](ctx, a.store, CollectionHosts, event.HostID, nil)
	if err != nil {
		return err
	}
	if host == nil {
		return ErrNotEventManager
	}
	host.ID = event.HostID
	ok, err := a.canManageHost(ctx, host, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotEventManager
	}
	return nil
}

func (a access) loadEvent(ctx context.Context, eventID string) (*models.Event, error) {
	event, err := load[models.Event](ctx, a.store, CollectionEvents, eventID, ErrEventNotFound)
	if err != nil {
		return nil, err
	}
	event.ID = eventID
	return event, nil
}

func (a access) loadHost(ctx context.Context, hostID string) (*models.Host, error) {
	host, err := load[models.Host](ctx, a.store, CollectionHosts, hostID, ErrHostNotFound)
	if err != nil {
		return nil, err
	}
	host.ID = hostID
	return host, nil
}

func (a access) loadUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := load[models.User](ctx, a.store, CollectionUsers, userID, ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	user.ID = userID
	return user, nil
}
