package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/HammerMeetNail/guestlist/internal/docstore"
	"github.com/HammerMeetNail/guestlist/internal/models"
	"github.com/HammerMeetNail/guestlist/internal/testutil"
)

var testStart = time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)

type fixture struct {
	t             *testing.T
	ctx           context.Context
	clock         *testutil.Clock
	store         *testutil.FailingStore
	notifications *NotificationService
	relationships *RelationshipService
	guestlists    *GuestlistService
	memberships   *MembershipService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := testutil.NewClock(testStart)
	store := testutil.NewFailingStore(testutil.NewStore(clock))

	notifications := NewNotificationService(store)
	notifications.SetClock(clock.Now)
	relationships := NewRelationshipService(store, notifications)
	relationships.SetClock(clock.Now)
	guestlists := NewGuestlistService(store, notifications)
	guestlists.SetClock(clock.Now)
	memberships := NewMembershipService(store, notifications)
	memberships.SetClock(clock.Now)

	return &fixture{
		t:             t,
		ctx:           context.Background(),
		clock:         clock,
		store:         store,
		notifications: notifications,
		relationships: relationships,
		guestlists:    guestlists,
		memberships:   memberships,
	}
}

func (f *fixture) user(id, name string) {
	f.t.Helper()
	testutil.SeedUser(f.t, f.store, models.User{ID: id, Name: name, University: "State"})
}

func (f *fixture) host(id, ownerID string) {
	f.t.Helper()
	testutil.SeedHost(f.t, f.store, models.Host{ID: id, Name: id, OwnerID: ownerID})
}

func (f *fixture) event(event models.Event) {
	f.t.Helper()
	if event.StartsAt.IsZero() {
		event.StartsAt = testStart.Add(2 * time.Hour)
	}
	if event.EndsAt.IsZero() {
		event.EndsAt = event.StartsAt.Add(4 * time.Hour)
	}
	testutil.SeedEvent(f.t, f.store, event)
}

// notificationsOf returns the recipient's notifications of type t.
func (f *fixture) notificationsOf(recipient string, t models.NotificationType) []docstore.Document {
	f.t.Helper()
	docs, err := f.store.Query(f.ctx, CollectionNotifications,
		docstore.Where("recipient_id", docstore.OpEqual, recipient),
		docstore.Where("type", docstore.OpEqual, string(t)),
	)
	require.NoError(f.t, err)
	return docs
}

func (f *fixture) exists(collection, id string) bool {
	f.t.Helper()
	_, err := f.store.Get(f.ctx, collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return false
	}
	require.NoError(f.t, err)
	return true
}

func (f *fixture) loadUser(id string) *models.User {
	f.t.Helper()
	doc, err := f.store.Get(f.ctx, CollectionUsers, id)
	require.NoError(f.t, err)
	var u models.User
	require.NoError(f.t, docstore.Decode(doc, &u))
	return &u
}
