package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/HammerMeetNail/guestlist/internal/docstore"
)

const (
	CollectionUsers         = "users"
	CollectionRelationships = "relationships"
	CollectionEvents        = "events"
	CollectionHosts         = "hosts"
	CollectionGuestlists    = "guestlists"
	CollectionJoinRequests  = "join_requests"
	CollectionAttendance    = "attendance"
	CollectionHostMembers   = "host_members"
	CollectionNotifications = "notifications"
)

var ErrInvalidID = errors.New("id is required")

func GuestlistEntryID(eventID, userID string) string {
	return eventID + ":" + userID
}

func JoinRequestID(eventID, userID string) string {
	return eventID + ":" + userID
}

func AttendanceID(userID, eventID string) string {
	return userID + ":" + eventID
}

func MembershipID(hostID, userID string) string {
	return hostID + ":" + userID
}

// load reads and decodes one document. A missing document yields notFound,
// or (nil, nil) when notFound is nil.
func load[T any](ctx context.Context, store docstore.Store, collection, id string, notFound error) (*T, error) {
	doc, err := store.Get(ctx, collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		if notFound == nil {
			return nil, nil
		}
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s/%s: %w", collection, id, err)
	}
	var v T
	if err := docstore.Decode(doc, &v); err != nil {
		return nil, fmt.Errorf("loading %s/%s: %w", collection, id, err)
	}
	return &v, nil
}

func requireIDs(ids ...string) error {
	for _, id := range ids {
		if id == "" {
			return ErrInvalidID
		}
	}
	return nil
}
