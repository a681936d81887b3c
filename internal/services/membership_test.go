package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HammerMeetNail/guestlist/internal/models"
	"github.com/HammerMeetNail/guestlist/internal/testutil"
)

func newMembershipFixture(t *testing.T) *fixture {
	f := newFixture(t)
	f.user("owner", "Owner")
	f.user("u", "User")
	f.host("h1", "owner")
	f.host("h2", "owner")
	return f
}

func (f *fixture) join(hostID, userID string) {
	f.t.Helper()
	_, err := f.memberships.Invite(f.ctx, hostID, userID, "owner")
	require.NoError(f.t, err)
	_, err = f.memberships.Accept(f.ctx, hostID, userID)
	require.NoError(f.t, err)
}

func TestMembership_AcceptAddsHostToUser(t *testing.T) {
	f := newMembershipFixture(t)

	link, err := f.memberships.Invite(f.ctx, "h1", "u", "owner")
	require.NoError(t, err)
	assert.Equal(t, models.MembershipInvited, link.Status)
	require.Len(t, f.notificationsOf("u", models.NotificationTypeMemberInvited), 1)

	link, err = f.memberships.Accept(f.ctx, "h1", "u")
	require.NoError(t, err)
	assert.Equal(t, models.MembershipJoined, link.Status)

	user := f.loadUser("u")
	assert.Equal(t, []string{"h1"}, user.HostIDs)
	assert.Equal(t, models.AccountTypeMember, user.AccountType)
	assert.Empty(t, f.notificationsOf("u", models.NotificationTypeMemberInvited))
	require.Len(t, f.notificationsOf("owner", models.NotificationTypeMemberJoined), 1)
}

func TestMembership_RemovingLastMembershipRevertsAccountType(t *testing.T) {
	f := newMembershipFixture(t)
	f.join("h1", "u")

	require.NoError(t, f.memberships.Remove(f.ctx, "h1", "u", "u"))

	user := f.loadUser("u")
	assert.Empty(t, user.HostIDs)
	assert.Equal(t, models.AccountTypePersonal, user.AccountType)
	assert.False(t, f.exists(CollectionHostMembers, MembershipID("h1", "u")))
	assert.Empty(t, f.notificationsOf("owner", models.NotificationTypeMemberJoined))
}

func TestMembership_RemovingOneOfTwoKeepsMember(t *testing.T) {
	f := newMembershipFixture(t)
	f.join("h1", "u")
	f.join("h2", "u")
	assert.ElementsMatch(t, []string{"h1", "h2"}, f.loadUser("u").HostIDs)

	require.NoError(t, f.memberships.Remove(f.ctx, "h1", "u", "owner"))

	user := f.loadUser("u")
	assert.Equal(t, []string{"h2"}, user.HostIDs)
	assert.Equal(t, models.AccountTypeMember, user.AccountType)
}

func TestMembership_InviteErrors(t *testing.T) {
	f := newMembershipFixture(t)
	f.user("staff", "Staff")
	f.user("v", "Other")
	f.join("h1", "staff")

	_, err := f.memberships.Invite(f.ctx, "h1", "u", "stranger")
	assert.ErrorIs(t, err, ErrNotHostManager)
	_, err = f.memberships.Invite(f.ctx, "nope", "u", "owner")
	assert.ErrorIs(t, err, ErrHostNotFound)
	_, err = f.memberships.Invite(f.ctx, "h1", "ghost", "owner")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = f.memberships.Invite(f.ctx, "h1", "staff", "owner")
	assert.ErrorIs(t, err, ErrAlreadyMember)

	_, err = f.memberships.Invite(f.ctx, "h1", "u", "staff")
	require.NoError(t, err, "joined members may invite")
	_, err = f.memberships.Invite(f.ctx, "h1", "u", "owner")
	assert.ErrorIs(t, err, ErrInvitePending)

	_, err = f.memberships.Invite(f.ctx, "h1", "v", "u")
	assert.ErrorIs(t, err, ErrNotHostManager, "invited but not joined users cannot invite")
}

func TestMembership_AcceptWithoutInvite(t *testing.T) {
	f := newMembershipFixture(t)

	_, err := f.memberships.Accept(f.ctx, "h1", "u")
	assert.ErrorIs(t, err, ErrInviteNotFound)
	assert.Equal(t, models.AccountTypePersonal, f.loadUser("u").AccountType)
}

func TestMembership_AcceptTwiceIsIdempotent(t *testing.T) {
	f := newMembershipFixture(t)
	f.join("h1", "u")

	_, err := f.memberships.Accept(f.ctx, "h1", "u")
	require.NoError(t, err)

	assert.Equal(t, []string{"h1"}, f.loadUser("u").HostIDs)
	assert.Len(t, f.notificationsOf("owner", models.NotificationTypeMemberJoined), 1)
}

func TestMembership_AcceptTwiceSkipsUpToDateUser(t *testing.T) {
	f := newMembershipFixture(t)
	f.join("h1", "u")

	f.store.FailUpdate(CollectionUsers, "u", errors.New("user document locked"))
	_, err := f.memberships.Accept(f.ctx, "h1", "u")
	require.NoError(t, err, "nothing to repair, so the user document is not touched")
}

func TestMembership_AcceptAfterConcurrentReject(t *testing.T) {
	f := newMembershipFixture(t)
	_, err := f.memberships.Invite(f.ctx, "h1", "u", "owner")
	require.NoError(t, err)

	f.store.AfterGet(CollectionHostMembers, MembershipID("h1", "u"), func() {
		require.NoError(t, f.memberships.Reject(f.ctx, "h1", "u"))
	})
	link, err := f.memberships.Accept(f.ctx, "h1", "u")
	assert.ErrorIs(t, err, ErrInviteNotFound)
	assert.Nil(t, link)

	assert.False(t, f.exists(CollectionHostMembers, MembershipID("h1", "u")))
	assert.Empty(t, f.notificationsOf("owner", models.NotificationTypeMemberJoined))
	user := f.loadUser("u")
	assert.Empty(t, user.HostIDs)
	assert.Equal(t, models.AccountTypePersonal, user.AccountType)
}

func TestMembership_AcceptOnHostWithoutOwner(t *testing.T) {
	f := newMembershipFixture(t)
	f.host("orphan", "")
	testutil.Seed(t, f.store, CollectionHostMembers, MembershipID("orphan", "u"), models.HostMembership{
		HostID:    "orphan",
		UserID:    "u",
		Status:    models.MembershipInvited,
		CreatedAt: testStart,
		UpdatedAt: testStart,
	})

	link, err := f.memberships.Accept(f.ctx, "orphan", "u")
	require.NoError(t, err)
	assert.Equal(t, models.MembershipJoined, link.Status)
	assert.Equal(t, []string{"orphan"}, f.loadUser("u").HostIDs)
}

func TestMembership_DependentStepFailure(t *testing.T) {
	f := newMembershipFixture(t)
	_, err := f.memberships.Invite(f.ctx, "h1", "u", "owner")
	require.NoError(t, err)

	boom := errors.New("user document locked")
	f.store.FailUpdate(CollectionUsers, "u", boom)

	link, err := f.memberships.Accept(f.ctx, "h1", "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDependentStep)
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, link)
	assert.Equal(t, models.MembershipJoined, link.Status)

	var stepErr *DependentStepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, stepUserMembership, stepErr.Step)
	assert.True(t, stepErr.PrimaryCommitted)

	// The link committed even though the user document did not change.
	members, err := f.memberships.Members(f.ctx, "h1")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, models.MembershipJoined, members[0].Status)
	assert.Empty(t, f.loadUser("u").HostIDs)
	assert.Len(t, f.notificationsOf("owner", models.NotificationTypeMemberJoined), 1)

	f.store.FailUpdate(CollectionUsers, "u", nil)
	outcome, err := stepErr.Retry(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{stepUserMembership}, outcome.Completed)

	user := f.loadUser("u")
	assert.Equal(t, []string{"h1"}, user.HostIDs)
	assert.Equal(t, models.AccountTypeMember, user.AccountType)
	assert.Len(t, f.notificationsOf("owner", models.NotificationTypeMemberJoined), 1, "retry does not re-run the primary")
}

func TestMembership_AcceptRepairsFailedStep(t *testing.T) {
	f := newMembershipFixture(t)
	_, err := f.memberships.Invite(f.ctx, "h1", "u", "owner")
	require.NoError(t, err)

	f.store.FailUpdate(CollectionUsers, "u", errors.New("timeout"))
	_, err = f.memberships.Accept(f.ctx, "h1", "u")
	require.ErrorIs(t, err, ErrDependentStep)
	f.store.FailUpdate(CollectionUsers, "u", nil)

	_, err = f.memberships.Accept(f.ctx, "h1", "u")
	require.NoError(t, err)
	assert.Equal(t, []string{"h1"}, f.loadUser("u").HostIDs)
}

func TestMembership_PrimaryFailureRunsNoSteps(t *testing.T) {
	f := newMembershipFixture(t)
	_, err := f.memberships.Invite(f.ctx, "h1", "u", "owner")
	require.NoError(t, err)

	boom := errors.New("store unavailable")
	f.store.FailBatches(boom)
	_, err = f.memberships.Accept(f.ctx, "h1", "u")
	require.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrDependentStep))
	f.store.FailBatches(nil)

	user := f.loadUser("u")
	assert.Empty(t, user.HostIDs)
	assert.Equal(t, models.AccountTypePersonal, user.AccountType)

	members, err := f.memberships.Members(f.ctx, "h1")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, models.MembershipInvited, members[0].Status)
}

func TestMembership_Reject(t *testing.T) {
	f := newMembershipFixture(t)
	_, err := f.memberships.Invite(f.ctx, "h1", "u", "owner")
	require.NoError(t, err)

	require.NoError(t, f.memberships.Reject(f.ctx, "h1", "u"))
	assert.False(t, f.exists(CollectionHostMembers, MembershipID("h1", "u")))
	assert.Empty(t, f.notificationsOf("u", models.NotificationTypeMemberInvited))

	assert.ErrorIs(t, f.memberships.Reject(f.ctx, "h1", "u"), ErrInviteNotFound)

	f.join("h1", "u")
	assert.ErrorIs(t, f.memberships.Reject(f.ctx, "h1", "u"), ErrInviteNotFound)
}

func TestMembership_RemoveErrors(t *testing.T) {
	f := newMembershipFixture(t)

	assert.ErrorIs(t, f.memberships.Remove(f.ctx, "h1", "u", "u"), ErrMembershipNotFound)
	assert.ErrorIs(t, f.memberships.Remove(f.ctx, "nope", "u", "u"), ErrHostNotFound)

	f.join("h1", "u")
	assert.ErrorIs(t, f.memberships.Remove(f.ctx, "h1", "u", "stranger"), ErrNotHostManager)
	assert.True(t, f.exists(CollectionHostMembers, MembershipID("h1", "u")))
}

func TestMembership_RemovePendingInviteLeavesUserAlone(t *testing.T) {
	f := newMembershipFixture(t)
	f.join("h2", "u")
	_, err := f.memberships.Invite(f.ctx, "h1", "u", "owner")
	require.NoError(t, err)

	require.NoError(t, f.memberships.Remove(f.ctx, "h1", "u", "owner"))
	assert.Empty(t, f.notificationsOf("u", models.NotificationTypeMemberInvited))

	user := f.loadUser("u")
	assert.Equal(t, []string{"h2"}, user.HostIDs)
	assert.Equal(t, models.AccountTypeMember, user.AccountType)
}
