package ws

import (
	"testing"

	"github.com/stretchr/testify/require"

	"parley/internal/models"
	"parley/internal/store/sqlstore"
)

func newTestStore(t *testing.T) *sqlstore.SQLStore {
	t.Helper()
	st, err := sqlstore.New("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func seedUser(t *testing.T, st *sqlstore.SQLStore, name string) int {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", Password: "hash"}
	require.NoError(t, st.CreateUser(u))
	return u.ID
}

func TestJoinRequiresMembership(t *testing.T) {
	req := require.New(t)
	st := newTestStore(t)
	hub := newTestHub()
	subs := NewSubscriptions(hub, st)

	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")
	outsider := seedUser(t, st, "mallory")

	conv, err := st.CreateConversation("dm", true, []int{alice, bob})
	req.NoError(err)
	group, err := st.CreateGroup("gophers", "", []int{alice})
	req.NoError(err)

	register(t, hub, "s1", alice)
	register(t, hub, "s2", outsider)

	req.NoError(subs.Join("s1", alice, ConversationRoom(conv.ID)))
	req.NoError(subs.Join("s1", alice, GroupRoom(group.ID)))

	// A join from a non-member must be rejected, and must leave room state
	// untouched. This check was absent in an earlier iteration of the
	// system; these assertions keep it from disappearing again.
	req.ErrorIs(subs.Join("s2", outsider, ConversationRoom(conv.ID)), ErrNotAMember)
	req.ErrorIs(subs.Join("s2", outsider, GroupRoom(group.ID)), ErrNotAMember)
	req.ElementsMatch([]string{"s1"}, hub.RoomMembers(ConversationRoom(conv.ID)))

	// Joining a conversation that does not exist reads as non-membership.
	req.ErrorIs(subs.Join("s1", alice, ConversationRoom(9999)), ErrNotAMember)
}

func TestPersonalRoomsAreReserved(t *testing.T) {
	req := require.New(t)
	st := newTestStore(t)
	hub := newTestHub()
	subs := NewSubscriptions(hub, st)

	alice := seedUser(t, st, "alice")
	register(t, hub, "s1", alice)

	req.ErrorIs(subs.Join("s1", alice, PersonalRoom(alice)), ErrReservedRoom)
	req.ErrorIs(subs.Leave("s1", PersonalRoom(alice)), ErrReservedRoom)

	// The implicit membership is untouched by the rejected leave.
	req.ElementsMatch([]string{"s1"}, hub.RoomMembers(PersonalRoom(alice)))
}

func TestLeaveWithoutJoinSucceeds(t *testing.T) {
	req := require.New(t)
	st := newTestStore(t)
	hub := newTestHub()
	subs := NewSubscriptions(hub, st)

	alice := seedUser(t, st, "alice")
	register(t, hub, "s1", alice)

	req.NoError(subs.Leave("s1", ConversationRoom(1)))
}
