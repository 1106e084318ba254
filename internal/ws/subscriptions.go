package ws

import (
	"fmt"

	"parley/internal/store"
)

// Subscriptions validates join and leave requests before they touch hub
// state. Membership is checked against the store at join time; a join
// accepted earlier confers nothing on later messages.
type Subscriptions struct {
	hub   *Hub
	store store.Store
}

func NewSubscriptions(hub *Hub, store store.Store) *Subscriptions {
	return &Subscriptions{hub: hub, store: store}
}

// Join subscribes the session to room after confirming the requesting user
// is a current member of the target conversation or group.
func (s *Subscriptions) Join(handle string, userID int, room Room) error {
	if room.reserved() {
		return ErrReservedRoom
	}

	var (
		member bool
		err    error
	)
	switch room.kind {
	case kindConversation:
		member, err = s.store.IsConversationMember(room.id, userID)
	case kindGroup:
		member, err = s.store.IsGroupMember(room.id, userID)
	}
	if err != nil {
		return fmt.Errorf("checking membership for %s: %w", room, err)
	}
	if !member {
		return ErrNotAMember
	}

	return s.hub.join(handle, room)
}

// Leave unsubscribes the session from room. No membership check: leaving is
// always allowed, and leaving a room the session is not in is a no-op.
func (s *Subscriptions) Leave(handle string, room Room) error {
	if room.reserved() {
		return ErrReservedRoom
	}
	return s.hub.leave(handle, room)
}
