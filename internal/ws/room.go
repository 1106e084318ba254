package ws

import "strconv"

type roomKind int

const (
	kindPersonal roomKind = iota
	kindConversation
	kindGroup
)

// Room identifies a named broadcast group. Personal rooms are implicit: every
// live session is in its owner's personal room for exactly as long as it is
// registered, and clients can never join or leave one directly.
type Room struct {
	kind roomKind
	id   int
}

func PersonalRoom(userID int) Room { return Room{kind: kindPersonal, id: userID} }
func ConversationRoom(id int) Room { return Room{kind: kindConversation, id: id} }
func GroupRoom(id int) Room        { return Room{kind: kindGroup, id: id} }

func (r Room) String() string {
	switch r.kind {
	case kindPersonal:
		return "personal:" + strconv.Itoa(r.id)
	case kindConversation:
		return "conversation:" + strconv.Itoa(r.id)
	default:
		return "group:" + strconv.Itoa(r.id)
	}
}

func (r Room) reserved() bool { return r.kind == kindPersonal }
