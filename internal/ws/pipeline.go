package ws

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"parley/internal/metrics"
	"parley/internal/models"
	"parley/internal/store"
)

// SendRequest is the one message payload both entry points accept: the REST
// send-message handlers and the websocket new_message event build the exact
// same request and get the exact same fanout.
type SendRequest struct {
	Content        string `json:"content"`
	ConversationID *int   `json:"conversationId,omitempty"`
	GroupID        *int   `json:"groupId,omitempty"`
}

// Pipeline is the single "persist, then fan out" operation. Fanout never
// runs for a message that was not persisted first.
type Pipeline struct {
	store store.Store
	hub   *Hub
	log   zerolog.Logger
}

func NewPipeline(st store.Store, hub *Hub, log zerolog.Logger) *Pipeline {
	return &Pipeline{store: st, hub: hub, log: log}
}

// Ingest validates, persists and fans out one message authored by authorID.
// The author's membership of the target is re-checked against the store
// here, independently of any earlier room join.
func (p *Pipeline) Ingest(authorID int, req SendRequest) (*models.Message, error) {
	if (req.ConversationID == nil) == (req.GroupID == nil) {
		metrics.IngestFailures.WithLabelValues("invalid_target").Inc()
		return nil, store.ErrInvalidTarget
	}

	var (
		member bool
		err    error
		target string
	)
	if req.ConversationID != nil {
		target = "conversation"
		member, err = p.store.IsConversationMember(*req.ConversationID, authorID)
	} else {
		target = "group"
		member, err = p.store.IsGroupMember(*req.GroupID, authorID)
	}
	if err != nil {
		return nil, fmt.Errorf("checking authorship: %w", err)
	}
	if !member {
		metrics.IngestFailures.WithLabelValues("not_a_member").Inc()
		return nil, ErrNotAMember
	}

	author, err := p.store.GetUserByID(authorID)
	if err != nil {
		return nil, fmt.Errorf("loading author: %w", err)
	}

	msg := &models.Message{
		Content:        req.Content,
		UserID:         authorID,
		UserName:       author.Name,
		ConversationID: req.ConversationID,
		GroupID:        req.GroupID,
	}
	if err := p.store.CreateMessage(msg); err != nil {
		metrics.IngestFailures.WithLabelValues("persistence").Inc()
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	metrics.MessagesIngested.WithLabelValues(target).Inc()
	p.fanout(msg)
	return msg, nil
}

// fanout decides which rooms see the persisted message:
//
//   - group target: the group room
//   - conversation, not one-to-one: the conversation room
//   - conversation, one-to-one: the personal room of every persisted member,
//     so all of a user's devices are reached without any explicit join
//
// The branches are mutually exclusive, and each session appears in a room at
// most once, so no session sees the same message twice.
func (p *Pipeline) fanout(msg *models.Message) {
	payload, err := json.Marshal(Event{Type: EventMessageReceived, Message: msg})
	if err != nil {
		p.log.Error().Err(err).Int("message", msg.ID).Msg("encoding fanout payload")
		return
	}

	if msg.GroupID != nil {
		p.hub.broadcast(GroupRoom(*msg.GroupID), payload)
		return
	}

	conv, err := p.store.GetConversation(*msg.ConversationID)
	if err != nil {
		p.log.Error().Err(err).Int("conversation", *msg.ConversationID).
			Msg("loading conversation for fanout")
		return
	}

	if conv.IsOneToOne {
		for _, member := range conv.Members {
			p.hub.broadcast(PersonalRoom(member.ID), payload)
		}
		return
	}
	p.hub.broadcast(ConversationRoom(conv.ID), payload)
}
