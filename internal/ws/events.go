package ws

import "parley/internal/models"

// Inbound event types.
const (
	cmdJoinConversation  = "join_conversation"
	cmdLeaveConversation = "leave_conversation"
	cmdJoinGroup         = "join_group"
	cmdLeaveGroup        = "leave_group"
	cmdNewMessage        = "new_message"
)

// Outbound event types.
const (
	EventMessageReceived = "message_received"
	EventError           = "error"
)

// Command is one typed inbound client event.
type Command struct {
	Type           string `json:"type"`
	ID             int    `json:"id,omitempty"` // join/leave target
	Content        string `json:"content,omitempty"`
	ConversationID *int   `json:"conversationId,omitempty"`
	GroupID        *int   `json:"groupId,omitempty"`
}

// Event is one outbound push to a live session.
type Event struct {
	Type    string          `json:"type"`
	Message *models.Message `json:"message,omitempty"`
	Action  string          `json:"action,omitempty"` // the command an error responds to
	Error   string          `json:"error,omitempty"`
}
