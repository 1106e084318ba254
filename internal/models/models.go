package models

import "time"

type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"-"`
}

type Conversation struct {
	ID         int       `json:"id"`
	Title      string    `json:"title"`
	IsOneToOne bool      `json:"isOneToOne"`
	Members    []User    `json:"users,omitempty"`
	Messages   []Message `json:"messages,omitempty"`
}

type Group struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Members     []User    `json:"users,omitempty"`
	Messages    []Message `json:"messages,omitempty"`
}

// Message targets exactly one of a conversation or a group.
type Message struct {
	ID             int       `json:"id"`
	Content        string    `json:"content"`
	UserID         int       `json:"userId"`
	UserName       string    `json:"userName,omitempty"`
	ConversationID *int      `json:"conversationId,omitempty"`
	GroupID        *int      `json:"groupId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
