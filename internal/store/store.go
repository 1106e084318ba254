package store

import (
	"errors"

	"parley/internal/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist or the
	// caller is not allowed to see it.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTarget is returned for a message with zero or two targets,
	// and for one-to-one conversations whose member count is not exactly 2.
	ErrInvalidTarget = errors.New("invalid target")
)

type Store interface {
	// User operations
	CreateUser(user *models.User) error
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id int) (*models.User, error)

	// Conversation operations
	CreateConversation(title string, isOneToOne bool, memberIDs []int) (*models.Conversation, error)
	GetConversation(id int) (*models.Conversation, error)
	UpdateConversation(id int, title string, memberIDs []int) (*models.Conversation, error)
	DeleteConversation(id int) error
	UserConversations(userID int) ([]models.Conversation, error)
	OneToOneConversations(userID int) ([]models.Conversation, error)
	IsConversationMember(conversationID, userID int) (bool, error)

	// Group operations
	CreateGroup(name, description string, memberIDs []int) (*models.Group, error)
	GetGroup(id int) (*models.Group, error)
	UpdateGroup(id int, name, description string, memberIDs []int) (*models.Group, error)
	DeleteGroup(id int) error
	UserGroups(userID int) ([]models.Group, error)
	AddGroupMember(groupID, userID int) error
	RemoveGroupMember(groupID, userID int) error
	IsGroupMember(groupID, userID int) (bool, error)

	// Message operations
	CreateMessage(msg *models.Message) error
	ConversationMessages(conversationID int) ([]models.Message, error)
	GroupMessages(groupID int) ([]models.Message, error)
}
