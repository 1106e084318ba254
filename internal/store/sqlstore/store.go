package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"parley/internal/models"
	"parley/internal/store"
)

type SQLStore struct {
	db         *sql.DB
	driverName string
}

func New(driverName, dataSourceName string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLStore{db: db, driverName: driverName}
	if err := s.createTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) createTables() error {
	// Simplified for brevity, ideally use migrations
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		is_one_to_one BOOLEAN DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS conversation_members (
		conversation_id INTEGER,
		user_id INTEGER,
		PRIMARY KEY (conversation_id, user_id),
		FOREIGN KEY (conversation_id) REFERENCES conversations(id),
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS chat_groups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT
	);

	CREATE TABLE IF NOT EXISTS group_members (
		group_id INTEGER,
		user_id INTEGER,
		PRIMARY KEY (group_id, user_id),
		FOREIGN KEY (group_id) REFERENCES chat_groups(id),
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		user_id INTEGER,
		conversation_id INTEGER,
		group_id INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (conversation_id) REFERENCES conversations(id),
		FOREIGN KEY (group_id) REFERENCES chat_groups(id),
		CHECK ((conversation_id IS NULL) <> (group_id IS NULL))
	);
	`

	if s.driverName == "postgres" {
		// Adjust for Postgres syntax
		query = strings.ReplaceAll(query, "INTEGER PRIMARY KEY AUTOINCREMENT", "SERIAL PRIMARY KEY")
		query = strings.ReplaceAll(query, "DATETIME", "TIMESTAMP")
	}

	_, err := s.db.Exec(query)
	return err
}

// Helper to handle placeholders
func (s *SQLStore) rebind(query string) string {
	if s.driverName == "postgres" {
		// Replace ? with $1, $2, etc.
		n := strings.Count(query, "?")
		for i := 1; i <= n; i++ {
			query = strings.Replace(query, "?", fmt.Sprintf("$%d", i), 1)
		}
	}
	return query
}

func (s *SQLStore) CreateUser(user *models.User) error {
	query := s.rebind("INSERT INTO users (name, email, password) VALUES (?, ?, ?) RETURNING id")
	return s.db.QueryRow(query, user.Name, user.Email, user.Password).Scan(&user.ID)
}

func (s *SQLStore) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	query := s.rebind("SELECT id, name, email, password FROM users WHERE email = ?")
	err := s.db.QueryRow(query, email).Scan(&user.ID, &user.Name, &user.Email, &user.Password)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQLStore) GetUserByID(id int) (*models.User, error) {
	var user models.User
	query := s.rebind("SELECT id, name, email, password FROM users WHERE id = ?")
	err := s.db.QueryRow(query, id).Scan(&user.ID, &user.Name, &user.Email, &user.Password)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQLStore) CreateConversation(title string, isOneToOne bool, memberIDs []int) (*models.Conversation, error) {
	if isOneToOne && len(memberIDs) != 2 {
		return nil, store.ErrInvalidTarget
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var id int
	query := s.rebind("INSERT INTO conversations (title, is_one_to_one) VALUES (?, ?) RETURNING id")
	if err := tx.QueryRow(query, title, isOneToOne).Scan(&id); err != nil {
		return nil, err
	}

	query = s.rebind("INSERT INTO conversation_members (conversation_id, user_id) VALUES (?, ?)")
	for _, userID := range memberIDs {
		if _, err := tx.Exec(query, id, userID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetConversation(id)
}

func (s *SQLStore) GetConversation(id int) (*models.Conversation, error) {
	var conv models.Conversation
	query := s.rebind("SELECT id, title, is_one_to_one FROM conversations WHERE id = ?")
	err := s.db.QueryRow(query, id).Scan(&conv.ID, &conv.Title, &conv.IsOneToOne)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if conv.Members, err = s.conversationMembers(id); err != nil {
		return nil, err
	}
	if conv.Messages, err = s.ConversationMessages(id); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *SQLStore) UpdateConversation(id int, title string, memberIDs []int) (*models.Conversation, error) {
	var isOneToOne bool
	query := s.rebind("SELECT is_one_to_one FROM conversations WHERE id = ?")
	err := s.db.QueryRow(query, id).Scan(&isOneToOne)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if isOneToOne && len(memberIDs) != 2 {
		return nil, store.ErrInvalidTarget
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query = s.rebind("UPDATE conversations SET title = ? WHERE id = ?")
	if _, err := tx.Exec(query, title, id); err != nil {
		return nil, err
	}

	query = s.rebind("DELETE FROM conversation_members WHERE conversation_id = ?")
	if _, err := tx.Exec(query, id); err != nil {
		return nil, err
	}
	query = s.rebind("INSERT INTO conversation_members (conversation_id, user_id) VALUES (?, ?)")
	for _, userID := range memberIDs {
		if _, err := tx.Exec(query, id, userID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetConversation(id)
}

func (s *SQLStore) DeleteConversation(id int) error {
	// Delete messages first (foreign key constraint)
	query := s.rebind("DELETE FROM messages WHERE conversation_id = ?")
	if _, err := s.db.Exec(query, id); err != nil {
		return err
	}

	query = s.rebind("DELETE FROM conversation_members WHERE conversation_id = ?")
	if _, err := s.db.Exec(query, id); err != nil {
		return err
	}

	query = s.rebind("DELETE FROM conversations WHERE id = ?")
	_, err := s.db.Exec(query, id)
	return err
}

func (s *SQLStore) UserConversations(userID int) ([]models.Conversation, error) {
	query := s.rebind(`
		SELECT c.id, c.title, c.is_one_to_one
		FROM conversations c
		JOIN conversation_members cm ON c.id = cm.conversation_id
		WHERE cm.user_id = ?
	`)
	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		if err := rows.Scan(&conv.ID, &conv.Title, &conv.IsOneToOne); err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range conversations {
		if conversations[i].Members, err = s.conversationMembers(conversations[i].ID); err != nil {
			return nil, err
		}
		if conversations[i].Messages, err = s.ConversationMessages(conversations[i].ID); err != nil {
			return nil, err
		}
	}
	return conversations, nil
}

// OneToOneConversations returns the user's one-to-one conversations, each
// carrying only its most recent message.
func (s *SQLStore) OneToOneConversations(userID int) ([]models.Conversation, error) {
	query := s.rebind(`
		SELECT c.id, c.title, c.is_one_to_one
		FROM conversations c
		JOIN conversation_members cm ON c.id = cm.conversation_id
		WHERE cm.user_id = ? AND c.is_one_to_one = TRUE
	`)
	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		if err := rows.Scan(&conv.ID, &conv.Title, &conv.IsOneToOne); err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	last := s.rebind(`
		SELECT m.id, m.content, m.user_id, u.name, m.conversation_id, m.created_at
		FROM messages m
		JOIN users u ON m.user_id = u.id
		WHERE m.conversation_id = ?
		ORDER BY m.created_at DESC
		LIMIT 1
	`)
	for i := range conversations {
		if conversations[i].Members, err = s.conversationMembers(conversations[i].ID); err != nil {
			return nil, err
		}
		var m models.Message
		err := s.db.QueryRow(last, conversations[i].ID).Scan(&m.ID, &m.Content, &m.UserID, &m.UserName, &m.ConversationID, &m.CreatedAt)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		conversations[i].Messages = []models.Message{m}
	}
	return conversations, nil
}

func (s *SQLStore) IsConversationMember(conversationID, userID int) (bool, error) {
	var exists bool
	query := s.rebind("SELECT EXISTS(SELECT 1 FROM conversation_members WHERE conversation_id = ? AND user_id = ?)")
	err := s.db.QueryRow(query, conversationID, userID).Scan(&exists)
	return exists, err
}

func (s *SQLStore) conversationMembers(conversationID int) ([]models.User, error) {
	query := s.rebind(`
		SELECT u.id, u.name, u.email
		FROM users u
		JOIN conversation_members cm ON u.id = cm.user_id
		WHERE cm.conversation_id = ?
	`)
	return s.queryUsers(query, conversationID)
}

func (s *SQLStore) CreateGroup(name, description string, memberIDs []int) (*models.Group, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var id int
	query := s.rebind("INSERT INTO chat_groups (name, description) VALUES (?, ?) RETURNING id")
	if err := tx.QueryRow(query, name, description).Scan(&id); err != nil {
		return nil, err
	}

	query = s.rebind("INSERT INTO group_members (group_id, user_id) VALUES (?, ?)")
	for _, userID := range memberIDs {
		if _, err := tx.Exec(query, id, userID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetGroup(id)
}

func (s *SQLStore) GetGroup(id int) (*models.Group, error) {
	var group models.Group
	query := s.rebind("SELECT id, name, COALESCE(description, '') FROM chat_groups WHERE id = ?")
	err := s.db.QueryRow(query, id).Scan(&group.ID, &group.Name, &group.Description)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if group.Members, err = s.groupMembers(id); err != nil {
		return nil, err
	}
	if group.Messages, err = s.GroupMessages(id); err != nil {
		return nil, err
	}
	return &group, nil
}

func (s *SQLStore) UpdateGroup(id int, name, description string, memberIDs []int) (*models.Group, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := s.rebind("UPDATE chat_groups SET name = ?, description = ? WHERE id = ?")
	res, err := tx.Exec(query, name, description, id)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, store.ErrNotFound
	}

	query = s.rebind("DELETE FROM group_members WHERE group_id = ?")
	if _, err := tx.Exec(query, id); err != nil {
		return nil, err
	}
	query = s.rebind("INSERT INTO group_members (group_id, user_id) VALUES (?, ?)")
	for _, userID := range memberIDs {
		if _, err := tx.Exec(query, id, userID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetGroup(id)
}

func (s *SQLStore) DeleteGroup(id int) error {
	query := s.rebind("DELETE FROM messages WHERE group_id = ?")
	if _, err := s.db.Exec(query, id); err != nil {
		return err
	}

	query = s.rebind("DELETE FROM group_members WHERE group_id = ?")
	if _, err := s.db.Exec(query, id); err != nil {
		return err
	}

	query = s.rebind("DELETE FROM chat_groups WHERE id = ?")
	_, err := s.db.Exec(query, id)
	return err
}

func (s *SQLStore) UserGroups(userID int) ([]models.Group, error) {
	query := s.rebind(`
		SELECT g.id, g.name, COALESCE(g.description, '')
		FROM chat_groups g
		JOIN group_members gm ON g.id = gm.group_id
		WHERE gm.user_id = ?
	`)
	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var group models.Group
		if err := rows.Scan(&group.ID, &group.Name, &group.Description); err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		if groups[i].Members, err = s.groupMembers(groups[i].ID); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (s *SQLStore) AddGroupMember(groupID, userID int) error {
	query := s.rebind("INSERT INTO group_members (group_id, user_id) VALUES (?, ?)")
	_, err := s.db.Exec(query, groupID, userID)
	return err
}

func (s *SQLStore) RemoveGroupMember(groupID, userID int) error {
	query := s.rebind("DELETE FROM group_members WHERE group_id = ? AND user_id = ?")
	_, err := s.db.Exec(query, groupID, userID)
	return err
}

func (s *SQLStore) IsGroupMember(groupID, userID int) (bool, error) {
	var exists bool
	query := s.rebind("SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = ? AND user_id = ?)")
	err := s.db.QueryRow(query, groupID, userID).Scan(&exists)
	return exists, err
}

func (s *SQLStore) groupMembers(groupID int) ([]models.User, error) {
	query := s.rebind(`
		SELECT u.id, u.name, u.email
		FROM users u
		JOIN group_members gm ON u.id = gm.user_id
		WHERE gm.group_id = ?
	`)
	return s.queryUsers(query, groupID)
}

func (s *SQLStore) CreateMessage(msg *models.Message) error {
	if (msg.ConversationID == nil) == (msg.GroupID == nil) {
		return store.ErrInvalidTarget
	}

	msg.CreatedAt = time.Now().UTC()
	query := s.rebind("INSERT INTO messages (content, user_id, conversation_id, group_id, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id")
	return s.db.QueryRow(query, msg.Content, msg.UserID, msg.ConversationID, msg.GroupID, msg.CreatedAt).Scan(&msg.ID)
}

func (s *SQLStore) ConversationMessages(conversationID int) ([]models.Message, error) {
	query := s.rebind(`
		SELECT m.id, m.content, m.user_id, u.name, m.conversation_id, m.created_at
		FROM messages m
		JOIN users u ON m.user_id = u.id
		WHERE m.conversation_id = ?
		ORDER BY m.created_at ASC
	`)
	rows, err := s.db.Query(query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.Content, &m.UserID, &m.UserName, &m.ConversationID, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *SQLStore) GroupMessages(groupID int) ([]models.Message, error) {
	query := s.rebind(`
		SELECT m.id, m.content, m.user_id, u.name, m.group_id, m.created_at
		FROM messages m
		JOIN users u ON m.user_id = u.id
		WHERE m.group_id = ?
		ORDER BY m.created_at ASC
	`)
	rows, err := s.db.Query(query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.Content, &m.UserID, &m.UserName, &m.GroupID, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *SQLStore) queryUsers(query string, arg int) ([]models.User, error) {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
