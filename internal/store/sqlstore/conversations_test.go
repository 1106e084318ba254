package sqlstore

import (
	"errors"
	"testing"

	"parley/internal/models"
	"parley/internal/store"
)

func seedUsers(t *testing.T, names ...string) []int {
	t.Helper()
	ids := make([]int, 0, len(names))
	for _, name := range names {
		u := &models.User{Name: name, Email: name + "@example.com", Password: "hash"}
		if err := testStore.CreateUser(u); err != nil {
			t.Fatalf("Failed to seed user %s: %v", name, err)
		}
		ids = append(ids, u.ID)
	}
	return ids
}

func TestCreateConversation(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	ids := seedUsers(t, "alice", "bob", "carol")
	conv, err := testStore.CreateConversation("General", false, ids)
	if err != nil {
		t.Fatalf("Failed to create conversation: %v", err)
	}
	if conv.ID == 0 {
		t.Error("Expected non-zero conversation ID")
	}
	if len(conv.Members) != 3 {
		t.Errorf("Expected 3 members, got %d", len(conv.Members))
	}
}

func TestOneToOneRequiresTwoMembers(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	ids := seedUsers(t, "alice", "bob", "carol")

	if _, err := testStore.CreateConversation("dm", true, ids); !errors.Is(err, store.ErrInvalidTarget) {
		t.Errorf("Expected ErrInvalidTarget for 3 members, got %v", err)
	}
	if _, err := testStore.CreateConversation("dm", true, ids[:1]); !errors.Is(err, store.ErrInvalidTarget) {
		t.Errorf("Expected ErrInvalidTarget for 1 member, got %v", err)
	}

	conv, err := testStore.CreateConversation("dm", true, ids[:2])
	if err != nil {
		t.Fatalf("Failed to create one-to-one conversation: %v", err)
	}

	// The invariant also holds on update.
	if _, err := testStore.UpdateConversation(conv.ID, "dm", ids); !errors.Is(err, store.ErrInvalidTarget) {
		t.Errorf("Expected ErrInvalidTarget on update to 3 members, got %v", err)
	}
}

func TestIsConversationMember(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	ids := seedUsers(t, "alice", "bob", "carol")
	conv, _ := testStore.CreateConversation("General", false, ids[:2])

	member, err := testStore.IsConversationMember(conv.ID, ids[0])
	if err != nil {
		t.Fatalf("IsConversationMember failed: %v", err)
	}
	if !member {
		t.Error("Expected alice to be a member")
	}

	member, _ = testStore.IsConversationMember(conv.ID, ids[2])
	if member {
		t.Error("Expected carol to not be a member")
	}
}

func TestUpdateConversationReplacesMembers(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	ids := seedUsers(t, "alice", "bob", "carol")
	conv, _ := testStore.CreateConversation("General", false, ids[:2])

	updated, err := testStore.UpdateConversation(conv.ID, "Renamed", []int{ids[0], ids[2]})
	if err != nil {
		t.Fatalf("Failed to update conversation: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Errorf("Expected title 'Renamed', got '%s'", updated.Title)
	}

	member, _ := testStore.IsConversationMember(conv.ID, ids[1])
	if member {
		t.Error("Expected bob to be removed")
	}
	member, _ = testStore.IsConversationMember(conv.ID, ids[2])
	if !member {
		t.Error("Expected carol to be added")
	}
}

func TestUserConversations(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	ids := seedUsers(t, "alice", "bob")
	testStore.CreateConversation("Mine", false, ids[:1])
	testStore.CreateConversation("Theirs", false, ids[1:])

	conversations, err := testStore.UserConversations(ids[0])
	if err != nil {
		t.Fatalf("UserConversations failed: %v", err)
	}
	if len(conversations) != 1 {
		t.Fatalf("Expected 1 conversation, got %d", len(conversations))
	}
	if conversations[0].Title != "Mine" {
		t.Errorf("Expected 'Mine', got '%s'", conversations[0].Title)
	}
}

func TestOneToOneConversationsLatestMessage(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	ids := seedUsers(t, "alice", "bob")
	conv, _ := testStore.CreateConversation("dm", true, ids)
	testStore.CreateConversation("room", false, ids)

	for _, content := range []string{"first", "second"} {
		msg := &models.Message{Content: content, UserID: ids[0], ConversationID: &conv.ID}
		if err := testStore.CreateMessage(msg); err != nil {
			t.Fatalf("Failed to create message: %v", err)
		}
	}

	conversations, err := testStore.OneToOneConversations(ids[1])
	if err != nil {
		t.Fatalf("OneToOneConversations failed: %v", err)
	}
	if len(conversations) != 1 {
		t.Fatalf("Expected 1 one-to-one conversation, got %d", len(conversations))
	}
	if len(conversations[0].Messages) != 1 {
		t.Fatalf("Expected only the latest message, got %d", len(conversations[0].Messages))
	}
	if conversations[0].Messages[0].Content != "second" {
		t.Errorf("Expected latest message 'second', got '%s'", conversations[0].Messages[0].Content)
	}
}

func TestDeleteConversation(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	ids := seedUsers(t, "alice", "bob")
	conv, _ := testStore.CreateConversation("doomed", false, ids)
	msg := &models.Message{Content: "bye", UserID: ids[0], ConversationID: &conv.ID}
	testStore.CreateMessage(msg)

	if err := testStore.DeleteConversation(conv.ID); err != nil {
		t.Fatalf("Failed to delete conversation: %v", err)
	}

	if _, err := testStore.GetConversation(conv.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	messages, _ := testStore.ConversationMessages(conv.ID)
	if len(messages) != 0 {
		t.Error("Expected messages to be deleted")
	}
}
