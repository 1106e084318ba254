package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"parley/internal/middleware"
	"parley/internal/models"
	"parley/internal/store/sqlstore"
	"parley/internal/ws"
)

type convFixture struct {
	handler *ConversationHandler
	store   *sqlstore.SQLStore
	hub     *ws.Hub
}

func newConvFixture(t *testing.T) *convFixture {
	t.Helper()
	st, err := sqlstore.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	hub := ws.NewHub(zerolog.Nop())
	pipeline := ws.NewPipeline(st, hub, zerolog.Nop())
	return &convFixture{
		handler: &ConversationHandler{Store: st, Pipeline: pipeline, Log: zerolog.Nop()},
		store:   st,
		hub:     hub,
	}
}

func (f *convFixture) seedUser(t *testing.T, name string) int {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", Password: "hash"}
	if err := f.store.CreateUser(u); err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	return u.ID
}

// asUser fakes the auth middleware by planting the user id in the context.
func asUser(r *http.Request, userID int) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
	return r.WithContext(ctx)
}

func TestCreateConversationIncludesRequester(t *testing.T) {
	f := newConvFixture(t)
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")

	body, _ := json.Marshal(map[string]interface{}{
		"title": "dm", "isOneToOne": true, "userIds": []int{bob},
	})
	req := asUser(httptest.NewRequest("POST", "/api/conversations", bytes.NewReader(body)), alice)
	rr := httptest.NewRecorder()
	f.handler.Create(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var conv models.Conversation
	json.NewDecoder(rr.Body).Decode(&conv)
	if len(conv.Members) != 2 {
		t.Errorf("Expected requester to be added, got %d members", len(conv.Members))
	}
}

func TestCreateOneToOneWrongSize(t *testing.T) {
	f := newConvFixture(t)
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	carol := f.seedUser(t, "carol")

	body, _ := json.Marshal(map[string]interface{}{
		"title": "dm", "isOneToOne": true, "userIds": []int{bob, carol},
	})
	req := asUser(httptest.NewRequest("POST", "/api/conversations", bytes.NewReader(body)), alice)
	rr := httptest.NewRecorder()
	f.handler.Create(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

func TestGetConversationNonMember(t *testing.T) {
	f := newConvFixture(t)
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	outsider := f.seedUser(t, "mallory")

	conv, _ := f.store.CreateConversation("dm", true, []int{alice, bob})

	req := asUser(httptest.NewRequest("GET", "/api/conversations/"+strconv.Itoa(conv.ID), nil), outsider)
	req = mux.SetURLVars(req, map[string]string{"id": strconv.Itoa(conv.ID)})
	rr := httptest.NewRecorder()
	f.handler.Get(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for non-member, got %d", rr.Code)
	}
}

// Sending through the REST boundary must persist the message and trigger the
// same fanout as the socket path.
func TestSendMessageFansOutToLiveSessions(t *testing.T) {
	f := newConvFixture(t)
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")

	conv, _ := f.store.CreateConversation("dm", true, []int{alice, bob})

	send := make(chan []byte, 8)
	if err := f.hub.Register("bob-phone", bob, send); err != nil {
		t.Fatalf("Failed to register session: %v", err)
	}

	body, _ := json.Marshal(map[string]string{"content": "hi"})
	req := asUser(httptest.NewRequest("POST", "/api/conversations/"+strconv.Itoa(conv.ID)+"/messages", bytes.NewReader(body)), alice)
	req = mux.SetURLVars(req, map[string]string{"id": strconv.Itoa(conv.ID)})
	rr := httptest.NewRecorder()
	f.handler.SendMessage(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var msg models.Message
	json.NewDecoder(rr.Body).Decode(&msg)
	if msg.ID == 0 {
		t.Error("Expected persisted message in response")
	}

	select {
	case payload := <-send:
		var ev ws.Event
		json.Unmarshal(payload, &ev)
		if ev.Type != ws.EventMessageReceived || ev.Message.Content != "hi" {
			t.Errorf("Unexpected event: %+v", ev)
		}
	default:
		t.Error("Expected fanout delivery to bob's live session")
	}
}

func TestSendMessageNonMember(t *testing.T) {
	f := newConvFixture(t)
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	outsider := f.seedUser(t, "mallory")

	conv, _ := f.store.CreateConversation("dm", true, []int{alice, bob})

	body, _ := json.Marshal(map[string]string{"content": "hi"})
	req := asUser(httptest.NewRequest("POST", "/api/conversations/"+strconv.Itoa(conv.ID)+"/messages", bytes.NewReader(body)), outsider)
	req = mux.SetURLVars(req, map[string]string{"id": strconv.Itoa(conv.ID)})
	rr := httptest.NewRecorder()
	f.handler.SendMessage(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", rr.Code)
	}
}
