package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"parley/internal/middleware"
	"parley/internal/store"
	"parley/internal/ws"
)

type ConversationHandler struct {
	Store    store.Store
	Pipeline *ws.Pipeline
	Log      zerolog.Logger
}

type CreateConversationRequest struct {
	Title      string `json:"title"`
	UserIDs    []int  `json:"userIds"`
	IsOneToOne bool   `json:"isOneToOne"`
}

type UpdateConversationRequest struct {
	Title   string `json:"title"`
	UserIDs []int  `json:"userIds"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.Store.UserConversations(middleware.UserID(r))
	if err != nil {
		h.Log.Error().Err(err).Msg("listing conversations")
		writeError(w, http.StatusInternalServerError, "Error fetching conversations")
		return
	}
	writeJSON(w, http.StatusOK, conversations)
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	// Non-members get the same 404 as a missing conversation.
	member, err := h.Store.IsConversationMember(id, middleware.UserID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error fetching conversation")
		return
	}
	if !member {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}

	conv, err := h.Store.GetConversation(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error fetching conversation")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := middleware.UserID(r)
	if !containsInt(req.UserIDs, userID) {
		req.UserIDs = append(req.UserIDs, userID)
	}

	conv, err := h.Store.CreateConversation(req.Title, req.IsOneToOne, req.UserIDs)
	if errors.Is(err, store.ErrInvalidTarget) {
		writeError(w, http.StatusBadRequest, "One-to-one conversations must have exactly two users")
		return
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("creating conversation")
		writeError(w, http.StatusInternalServerError, "Error creating conversation")
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

func (h *ConversationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	var req UpdateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.Store.UpdateConversation(id, req.Title, req.UserIDs)
	switch {
	case errors.Is(err, store.ErrInvalidTarget):
		writeError(w, http.StatusBadRequest, "One-to-one conversations must have exactly two users")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Conversation not found")
	case err != nil:
		h.Log.Error().Err(err).Int("conversation", id).Msg("updating conversation")
		writeError(w, http.StatusInternalServerError, "Error updating conversation")
	default:
		writeJSON(w, http.StatusOK, conv)
	}
}

func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}
	if err := h.Store.DeleteConversation(id); err != nil {
		h.Log.Error().Err(err).Int("conversation", id).Msg("deleting conversation")
		writeError(w, http.StatusInternalServerError, "Error deleting conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConversationHandler) OneToOne(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	conversations, err := h.Store.OneToOneConversations(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error fetching one-to-one conversations")
		return
	}
	writeJSON(w, http.StatusOK, conversations)
}

// SendMessage is the synchronous entry point into the ingestion pipeline; it
// returns the persisted message and triggers the same fanout as the socket
// path.
func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.Pipeline.Ingest(middleware.UserID(r), ws.SendRequest{
		Content:        req.Content,
		ConversationID: &id,
	})
	if err != nil {
		writeIngestError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func writeIngestError(w http.ResponseWriter, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, ws.ErrNotAMember):
		writeError(w, http.StatusForbidden, "Not a member of the target")
	case errors.Is(err, store.ErrInvalidTarget):
		writeError(w, http.StatusBadRequest, "Message must target exactly one conversation or group")
	case errors.Is(err, ws.ErrPersistence):
		log.Error().Err(err).Msg("persisting message")
		writeError(w, http.StatusInternalServerError, "Error sending message")
	default:
		log.Error().Err(err).Msg("ingesting message")
		writeError(w, http.StatusInternalServerError, "Error sending message")
	}
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
