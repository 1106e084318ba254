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

type GroupHandler struct {
	Store    store.Store
	Pipeline *ws.Pipeline
	Log      zerolog.Logger
}

type CreateGroupRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	UserIDs     []int  `json:"userIds"`
}

type UpdateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	UserIDs     []int  `json:"userIds"`
}

type AddGroupMemberRequest struct {
	UserID int `json:"userId" validate:"required"`
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Store.UserGroups(middleware.UserID(r))
	if err != nil {
		h.Log.Error().Err(err).Msg("listing groups")
		writeError(w, http.StatusInternalServerError, "Error fetching groups")
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	member, err := h.Store.IsGroupMember(id, middleware.UserID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error fetching group")
		return
	}
	if !member {
		writeError(w, http.StatusNotFound, "Group not found")
		return
	}

	group, err := h.Store.GetGroup(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error fetching group")
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := middleware.UserID(r)
	if !containsInt(req.UserIDs, userID) {
		req.UserIDs = append(req.UserIDs, userID)
	}

	group, err := h.Store.CreateGroup(req.Name, req.Description, req.UserIDs)
	if err != nil {
		h.Log.Error().Err(err).Msg("creating group")
		writeError(w, http.StatusInternalServerError, "Error creating group")
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	var req UpdateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	group, err := h.Store.UpdateGroup(id, req.Name, req.Description, req.UserIDs)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Group not found")
	case err != nil:
		h.Log.Error().Err(err).Int("group", id).Msg("updating group")
		writeError(w, http.StatusInternalServerError, "Error updating group")
	default:
		writeJSON(w, http.StatusOK, group)
	}
}

func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	if err := h.Store.DeleteGroup(id); err != nil {
		h.Log.Error().Err(err).Int("group", id).Msg("deleting group")
		writeError(w, http.StatusInternalServerError, "Error deleting group")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	var req AddGroupMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Store.AddGroupMember(id, req.UserID); err != nil {
		h.Log.Error().Err(err).Int("group", id).Msg("adding group member")
		writeError(w, http.StatusInternalServerError, "Error adding user to group")
		return
	}

	group, err := h.Store.GetGroup(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error adding user to group")
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	userID, ok := pathID(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.Store.RemoveGroupMember(id, userID); err != nil {
		h.Log.Error().Err(err).Int("group", id).Msg("removing group member")
		writeError(w, http.StatusInternalServerError, "Error removing user from group")
		return
	}

	group, err := h.Store.GetGroup(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error removing user from group")
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// SendMessage runs the same ingestion pipeline as the websocket path, so
// group messages fan out identically no matter which boundary they enter
// through.
func (h *GroupHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group id")
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
		Content: req.Content,
		GroupID: &id,
	})
	if err != nil {
		writeIngestError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}
