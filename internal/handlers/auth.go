package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"parley/internal/auth"
	"parley/internal/models"
	"parley/internal/store"
)

var validate = validator.New()

type AuthHandler struct {
	Store  store.Store
	Tokens *auth.TokenManager
	Log    zerolog.Logger
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.Store.GetUserByEmail(req.Email); err == nil {
		writeError(w, http.StatusBadRequest, "Email already in use")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		h.Log.Error().Err(err).Msg("looking up email")
		writeError(w, http.StatusInternalServerError, "Error registering user")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error registering user")
		return
	}

	user := &models.User{Name: req.Name, Email: req.Email, Password: hash}
	if err := h.Store.CreateUser(user); err != nil {
		h.Log.Error().Err(err).Msg("creating user")
		writeError(w, http.StatusInternalServerError, "Error registering user")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User created successfully",
		"userId":  user.ID,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.Store.GetUserByEmail(req.Email)
	if err != nil || !auth.ComparePassword(req.Password, user.Password) {
		writeError(w, http.StatusBadRequest, "Invalid email or password")
		return
	}

	token, err := h.Tokens.Generate(user.ID)
	if err != nil {
		h.Log.Error().Err(err).Int("user", user.ID).Msg("signing token")
		writeError(w, http.StatusInternalServerError, "Error logging in")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":  token,
		"userId": user.ID,
		"name":   user.Name,
	})
}
