/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package handler

import (
	"net/http"

	"schoolchat/internal/entity"
	"schoolchat/internal/middleware"
	"schoolchat/internal/nlog"
	"schoolchat/internal/service"

	"github.com/gorilla/sessions"
)

type registerRequest struct {
	Login    string      `json:"login" conform:"trim" validate:"required,max=64"`
	Name     string      `json:"name" conform:"trim" validate:"required,max=128"`
	Role     entity.Role `json:"role" validate:"required,oneof=secretary principal coordinator teacher student"`
	Password string      `json:"password" validate:"required"`
}

type loginRequest struct {
	Login    string `json:"login" conform:"trim" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthHandler handles registration and the session lifecycle
type AuthHandler struct {
	authService service.AuthService
	store       sessions.Store
	logger      nlog.Logger
}

func NewAuthHandler(authService service.AuthService, store sessions.Store, logger nlog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		store:       store,
		logger:      logger,
	}
}

// Register creates a new user of the directory. It does not log it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var request registerRequest
	if err := decodeJSON(w, r, &request); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.authService.Register(r.Context(), request.Login, request.Name, request.Role, request.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "success",
		"user":   user,
	})
}

// Login checks the credentials and stores the user in the session cookie
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var request loginRequest
	if err := decodeJSON(w, r, &request); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.authService.Login(r.Context(), request.Login, request.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// An undecodable cookie still yields a fresh session
	session, _ := h.store.Get(r, middleware.SessionName)
	session.Values[middleware.SessionKeyUserID] = int64(user.ID)
	session.Values[middleware.SessionKeyName] = user.Name
	session.Values[middleware.SessionKeyRole] = string(user.Role)
	if err := session.Save(r, w); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"user":   user,
	})
}

// Logout deletes the current session, effectively logging the user out
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.store.Get(r, middleware.SessionName)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
}
