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

	"schoolchat/internal/apperr"
	"schoolchat/internal/entity"
	"schoolchat/internal/nlog"
	"schoolchat/internal/service"

	"github.com/gorilla/mux"
)

type groupDetails struct {
	Title string `json:"title" conform:"trim" validate:"required,max=120"`
}

type createGroupRequest struct {
	groupDetails
	Members []entity.UserID `json:"members" validate:"dive,gt=0"`
}

// Members are ids, only the details go through conform
func (r *createGroupRequest) conformTarget() any {
	return &r.groupDetails
}

type addMemberRequest struct {
	User entity.UserID `json:"user" validate:"required,gt=0"`
}

// ConversationHandler is used to handle conversation and group routes
type ConversationHandler struct {
	messagingService service.MessagingService
	authService      service.AuthService
	logger           nlog.Logger
}

func NewConversationHandler(messagingService service.MessagingService, authService service.AuthService, logger nlog.Logger) *ConversationHandler {
	return &ConversationHandler{
		messagingService: messagingService,
		authService:      authService,
		logger:           logger,
	}
}

// Retrieves the conversations of the user, most recently active first, each with its unread count
func (c *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	thisUser, err := currentUser(r)
	if err != nil {
		writeError(w, c.logger, err)
		return
	}

	summaries, err := c.messagingService.GetConversationSummaries(r.Context(), thisUser.ID)
	if err != nil {
		writeError(w, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"conversations": summaries,
	})
}

// Retrieves the metadata of a conversation the user belongs to
func (c *ConversationHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	thisUser, err := currentUser(r)
	if err != nil {
		writeError(w, c.logger, err)
		return
	}
	conversationID := mux.Vars(r)["id"]

	if err := requireMember(r.Context(), c.messagingService, conversationID, thisUser.ID); err != nil {
		writeError(w, c.logger, err)
		return
	}

	conversation, err := c.messagingService.GetConversationDetails(r.Context(), conversationID)
	if err != nil {
		writeError(w, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "success",
		"conversation": conversation,
	})
}

// Retrieves the members of a conversation, resolved through the user directory
func (c *ConversationHandler) GetMembers(w http.ResponseWriter, r *http.Request) {
	thisUser, err := currentUser(r)
	if err != nil {
		writeError(w, c.logger, err)
		return
	}
	conversationID := mux.Vars(r)["id"]

	if err := requireMember(r.Context(), c.messagingService, conversationID, thisUser.ID); err != nil {
		writeError(w, c.logger, err)
		return
	}

	ids, err := c.messagingService.GetConversationMembers(r.Context(), conversationID)
	if err != nil {
		writeError(w, c.logger, err)
		return
	}
	users, err := c.authService.GetUsers(r.Context(), ids)
	if err != nil {
		writeError(w, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"members": ids,
		"users":   users,
	})
}

// Creates a group with the user as creator
func (c *ConversationHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	thisUser, err := currentUser(r)
	if err != nil {
		writeError(w, c.logger, err)
		return
	}

	var request createGroupRequest
	if err := decodeJSON(w, r, &request); err != nil {
		writeError(w, c.logger, err)
		return
	}
	if err := c.requireUsers(r, request.Members); err != nil {
		writeError(w, c.logger, err)
		return
	}

	id, err := c.messagingService.CreateGroupConversation(r.Context(), request.Title, thisUser.ID, request.Members)
	if err != nil {
		writeError(w, c.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "success",
		"id":     id,
	})
}

// Adds a user to a group. Only members can add others.
func (c *ConversationHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	thisUser, err := currentUser(r)
	if err != nil {
		writeError(w, c.logger, err)
		return
	}
	conversationID := mux.Vars(r)["id"]

	var request addMemberRequest
	if err := decodeJSON(w, r, &request); err != nil {
		writeError(w, c.logger, err)
		return
	}
	if err := requireMember(r.Context(), c.messagingService, conversationID, thisUser.ID); err != nil {
		writeError(w, c.logger, err)
		return
	}
	if _, err := c.authService.GetUser(r.Context(), request.User); err != nil {
		writeError(w, c.logger, err)
		return
	}

	added, err := c.messagingService.AddMemberToGroup(r.Context(), conversationID, request.User)
	if err != nil {
		writeError(w, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"added":  added,
	})
}

// Deletes a conversation with all its messages. Only members can do it.
func (c *ConversationHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	thisUser, err := currentUser(r)
	if err != nil {
		writeError(w, c.logger, err)
		return
	}
	conversationID := mux.Vars(r)["id"]

	if err := requireMember(r.Context(), c.messagingService, conversationID, thisUser.ID); err != nil {
		writeError(w, c.logger, err)
		return
	}
	if err := c.messagingService.DeleteConversation(r.Context(), conversationID); err != nil {
		writeError(w, c.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

// requireUsers fails with ErrNotFound on the first id missing from the user directory
func (c *ConversationHandler) requireUsers(r *http.Request, ids []entity.UserID) error {
	if len(ids) == 0 {
		return nil
	}
	users, err := c.authService.GetUsers(r.Context(), ids)
	if err != nil {
		return err
	}
	known := make(map[entity.UserID]bool, len(users))
	for _, user := range users {
		known[user.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return apperr.NotFound("user", id)
		}
	}
	return nil
}
