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

type directMessageRequest struct {
	Recipient entity.UserID `json:"recipient" validate:"required,gt=0"`
	Content   string        `json:"content" validate:"required,max=4000"`
}

type messageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

// MessageHandler is used to handle all message-related routes
// Both direct and group messages
type MessageHandler struct {
	messagingService service.MessagingService
	authService      service.AuthService
	logger           nlog.Logger
}

func NewMessageHandler(messagingService service.MessagingService, authService service.AuthService, logger nlog.Logger) *MessageHandler {
	return &MessageHandler{
		messagingService: messagingService,
		authService:      authService,
		logger:           logger,
	}
}

// Used to send a message to another user, opening the conversation if needed
func (m *MessageHandler) SendDirectMessage(w http.ResponseWriter, r *http.Request) {
	thisUser, err := currentUser(r)
	if err != nil {
		writeError(w, m.logger, err)
		return
	}

	var request directMessageRequest
	if err := decodeJSON(w, r, &request); err != nil {
		writeError(w, m.logger, err)
		return
	}

	// The recipient must exist in the directory
	if _, err := m.authService.GetUser(r.Context(), request.Recipient); err != nil {
		writeError(w, m.logger, err)
		return
	}

	message, err := m.messagingService.SendDirectMessage(r.Context(), thisUser.ID, request.Recipient, request.Content)
	if err != nil {
		writeError(w, m.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  "success",
		"message": message,
	})
}

// Used to send a message in a group conversation
func (m *MessageHandler) SendGroupMessage(w http.ResponseWriter, r *http.Request) {
	thisUser, err := currentUser(r)
	if err != nil {
		writeError(w, m.logger, err)
		return
	}
	conversationID := mux.Vars(r)["id"]

	var request messageRequest
	if err := decodeJSON(w, r, &request); err != nil {
		writeError(w, m.logger, err)
		return
	}

	message, err := m.messagingService.SendGroupMessage(r.Context(), thisUser.ID, conversationID, request.Content)
	if err != nil {
		writeError(w, m.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  "success",
		"message": message,
	})
}

// Retrieves the messages of a conversation the user belongs to, oldest first
func (m *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	thisUser, err := currentUser(r)
	if err != nil {
		writeError(w, m.logger, err)
		return
	}
	conversationID := mux.Vars(r)["id"]

	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, m.logger, err)
		return
	}
	if err := requireMember(r.Context(), m.messagingService, conversationID, thisUser.ID); err != nil {
		writeError(w, m.logger, err)
		return
	}

	messages, err := m.messagingService.GetMessagesFromConversation(r.Context(), conversationID, limit)
	if err != nil {
		writeError(w, m.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"messages": messages,
	})
}

// Marks as read the messages of the conversation addressed to the user
func (m *MessageHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	thisUser, err := currentUser(r)
	if err != nil {
		writeError(w, m.logger, err)
		return
	}
	conversationID := mux.Vars(r)["id"]

	if err := requireMember(r.Context(), m.messagingService, conversationID, thisUser.ID); err != nil {
		writeError(w, m.logger, err)
		return
	}

	changed, err := m.messagingService.MarkMessagesAsRead(r.Context(), conversationID, thisUser.ID)
	if err != nil {
		writeError(w, m.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"marked": changed,
	})
}

// Retrieves the number of unread messages of the user, across conversations
func (m *MessageHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	thisUser, err := currentUser(r)
	if err != nil {
		writeError(w, m.logger, err)
		return
	}

	count, err := m.messagingService.GetUnreadMessageCount(r.Context(), thisUser.ID)
	if err != nil {
		writeError(w, m.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"unread": count,
	})
}

// Deletes a message. Only its sender can do it.
func (m *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	thisUser, err := currentUser(r)
	if err != nil {
		writeError(w, m.logger, err)
		return
	}

	id, err := parseMessageID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, m.logger, err)
		return
	}

	message, err := m.messagingService.GetMessage(r.Context(), id)
	if err != nil {
		writeError(w, m.logger, err)
		return
	}
	if message.SenderID != thisUser.ID {
		writeError(w, m.logger, apperr.Forbidden("message %d was not sent by user %d", id, thisUser.ID))
		return
	}

	if err := m.messagingService.DeleteMessage(r.Context(), id); err != nil {
		writeError(w, m.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
}
