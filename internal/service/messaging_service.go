/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package service

import (
	"context"
	"strings"

	"schoolchat/internal/apperr"
	"schoolchat/internal/data"
	"schoolchat/internal/entity"
	"schoolchat/internal/nlog"
	"schoolchat/internal/repository"
)

const (
	DefaultPageSize = 50  // Messages returned when the caller gives no limit
	MaxPageSize     = 500 // Upper bound for any requested limit
)

// ConversationSummary is a conversation as shown in a user's inbox
type ConversationSummary struct {
	Conversation *entity.Conversation `json:"conversation"`
	Unread       int64                `json:"unread"` // Unread direct messages addressed to the user
}

// Service used to handle direct and group conversations and their messages.
//
// Unread counts and read marking only concern direct messages: group messages carry no recipient,
// so they are never counted nor marked.
type MessagingService interface {
	SendDirectMessage(ctx context.Context, sender, recipient entity.UserID, content string) (*entity.Message, error)           // Sends a message to recipient, creating the direct conversation on first contact
	SendGroupMessage(ctx context.Context, sender entity.UserID, conversationID, content string) (*entity.Message, error)       // Sends a message in an existing group the sender belongs to
	CreateGroupConversation(ctx context.Context, title string, creator entity.UserID, members []entity.UserID) (string, error) // Creates a group with the creator and the members, returning its id
	AddMemberToGroup(ctx context.Context, conversationID string, user entity.UserID) (bool, error)                             // Adds user to the group, false if already a member

	GetConversationsForUser(ctx context.Context, user entity.UserID) ([]*entity.Conversation, error)              // Conversations of user, most recently active first
	GetConversationSummaries(ctx context.Context, user entity.UserID) ([]ConversationSummary, error)              // Same as above, with the unread count of each
	GetMessagesFromConversation(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error) // Oldest first, at most limit (clamped) messages
	GetConversationDetails(ctx context.Context, conversationID string) (*entity.Conversation, error)              // Metadata of the conversation
	GetConversationMembers(ctx context.Context, conversationID string) ([]entity.UserID, error)                   // Ids of the members of the conversation
	IsMember(ctx context.Context, conversationID string, user entity.UserID) (bool, error)                        // Whether user belongs to the conversation

	MarkMessagesAsRead(ctx context.Context, conversationID string, user entity.UserID) (int64, error) // Marks the direct messages addressed to user as read
	GetUnreadMessageCount(ctx context.Context, user entity.UserID) (int64, error)                     // Unread direct messages addressed to user

	GetMessage(ctx context.Context, messageID uint64) (*entity.Message, error) // Retrieves a single message
	DeleteConversation(ctx context.Context, conversationID string) error       // Deletes the conversation with its memberships and messages
	DeleteMessage(ctx context.Context, messageID uint64) error                 // Deletes one message, a missing one is not an error
}

// PageOptions bounds the pagination of message listings
type PageOptions struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Local service is the implementation of the service on top of the local storage.
type localMessagingService struct {
	storage *data.StorageManager // Container of the repositories
	logger  nlog.Logger          // Logs a format string
	paging  PageOptions
}

func NewLocalMessagingService(storage *data.StorageManager, paging PageOptions, logger nlog.Logger) MessagingService {
	if paging.DefaultPageSize <= 0 {
		paging.DefaultPageSize = DefaultPageSize
	}
	if paging.MaxPageSize <= 0 {
		paging.MaxPageSize = MaxPageSize
	}
	if paging.DefaultPageSize > paging.MaxPageSize {
		paging.DefaultPageSize = paging.MaxPageSize
	}
	return &localMessagingService{
		storage: storage,
		logger:  logger,
		paging:  paging,
	}
}

func (m *localMessagingService) Logf(format string, v ...any) {
	m.logger.Logf(format, v...)
}

func (m *localMessagingService) SendDirectMessage(ctx context.Context, sender, recipient entity.UserID, content string) (*entity.Message, error) {
	if err := validateUsers(sender, recipient); err != nil {
		return nil, err
	}
	if sender == recipient {
		return nil, apperr.Validation("cannot send a direct message to oneself")
	}
	if err := validateContent(content); err != nil {
		return nil, err
	}

	conversation, err := m.storage.GetConversationRepository().GetOrCreateDirect(ctx, sender, recipient)
	if err != nil {
		m.Logf("Could not resolve the conversation between %d and %d {%v}", sender, recipient, err)
		return nil, err
	}

	message, err := m.appendAndTouch(ctx, conversation.ID, sender, content, entity.KindDirect, &recipient)
	if err != nil {
		m.Logf("Could not send the direct message in %s {%v}", conversation.ID, err)
		return nil, err
	}
	m.Logf("Direct message %d sent in %s", message.ID, conversation.ID)
	return message, nil
}

func (m *localMessagingService) SendGroupMessage(ctx context.Context, sender entity.UserID, conversationID, content string) (*entity.Message, error) {
	if err := validateUsers(sender); err != nil {
		return nil, err
	}
	if err := validateConversationID(conversationID); err != nil {
		return nil, err
	}
	if err := validateContent(content); err != nil {
		return nil, err
	}

	var message *entity.Message
	err := m.storage.Transaction(ctx, func(tx *data.StorageManager) error {
		conversation, err := tx.GetConversationRepository().Get(ctx, conversationID)
		if err != nil {
			return err
		}
		if conversation.Kind != entity.KindGroup {
			return apperr.Validation("conversation %s is not a group", conversationID)
		}
		member, err := tx.GetMembershipRepository().IsMember(ctx, conversationID, sender)
		if err != nil {
			return err
		}
		if !member {
			return apperr.Forbidden("user %d is not a member of %s", sender, conversationID)
		}

		message, err = tx.GetMessageRepository().Append(ctx, sender, conversationID, content, entity.KindGroup, nil)
		if err != nil {
			return err
		}
		return tx.GetConversationRepository().TouchActivity(ctx, conversationID, message.SentAt)
	})
	if err != nil {
		m.Logf("Could not send the group message in %s {%v}", conversationID, err)
		return nil, err
	}
	m.Logf("Group message %d sent in %s", message.ID, conversationID)
	return message, nil
}

// appendAndTouch appends the message and advances the conversation's activity in one transaction
func (m *localMessagingService) appendAndTouch(ctx context.Context, conversationID string, sender entity.UserID, content string, kind entity.Kind, recipient *entity.UserID) (*entity.Message, error) {
	var message *entity.Message
	err := m.storage.Transaction(ctx, func(tx *data.StorageManager) error {
		var err error
		message, err = tx.GetMessageRepository().Append(ctx, sender, conversationID, content, kind, recipient)
		if err != nil {
			return err
		}
		return tx.GetConversationRepository().TouchActivity(ctx, conversationID, message.SentAt)
	})
	return message, err
}

func (m *localMessagingService) CreateGroupConversation(ctx context.Context, title string, creator entity.UserID, members []entity.UserID) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperr.Validation("group title is empty")
	}
	if err := validateUsers(creator); err != nil {
		return "", err
	}
	if err := validateUsers(members...); err != nil {
		return "", err
	}

	conversation, err := m.storage.GetConversationRepository().CreateGroup(ctx, title, creator, members)
	if err != nil {
		m.Logf("Could not create group %q {%v}", title, err)
		return "", err
	}
	m.Logf("Group %s (%q) created by %d", conversation.ID, title, creator)
	return conversation.ID, nil
}

func (m *localMessagingService) AddMemberToGroup(ctx context.Context, conversationID string, user entity.UserID) (bool, error) {
	if err := validateConversationID(conversationID); err != nil {
		return false, err
	}
	if err := validateUsers(user); err != nil {
		return false, err
	}

	var result repository.AddResult
	err := m.storage.Transaction(ctx, func(tx *data.StorageManager) error {
		conversation, err := tx.GetConversationRepository().Get(ctx, conversationID)
		if err != nil {
			return err
		}
		if conversation.Kind != entity.KindGroup {
			return apperr.Validation("conversation %s is not a group", conversationID)
		}
		result, err = tx.GetMembershipRepository().Add(ctx, conversationID, user)
		return err
	})
	if err != nil {
		return false, err
	}
	if result == repository.AlreadyMember {
		m.Logf("User %d already in group %s", user, conversationID)
		return false, nil
	}
	m.Logf("User %d added to group %s", user, conversationID)
	return true, nil
}

func (m *localMessagingService) GetConversationsForUser(ctx context.Context, user entity.UserID) ([]*entity.Conversation, error) {
	if err := validateUsers(user); err != nil {
		return nil, err
	}
	return m.storage.GetConversationRepository().ListForUser(ctx, user)
}

func (m *localMessagingService) GetConversationSummaries(ctx context.Context, user entity.UserID) ([]ConversationSummary, error) {
	conversations, err := m.GetConversationsForUser(ctx, user)
	if err != nil {
		return nil, err
	}
	unread, err := m.storage.GetMessageRepository().UnreadCountByConversation(ctx, user)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		summaries = append(summaries, ConversationSummary{
			Conversation: conversation,
			Unread:       unread[conversation.ID],
		})
	}
	return summaries, nil
}

func (m *localMessagingService) GetMessagesFromConversation(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error) {
	if err := validateConversationID(conversationID); err != nil {
		return nil, err
	}
	if _, err := m.storage.GetConversationRepository().Get(ctx, conversationID); err != nil {
		return nil, err
	}
	return m.storage.GetMessageRepository().List(ctx, conversationID, m.clampLimit(limit))
}

// clampLimit applies the default page size to non positive limits and caps the others
func (m *localMessagingService) clampLimit(limit int) int {
	if limit <= 0 {
		return m.paging.DefaultPageSize
	}
	if limit > m.paging.MaxPageSize {
		return m.paging.MaxPageSize
	}
	return limit
}

func (m *localMessagingService) GetConversationDetails(ctx context.Context, conversationID string) (*entity.Conversation, error) {
	if err := validateConversationID(conversationID); err != nil {
		return nil, err
	}
	return m.storage.GetConversationRepository().Get(ctx, conversationID)
}

func (m *localMessagingService) GetConversationMembers(ctx context.Context, conversationID string) ([]entity.UserID, error) {
	if err := validateConversationID(conversationID); err != nil {
		return nil, err
	}
	if _, err := m.storage.GetConversationRepository().Get(ctx, conversationID); err != nil {
		return nil, err
	}
	return m.storage.GetMembershipRepository().ListMembers(ctx, conversationID)
}

func (m *localMessagingService) IsMember(ctx context.Context, conversationID string, user entity.UserID) (bool, error) {
	if err := validateConversationID(conversationID); err != nil {
		return false, err
	}
	if err := validateUsers(user); err != nil {
		return false, err
	}
	return m.storage.GetMembershipRepository().IsMember(ctx, conversationID, user)
}

func (m *localMessagingService) MarkMessagesAsRead(ctx context.Context, conversationID string, user entity.UserID) (int64, error) {
	if err := validateConversationID(conversationID); err != nil {
		return 0, err
	}
	if err := validateUsers(user); err != nil {
		return 0, err
	}
	if _, err := m.storage.GetConversationRepository().Get(ctx, conversationID); err != nil {
		return 0, err
	}

	changed, err := m.storage.GetMessageRepository().MarkRead(ctx, conversationID, user)
	if err != nil {
		return 0, err
	}
	m.Logf("%d messages of %s marked as read by %d", changed, conversationID, user)
	return changed, nil
}

func (m *localMessagingService) GetUnreadMessageCount(ctx context.Context, user entity.UserID) (int64, error) {
	if err := validateUsers(user); err != nil {
		return 0, err
	}
	return m.storage.GetMessageRepository().UnreadCount(ctx, user)
}

func (m *localMessagingService) DeleteConversation(ctx context.Context, conversationID string) error {
	if err := validateConversationID(conversationID); err != nil {
		return err
	}
	if err := m.storage.GetConversationRepository().Delete(ctx, conversationID); err != nil {
		m.Logf("Could not delete conversation %s {%v}", conversationID, err)
		return err
	}
	m.Logf("Conversation %s deleted", conversationID)
	return nil
}

func (m *localMessagingService) GetMessage(ctx context.Context, messageID uint64) (*entity.Message, error) {
	if messageID == 0 {
		return nil, apperr.Validation("message id is missing")
	}
	return m.storage.GetMessageRepository().Get(ctx, messageID)
}

func (m *localMessagingService) DeleteMessage(ctx context.Context, messageID uint64) error {
	if messageID == 0 {
		return apperr.Validation("message id is missing")
	}
	if err := m.storage.GetMessageRepository().Delete(ctx, messageID); err != nil {
		m.Logf("Could not delete message %d {%v}", messageID, err)
		return err
	}
	m.Logf("Message %d deleted", messageID)
	return nil
}

func validateUsers(users ...entity.UserID) error {
	for _, user := range users {
		if user <= 0 {
			return apperr.Validation("user id %d is not valid", user)
		}
	}
	return nil
}

func validateConversationID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.Validation("conversation id is missing")
	}
	return nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return apperr.Validation("message content is empty")
	}
	return nil
}
