/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package repository

import (
	"context"
	"fmt"

	"schoolchat/internal/apperr"
	"schoolchat/internal/entity"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// DefaultListLimit bounds List when the caller gives no positive limit
const DefaultListLimit = 50

// This repository appends, lists and deletes messages, and keeps the per-recipient read flag.
// Read state only exists for direct messages: group messages have no recipient, so they are never
// marked as read nor counted as unread.
type MessageRepository interface {
	Append(ctx context.Context, sender entity.UserID, conversationID, content string, kind entity.Kind, recipient *entity.UserID) (*entity.Message, error) // Inserts a message, the store assigns id and timestamp
	Get(ctx context.Context, id uint64) (*entity.Message, error)                                                                                           // Retrieves the message with the given id
	List(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error)                                                                 // Retrieves at most limit messages of the conversation, oldest first
	MarkRead(ctx context.Context, conversationID string, user entity.UserID) (int64, error)                                                                // Marks as read the unread messages addressed to user, returning how many changed
	UnreadCount(ctx context.Context, user entity.UserID) (int64, error)                                                                                    // Counts the unread messages addressed to user, across conversations
	UnreadCountByConversation(ctx context.Context, user entity.UserID) (map[string]int64, error)                                                           // Same as UnreadCount, split by conversation
	Delete(ctx context.Context, id uint64) error                                                                                                           // Deletes the message, a missing id is not an error
}

// Implementation of the repository using a SQLite DB
type SQLiteMessageRepository struct {
	db    *gorm.DB
	clock *MonotonicClock
}

func NewSQLiteMessageRepository(db *gorm.DB, clock *MonotonicClock) MessageRepository {
	return &SQLiteMessageRepository{db, clock}
}

func (repo *SQLiteMessageRepository) Append(ctx context.Context, sender entity.UserID, conversationID, content string, kind entity.Kind, recipient *entity.UserID) (*entity.Message, error) {
	if !kind.Valid() {
		return nil, apperr.Validation("message kind %q is not valid", kind)
	}
	message := &entity.Message{
		SenderID:       sender,
		RecipientID:    recipient,
		ConversationID: conversationID,
		Content:        content,
		Kind:           kind,
		SentAt:         repo.clock.Next(),
	}
	if err := repo.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, apperr.Storage(err, "append message to "+conversationID)
	}
	return message, nil
}

func (repo *SQLiteMessageRepository) Get(ctx context.Context, id uint64) (*entity.Message, error) {
	var message entity.Message
	err := repo.db.WithContext(ctx).Where("id = ?", id).First(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("message", id)
	}
	if err != nil {
		return nil, apperr.Storage(err, fmt.Sprintf("get message %d", id))
	}
	return &message, nil
}

func (repo *SQLiteMessageRepository) List(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var messages []*entity.Message
	err := repo.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("sent_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, apperr.Storage(err, "list messages of "+conversationID)
	}
	return messages, nil
}

func (repo *SQLiteMessageRepository) MarkRead(ctx context.Context, conversationID string, user entity.UserID) (int64, error) {
	result := repo.db.WithContext(ctx).
		Model(&entity.Message{}).
		Where("conversation_id = ? AND recipient_id = ? AND read = ?", conversationID, user, false).
		Update("read", true)
	if result.Error != nil {
		return 0, apperr.Storage(result.Error, fmt.Sprintf("mark messages of %s read for user %d", conversationID, user))
	}
	return result.RowsAffected, nil
}

func (repo *SQLiteMessageRepository) UnreadCount(ctx context.Context, user entity.UserID) (int64, error) {
	var count int64
	err := repo.db.WithContext(ctx).
		Model(&entity.Message{}).
		Where("recipient_id = ? AND read = ?", user, false).
		Count(&count).Error
	if err != nil {
		return 0, apperr.Storage(err, fmt.Sprintf("count unread messages of user %d", user))
	}
	return count, nil
}

func (repo *SQLiteMessageRepository) UnreadCountByConversation(ctx context.Context, user entity.UserID) (map[string]int64, error) {
	var rows []struct {
		ConversationID string
		Unread         int64
	}
	err := repo.db.WithContext(ctx).
		Model(&entity.Message{}).
		Select("conversation_id, COUNT(*) AS unread").
		Where("recipient_id = ? AND read = ?", user, false).
		Group("conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Storage(err, fmt.Sprintf("count unread messages by conversation of user %d", user))
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.ConversationID] = row.Unread
	}
	return counts, nil
}

func (repo *SQLiteMessageRepository) Delete(ctx context.Context, id uint64) error {
	err := repo.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Message{}).Error
	return apperr.Storage(err, fmt.Sprintf("delete message %d", id))
}
