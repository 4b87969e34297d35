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
	"sort"
	"strconv"
	"time"

	"schoolchat/internal/apperr"
	"schoolchat/internal/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DirectConversationTitle is the title stored for every two-party conversation.
const DirectConversationTitle = "Private conversation"

// DeriveDirectID returns the identifier of the direct conversation between a and b.
// The ids are sorted ascending and joined by '_', so the result does not depend on the argument order.
func DeriveDirectID(a, b entity.UserID) string {
	pair := []entity.UserID{a, b}
	sort.Slice(pair, func(i, j int) bool { return pair[i] < pair[j] })
	return strconv.FormatInt(int64(pair[0]), 10) + "_" + strconv.FormatInt(int64(pair[1]), 10)
}

// This repository owns conversation identity, metadata and activity timestamps.
type ConversationRepository interface {
	GetOrCreateDirect(ctx context.Context, a, b entity.UserID) (*entity.Conversation, error)                                     // Retrieves the direct conversation between a and b, creating it (with both memberships) if absent
	CreateGroup(ctx context.Context, title string, creator entity.UserID, members []entity.UserID) (*entity.Conversation, error) // Creates a group conversation with the creator and the deduplicated members
	Get(ctx context.Context, id string) (*entity.Conversation, error)                                                            // Retrieves the conversation with the given id
	TouchActivity(ctx context.Context, id string, at time.Time) error                                                            // Sets the last activity time of the conversation
	Delete(ctx context.Context, id string) error                                                                                 // Deletes memberships, messages and then the conversation
	ListForUser(ctx context.Context, user entity.UserID) ([]*entity.Conversation, error)                                         // Retrieves the conversations user is a member of, most recently active first
}

// Implementation of the repository using a SQLite DB
type SQLiteConversationRepository struct {
	db    *gorm.DB
	clock *MonotonicClock
}

func NewSQLiteConversationRepository(db *gorm.DB, clock *MonotonicClock) ConversationRepository {
	return &SQLiteConversationRepository{db, clock}
}

func (repo *SQLiteConversationRepository) GetOrCreateDirect(ctx context.Context, a, b entity.UserID) (*entity.Conversation, error) {
	id := DeriveDirectID(a, b)

	var conversation entity.Conversation
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", id).First(&conversation).Error
		if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := repo.clock.Next()
		conversation = entity.Conversation{
			ID:             id,
			Title:          DirectConversationTitle,
			Kind:           entity.KindDirect,
			CreatorID:      a,
			CreatedAt:      now,
			LastActivityAt: now,
		}
		if err := tx.Create(&conversation).Error; err != nil {
			return err
		}

		members := []*entity.Membership{
			{ConversationID: id, UserID: a},
			{ConversationID: id, UserID: b},
		}
		return tx.Create(&members).Error
	})

	// Somebody else created it between our lookup and our insert: theirs is as good as ours.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repo.Get(ctx, id)
	}
	if err != nil {
		return nil, apperr.Storage(err, "get or create direct conversation "+id)
	}
	return &conversation, nil
}

func (repo *SQLiteConversationRepository) CreateGroup(ctx context.Context, title string, creator entity.UserID, members []entity.UserID) (*entity.Conversation, error) {
	now := repo.clock.Next()
	conversation := &entity.Conversation{
		ID:             uuid.NewString(),
		Title:          title,
		Kind:           entity.KindGroup,
		CreatorID:      creator,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	seen := map[entity.UserID]struct{}{creator: {}}
	memberships := []*entity.Membership{{ConversationID: conversation.ID, UserID: creator}}
	for _, member := range members {
		if _, ok := seen[member]; ok {
			continue
		}
		seen[member] = struct{}{}
		memberships = append(memberships, &entity.Membership{ConversationID: conversation.ID, UserID: member})
	}

	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conversation).Error; err != nil {
			return err
		}
		return tx.Create(&memberships).Error
	})
	if err != nil {
		return nil, apperr.Storage(err, "create group conversation")
	}
	return conversation, nil
}

func (repo *SQLiteConversationRepository) Get(ctx context.Context, id string) (*entity.Conversation, error) {
	var conversation entity.Conversation
	err := repo.db.WithContext(ctx).Where("id = ?", id).First(&conversation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("conversation", id)
	}
	if err != nil {
		return nil, apperr.Storage(err, "get conversation "+id)
	}
	return &conversation, nil
}

func (repo *SQLiteConversationRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	result := repo.db.WithContext(ctx).
		Model(&entity.Conversation{}).
		Where("id = ?", id).
		Update("last_activity_at", at.UTC())
	if result.Error != nil {
		return apperr.Storage(result.Error, "touch conversation "+id)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("conversation", id)
	}
	return nil
}

func (repo *SQLiteConversationRepository) Delete(ctx context.Context, id string) error {
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&entity.Membership{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&entity.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.Conversation{}).Error
	})
	return apperr.Storage(err, "delete conversation "+id)
}

func (repo *SQLiteConversationRepository) ListForUser(ctx context.Context, user entity.UserID) ([]*entity.Conversation, error) {
	var conversations []*entity.Conversation
	err := repo.db.WithContext(ctx).
		Select("conversations.*").
		Joins("JOIN memberships ON memberships.conversation_id = conversations.id").
		Where("memberships.user_id = ?", user).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "conversations", Name: "last_activity_at"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "conversations", Name: "id"}}).
		Find(&conversations).Error
	if err != nil {
		return nil, apperr.Storage(err, fmt.Sprintf("list conversations of user %d", user))
	}
	return conversations, nil
}
