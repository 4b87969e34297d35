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

// AddResult is the outcome of an idempotent membership insert
type AddResult int

const (
	Added         AddResult = iota // A new membership row was inserted
	AlreadyMember                  // The user was already a member, nothing changed
)

// This repository owns the many-to-many relation between users and conversations.
type MembershipRepository interface {
	Add(ctx context.Context, conversationID string, user entity.UserID) (AddResult, error) // Inserts the membership, reporting AlreadyMember instead of failing on duplicates
	ListMembers(ctx context.Context, conversationID string) ([]entity.UserID, error)       // Retrieves the ids of the members, ascending
	IsMember(ctx context.Context, conversationID string, user entity.UserID) (bool, error) // Checks whether user belongs to the conversation
}

// Implementation of the repository using a SQLite DB
type SQLiteMembershipRepository struct {
	db *gorm.DB
}

func NewSQLiteMembershipRepository(db *gorm.DB) MembershipRepository {
	return &SQLiteMembershipRepository{db}
}

func (repo *SQLiteMembershipRepository) Add(ctx context.Context, conversationID string, user entity.UserID) (AddResult, error) {
	membership := &entity.Membership{ConversationID: conversationID, UserID: user}

	// Inside a savepoint so that a duplicate does not spoil an enclosing transaction
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(membership).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return AlreadyMember, nil
	}
	if err != nil {
		return AlreadyMember, apperr.Storage(err, fmt.Sprintf("add user %d to conversation %s", user, conversationID))
	}
	return Added, nil
}

func (repo *SQLiteMembershipRepository) ListMembers(ctx context.Context, conversationID string) ([]entity.UserID, error) {
	var members []entity.UserID
	err := repo.db.WithContext(ctx).
		Model(&entity.Membership{}).
		Where("conversation_id = ?", conversationID).
		Order("user_id ASC").
		Pluck("user_id", &members).Error
	if err != nil {
		return nil, apperr.Storage(err, "list members of conversation "+conversationID)
	}
	return members, nil
}

func (repo *SQLiteMembershipRepository) IsMember(ctx context.Context, conversationID string, user entity.UserID) (bool, error) {
	var count int64
	err := repo.db.WithContext(ctx).
		Model(&entity.Membership{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, user).
		Count(&count).Error
	if err != nil {
		return false, apperr.Storage(err, fmt.Sprintf("check membership of user %d in %s", user, conversationID))
	}
	return count > 0, nil
}
