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

	"schoolchat/internal/apperr"
	"schoolchat/internal/entity"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// This repository is the user directory the messaging core resolves participants with.
// The messaging tables never copy profile data, they only keep UserIDs.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error                       // Inserts a user together with its secret
	GetByID(ctx context.Context, id entity.UserID) (*entity.User, error)       // Retrieves the user with the given id
	GetForLogin(ctx context.Context, login string) (*entity.User, error)       // Retrieves the user with the given login, WITH its secret
	GetByIDs(ctx context.Context, ids []entity.UserID) ([]*entity.User, error) // Retrieves the users with the given ids, missing ones are skipped
}

// Implementation of the repository using a SQLite DB
type SQLiteUserRepository struct {
	db *gorm.DB
}

func NewSQLiteUserRepository(db *gorm.DB) UserRepository {
	return &SQLiteUserRepository{db}
}

func (repo *SQLiteUserRepository) Create(ctx context.Context, user *entity.User) error {
	err := repo.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Validation("login %s is already taken", user.Login)
	}
	return apperr.Storage(err, "create user "+user.Login)
}

func (repo *SQLiteUserRepository) GetByID(ctx context.Context, id entity.UserID) (*entity.User, error) {
	var user entity.User
	err := repo.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user", id)
	}
	if err != nil {
		return nil, apperr.Storage(err, "get user")
	}
	return &user, nil
}

func (repo *SQLiteUserRepository) GetForLogin(ctx context.Context, login string) (*entity.User, error) {
	var user entity.User
	err := repo.db.WithContext(ctx).Preload("Secret").Where("login = ?", login).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user", login)
	}
	if err != nil {
		return nil, apperr.Storage(err, "get user for login")
	}
	return &user, nil
}

func (repo *SQLiteUserRepository) GetByIDs(ctx context.Context, ids []entity.UserID) ([]*entity.User, error) {
	var users []*entity.User
	if len(ids) == 0 {
		return users, nil
	}
	err := repo.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&users).Error
	if err != nil {
		return nil, apperr.Storage(err, "get users")
	}
	return users, nil
}
