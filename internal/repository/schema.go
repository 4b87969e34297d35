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

	"gorm.io/gorm"
)

// InitializeSchema creates the conversations, memberships and messages tables and their indexes if absent.
// It is idempotent and meant to run on every start; a failure leaves the messaging core unusable.
func InitializeSchema(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).AutoMigrate(
		&entity.Conversation{},
		&entity.Membership{},
		&entity.Message{},
	)
	return apperr.Storage(err, "initialize messaging schema")
}

// InitializeUserSchema creates the tables of the user directory.
func InitializeUserSchema(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).AutoMigrate(
		&entity.User{},
		&entity.UserSecret{},
	)
	return apperr.Storage(err, "initialize user schema")
}
