/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

import "time"

// UserID identifies a user of the school directory.
type UserID int64

// Role of a user inside the school.
type Role string

const (
	RoleSecretary   Role = "secretary"
	RolePrincipal   Role = "principal"
	RoleCoordinator Role = "coordinator"
	RoleTeacher     Role = "teacher"
	RoleStudent     Role = "student"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSecretary, RolePrincipal, RoleCoordinator, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// User of the directory. Conversations only ever store its ID.
type User struct {
	ID        UserID    `gorm:"primaryKey;autoIncrement" json:"id"`
	Login     string    `gorm:"not null;uniqueIndex" json:"login"`
	Name      string    `gorm:"not null" json:"name"`
	Role      Role      `gorm:"not null;index" json:"role"`
	CreatedAt time.Time `gorm:"not null" json:"created-at"`

	Secret UserSecret `gorm:"foreignKey:UserID;references:ID" json:"-"`
}

// Just the ID of a user with its hashed password.
// It's stored in a different table so that even when doing SELECT * on a user, the hash is untouched.
type UserSecret struct {
	UserID UserID `gorm:"primaryKey" json:"-"`
	Hash   string `gorm:"not null" json:"-"` // BCrypt, already salted, default cost
}
