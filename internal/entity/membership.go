/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

// Membership links a user to a conversation. At most one row exists per pair.
type Membership struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	ConversationID string `gorm:"not null;index:idx_memberships_conversation;uniqueIndex:idx_memberships_conversation_user,priority:1" json:"conversation-id"`
	UserID         UserID `gorm:"not null;index:idx_memberships_user;uniqueIndex:idx_memberships_conversation_user,priority:2" json:"user-id"`
}
