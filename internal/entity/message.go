/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

import "time"

// Represents a message sent in a direct or a group conversation.
// Group messages have no recipient: fan-out is implied by the conversation's memberships.
type Message struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`                              // Store-assigned, monotonic
	SenderID       UserID    `gorm:"not null;index:idx_messages_sender" json:"sender"`                // Author of the message
	RecipientID    *UserID   `gorm:"index:idx_messages_recipient" json:"recipient"`                   // Set for direct messages only
	ConversationID string    `gorm:"not null;index:idx_messages_conversation" json:"conversation-id"` // Conversation the message belongs to
	Content        string    `gorm:"not null" json:"content"`                                         // Actual content of the message
	Kind           Kind      `gorm:"not null" json:"kind"`                                            // Same kind as its conversation
	SentAt         time.Time `gorm:"not null;index:idx_messages_sent_at" json:"sent-at"`              // Non-decreasing per conversation
	Read           bool      `gorm:"not null;default:false;index:idx_messages_read" json:"read"`      // Flipped by the recipient, never for group messages
}
