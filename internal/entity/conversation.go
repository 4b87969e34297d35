/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package entity

import "time"

// Conversation between two users (direct) or among the members of a group.
type Conversation struct {
	ID             string    `gorm:"primaryKey" json:"id"`                   // "<low>_<high>" user ids for direct conversations, an opaque token for groups
	Title          string    `gorm:"not null" json:"title"`                  // Display title
	Kind           Kind      `gorm:"not null" json:"kind"`                   // Direct or group
	CreatorID      UserID    `gorm:"not null;index" json:"creator-id"`       // Informational only, never used as an access gate
	CreatedAt      time.Time `gorm:"not null" json:"created-at"`             // Time of creation
	LastActivityAt time.Time `gorm:"not null;index" json:"last-activity-at"` // Time of the most recent message, or creation if none
}
