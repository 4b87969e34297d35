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
	"path/filepath"
	"testing"
	"time"

	"schoolchat/internal/entity"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh database file, with the messaging schema already in place
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "messaging.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Could not open the database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Could not get the pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := InitializeSchema(context.Background(), db); err != nil {
		t.Fatalf("Could not initialize the schema: %v", err)
	}
	return db
}

// steppingClock returns a clock source advancing one second per call
func steppingClock() func() time.Time {
	current := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestInitializeSchemaIsIdempotent(t *testing.T) {
	db := newTestDB(t)

	if err := InitializeSchema(context.Background(), db); err != nil {
		t.Fatalf("Second initialization should not fail, GOT[%v]", err)
	}

	for _, table := range []string{"conversations", "memberships", "messages"} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("Table %s is missing", table)
		}
	}

	messageIndexes := []string{
		"idx_messages_sender",
		"idx_messages_recipient",
		"idx_messages_conversation",
		"idx_messages_sent_at",
		"idx_messages_read",
	}
	for _, index := range messageIndexes {
		if !db.Migrator().HasIndex(&entity.Message{}, index) {
			t.Errorf("Index %s is missing", index)
		}
	}

	membershipIndexes := []string{
		"idx_memberships_conversation",
		"idx_memberships_user",
		"idx_memberships_conversation_user",
	}
	for _, index := range membershipIndexes {
		if !db.Migrator().HasIndex(&entity.Membership{}, index) {
			t.Errorf("Index %s is missing", index)
		}
	}
}

func TestInitializeUserSchema(t *testing.T) {
	db := newTestDB(t)

	if err := InitializeUserSchema(context.Background(), db); err != nil {
		t.Fatalf("Expected no error, GOT[%v]", err)
	}
	if !db.Migrator().HasTable(&entity.User{}) || !db.Migrator().HasTable(&entity.UserSecret{}) {
		t.Errorf("User tables are missing")
	}
}

func TestMonotonicClockNeverGoesBack(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	readings := []time.Time{base, base.Add(-time.Minute), base.Add(time.Second)}
	i := 0
	clock := NewMonotonicClockFrom(func() time.Time {
		r := readings[i]
		i++
		return r
	})

	first := clock.Next()
	second := clock.Next()
	third := clock.Next()

	if !second.Equal(first) {
		t.Errorf("Clock went back. GOT[%v], EXPECTED[%v]", second, first)
	}
	if !third.Equal(base.Add(time.Second)) {
		t.Errorf("Clock should follow the source forward. GOT[%v]", third)
	}
}
