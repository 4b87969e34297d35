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
	"sync"
	"testing"
	"time"

	"schoolchat/internal/apperr"
	"schoolchat/internal/entity"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func countRows(t *testing.T, repo *SQLiteConversationRepository, model any, where string, args ...any) int64 {
	t.Helper()
	var count int64
	if err := repo.db.Model(model).Where(where, args...).Count(&count).Error; err != nil {
		t.Fatalf("Could not count rows: %v", err)
	}
	return count
}

func newConversationRepo(t *testing.T) *SQLiteConversationRepository {
	return NewSQLiteConversationRepository(newTestDB(t), NewMonotonicClockFrom(steppingClock())).(*SQLiteConversationRepository)
}

func TestDeriveDirectIDIsSymmetric(t *testing.T) {
	ids := []entity.UserID{1, 2, 7, 9, 10, 42, 1000}
	for _, a := range ids {
		for _, b := range ids {
			if DeriveDirectID(a, b) != DeriveDirectID(b, a) {
				t.Errorf("Not symmetric for (%d, %d). GOT[%s] and [%s]", a, b, DeriveDirectID(a, b), DeriveDirectID(b, a))
			}
		}
	}
}

func TestDeriveDirectIDSortsNumerically(t *testing.T) {
	cases := []struct {
		a, b     entity.UserID
		expected string
	}{
		{1, 7, "1_7"},
		{7, 1, "1_7"},
		{10, 9, "9_10"},
		{2, 1, "1_2"},
	}
	for _, c := range cases {
		if got := DeriveDirectID(c.a, c.b); got != c.expected {
			t.Errorf("Wrong id. GOT[%s], EXPECTED[%s]", got, c.expected)
		}
	}
}

func TestGetOrCreateDirectCreatesOnce(t *testing.T) {
	repo := newConversationRepo(t)
	ctx := context.Background()

	first, err := repo.GetOrCreateDirect(ctx, 7, 1)
	if err != nil {
		t.Fatalf("Expected no error, GOT[%v]", err)
	}
	if first.ID != "1_7" || first.Kind != entity.KindDirect || first.CreatorID != 7 {
		t.Errorf("Wrong conversation created: %+v", first)
	}

	second, err := repo.GetOrCreateDirect(ctx, 1, 7)
	if err != nil {
		t.Fatalf("Expected no error, GOT[%v]", err)
	}
	if second.ID != first.ID || second.CreatorID != 7 {
		t.Errorf("Expected the existing conversation, GOT[%+v]", second)
	}

	if n := countRows(t, repo, &entity.Conversation{}, "id = ?", "1_7"); n != 1 {
		t.Errorf("Expected 1 conversation row, GOT[%d]", n)
	}
	if n := countRows(t, repo, &entity.Membership{}, "conversation_id = ?", "1_7"); n != 2 {
		t.Errorf("Expected 2 membership rows, GOT[%d]", n)
	}
}

func TestGetOrCreateDirectConcurrent(t *testing.T) {
	repo := newConversationRepo(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := entity.UserID(3), entity.UserID(4)
			if i%2 == 1 {
				a, b = b, a
			}
			if _, err := repo.GetOrCreateDirect(ctx, a, b); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent creation failed: %v", err)
	}
	if n := countRows(t, repo, &entity.Conversation{}, "id = ?", "3_4"); n != 1 {
		t.Errorf("Expected 1 conversation row, GOT[%d]", n)
	}
	if n := countRows(t, repo, &entity.Membership{}, "conversation_id = ?", "3_4"); n != 2 {
		t.Errorf("Expected 2 membership rows, GOT[%d]", n)
	}
}

// A conversation inserted by another writer between the lookup and the insert is returned as is
func TestGetOrCreateDirectReconcilesDuplicate(t *testing.T) {
	repo := newConversationRepo(t)
	ctx := context.Background()

	existing := time.Date(2025, 9, 1, 7, 30, 0, 0, time.UTC)
	if err := repo.db.Create(&entity.Conversation{
		ID:             "5_8",
		Title:          DirectConversationTitle,
		Kind:           entity.KindDirect,
		CreatorID:      8,
		CreatedAt:      existing,
		LastActivityAt: existing,
	}).Error; err != nil {
		t.Fatalf("Could not insert the conversation: %v", err)
	}
	if err := repo.db.Create([]*entity.Membership{
		{ConversationID: "5_8", UserID: 5},
		{ConversationID: "5_8", UserID: 8},
	}).Error; err != nil {
		t.Fatalf("Could not insert the memberships: %v", err)
	}

	// The first lookup misses, as if the other writer had not committed yet
	hidden := false
	err := repo.db.Callback().Query().After("gorm:query").Register("test:hide_conversation", func(tx *gorm.DB) {
		if !hidden && tx.Statement.Table == "conversations" {
			hidden = true
			tx.Error = gorm.ErrRecordNotFound
		}
	})
	if err != nil {
		t.Fatalf("Could not register the callback: %v", err)
	}

	conversation, err := repo.GetOrCreateDirect(ctx, 5, 8)
	if err != nil {
		t.Fatalf("GetOrCreateDirect failed: %v", err)
	}
	if !hidden {
		t.Fatalf("The lookup was never hidden, the insert did not conflict")
	}
	if conversation.ID != "5_8" || conversation.CreatorID != 8 || !conversation.CreatedAt.Equal(existing) {
		t.Errorf("Expected the existing conversation, GOT[%s creator %d at %v]", conversation.ID, conversation.CreatorID, conversation.CreatedAt)
	}
	if n := countRows(t, repo, &entity.Conversation{}, "id = ?", "5_8"); n != 1 {
		t.Errorf("Expected 1 conversation row, GOT[%d]", n)
	}
	if n := countRows(t, repo, &entity.Membership{}, "conversation_id = ?", "5_8"); n != 2 {
		t.Errorf("Expected 2 membership rows, GOT[%d]", n)
	}
}

func TestCreateGroupDeduplicatesMembers(t *testing.T) {
	repo := newConversationRepo(t)
	members := NewSQLiteMembershipRepository(repo.db)
	ctx := context.Background()

	group, err := repo.CreateGroup(ctx, "Docentes 10A", 1, []entity.UserID{2, 3, 1, 2})
	if err != nil {
		t.Fatalf("Expected no error, GOT[%v]", err)
	}
	if group.Kind != entity.KindGroup || group.Title != "Docentes 10A" || group.CreatorID != 1 {
		t.Errorf("Wrong group created: %+v", group)
	}

	ids, err := members.ListMembers(ctx, group.ID)
	if err != nil {
		t.Fatalf("Expected no error, GOT[%v]", err)
	}
	expected := []entity.UserID{1, 2, 3}
	if len(ids) != len(expected) {
		t.Fatalf("Wrong members. GOT[%v], EXPECTED[%v]", ids, expected)
	}
	for i := range expected {
		if ids[i] != expected[i] {
			t.Errorf("Wrong members. GOT[%v], EXPECTED[%v]", ids, expected)
		}
	}
}

func TestCreateGroupIdsAreUnique(t *testing.T) {
	repo := newConversationRepo(t)
	ctx := context.Background()

	a, err := repo.CreateGroup(ctx, "A", 1, nil)
	if err != nil {
		t.Fatalf("Expected no error, GOT[%v]", err)
	}
	b, err := repo.CreateGroup(ctx, "A", 1, nil)
	if err != nil {
		t.Fatalf("Expected no error, GOT[%v]", err)
	}
	if a.ID == b.ID {
		t.Errorf("Two groups share the id %s", a.ID)
	}
}

func TestGetMissingConversation(t *testing.T) {
	repo := newConversationRepo(t)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, GOT[%v]", err)
	}
}

func TestTouchActivity(t *testing.T) {
	repo := newConversationRepo(t)
	ctx := context.Background()

	conversation, _ := repo.GetOrCreateDirect(ctx, 1, 2)
	later := conversation.LastActivityAt.Add(time.Hour)

	if err := repo.TouchActivity(ctx, conversation.ID, later); err != nil {
		t.Fatalf("Expected no error, GOT[%v]", err)
	}
	got, _ := repo.Get(ctx, conversation.ID)
	if !got.LastActivityAt.Equal(later) {
		t.Errorf("Wrong activity time. GOT[%v], EXPECTED[%v]", got.LastActivityAt, later)
	}

	if err := repo.TouchActivity(ctx, "missing", later); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, GOT[%v]", err)
	}
}

func TestDeleteConversationCascades(t *testing.T) {
	repo := newConversationRepo(t)
	messages := NewSQLiteMessageRepository(repo.db, repo.clock)
	ctx := context.Background()

	conversation, _ := repo.GetOrCreateDirect(ctx, 1, 2)
	recipient := entity.UserID(2)
	messages.Append(ctx, 1, conversation.ID, "Hola", entity.KindDirect, &recipient)
	messages.Append(ctx, 1, conversation.ID, "¿Cómo estás?", entity.KindDirect, &recipient)

	other, _ := repo.GetOrCreateDirect(ctx, 1, 3)
	third := entity.UserID(3)
	messages.Append(ctx, 1, other.ID, "untouched", entity.KindDirect, &third)

	if err := repo.Delete(ctx, conversation.ID); err != nil {
		t.Fatalf("Expected no error, GOT[%v]", err)
	}

	if n := countRows(t, repo, &entity.Message{}, "conversation_id = ?", conversation.ID); n != 0 {
		t.Errorf("Expected no messages left, GOT[%d]", n)
	}
	if n := countRows(t, repo, &entity.Membership{}, "conversation_id = ?", conversation.ID); n != 0 {
		t.Errorf("Expected no memberships left, GOT[%d]", n)
	}
	if _, err := repo.Get(ctx, conversation.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after deletion, GOT[%v]", err)
	}

	if n := countRows(t, repo, &entity.Message{}, "conversation_id = ?", other.ID); n != 1 {
		t.Errorf("Other conversations must be untouched, GOT[%d] messages", n)
	}
}

func TestListForUserOrdersByActivity(t *testing.T) {
	repo := newConversationRepo(t)
	ctx := context.Background()

	older, _ := repo.GetOrCreateDirect(ctx, 1, 2)
	group, _ := repo.CreateGroup(ctx, "Coordinación", 3, []entity.UserID{1})
	repo.GetOrCreateDirect(ctx, 2, 3)

	conversations, err := repo.ListForUser(ctx, 1)
	if err != nil {
		t.Fatalf("Expected no error, GOT[%v]", err)
	}
	if len(conversations) != 2 {
		t.Fatalf("Expected 2 conversations, GOT[%d]", len(conversations))
	}
	if conversations[0].ID != group.ID || conversations[1].ID != older.ID {
		t.Errorf("Wrong order. GOT[%s, %s]", conversations[0].ID, conversations[1].ID)
	}

	if err := repo.TouchActivity(ctx, older.ID, repo.clock.Next()); err != nil {
		t.Fatalf("Expected no error, GOT[%v]", err)
	}
	conversations, _ = repo.ListForUser(ctx, 1)
	if conversations[0].ID != older.ID {
		t.Errorf("The touched conversation should come first, GOT[%s]", conversations[0].ID)
	}

	none, err := repo.ListForUser(ctx, 99)
	if err != nil || len(none) != 0 {
		t.Errorf("Expected no conversations for a stranger, GOT[%v, %v]", none, err)
	}
}
