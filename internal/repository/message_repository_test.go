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
	"testing"

	"schoolchat/internal/apperr"
	"schoolchat/internal/entity"

	"github.com/pkg/errors"
)

func entityUser(id int64) entity.UserID { return entity.UserID(id) }

func newMessageRepo(t *testing.T) *SQLiteMessageRepository {
	return NewSQLiteMessageRepository(newTestDB(t), NewMonotonicClockFrom(steppingClock())).(*SQLiteMessageRepository)
}

func TestAppendAssignsIdAndTimestamp(t *testing.T) {
	repo := newMessageRepo(t)
	ctx := context.Background()
	recipient := entity.UserID(2)

	first, err := repo.Append(ctx, 1, "1_2", "Hola", entity.KindDirect, &recipient)
	if err != nil {
		t.Fatalf("Expected no error, GOT[%v]", err)
	}
	second, _ := repo.Append(ctx, 2, "1_2", "Hola, ¿qué tal?", entity.KindDirect, ptr(1))

	if first.ID == 0 || second.ID <= first.ID {
		t.Errorf("Ids should be assigned and increasing. GOT[%d, %d]", first.ID, second.ID)
	}
	if first.SentAt.IsZero() || second.SentAt.Before(first.SentAt) {
		t.Errorf("Timestamps should be set and non-decreasing. GOT[%v, %v]", first.SentAt, second.SentAt)
	}
	if first.Read {
		t.Errorf("A new message must be unread")
	}
}

func TestAppendRejectsUnknownKind(t *testing.T) {
	repo := newMessageRepo(t)
	ctx := context.Background()

	if _, err := repo.Append(ctx, 1, "1_2", "Hola", entity.Kind("broadcast"), ptr(2)); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("GOT[%v], EXPECTED[validation error]", err)
	}
	if messages, _ := repo.List(ctx, "1_2", 10); len(messages) != 0 {
		t.Errorf("A message of unknown kind was stored. GOT[%d messages]", len(messages))
	}
}

func ptr(id int64) *entity.UserID {
	u := entity.UserID(id)
	return &u
}

func TestListIsOldestFirstAndBounded(t *testing.T) {
	repo := newMessageRepo(t)
	ctx := context.Background()

	contents := []string{"uno", "dos", "tres", "cuatro"}
	for _, c := range contents {
		repo.Append(ctx, 1, "1_2", c, entity.KindDirect, ptr(2))
	}
	repo.Append(ctx, 1, "1_3", "otra", entity.KindDirect, ptr(3))

	all, err := repo.List(ctx, "1_2", 50)
	if err != nil {
		t.Fatalf("Expected no error, GOT[%v]", err)
	}
	if len(all) != len(contents) {
		t.Fatalf("Expected %d messages, GOT[%d]", len(contents), len(all))
	}
	for i, c := range contents {
		if all[i].Content != c {
			t.Errorf("Wrong order at %d. GOT[%s], EXPECTED[%s]", i, all[i].Content, c)
		}
	}

	page, _ := repo.List(ctx, "1_2", 2)
	if len(page) != 2 || page[0].Content != "uno" || page[1].Content != "dos" {
		t.Errorf("Limit should keep the oldest messages, GOT[%v]", page)
	}

	defaulted, _ := repo.List(ctx, "1_2", 0)
	if len(defaulted) != len(contents) {
		t.Errorf("A non positive limit falls back to the default, GOT[%d]", len(defaulted))
	}
}

func TestMarkReadOnlyTouchesRecipient(t *testing.T) {
	repo := newMessageRepo(t)
	ctx := context.Background()

	repo.Append(ctx, 1, "1_2", "para 2", entity.KindDirect, ptr(2))
	repo.Append(ctx, 1, "1_2", "para 2 otra vez", entity.KindDirect, ptr(2))
	repo.Append(ctx, 2, "1_2", "para 1", entity.KindDirect, ptr(1))

	changed, err := repo.MarkRead(ctx, "1_2", 2)
	if err != nil {
		t.Fatalf("Expected no error, GOT[%v]", err)
	}
	if changed != 2 {
		t.Errorf("Expected 2 messages marked, GOT[%d]", changed)
	}

	if n, _ := repo.UnreadCount(ctx, 2); n != 0 {
		t.Errorf("User 2 should have no unread messages, GOT[%d]", n)
	}
	if n, _ := repo.UnreadCount(ctx, 1); n != 1 {
		t.Errorf("User 1 should still have 1 unread message, GOT[%d]", n)
	}

	changed, _ = repo.MarkRead(ctx, "1_2", 2)
	if changed != 0 {
		t.Errorf("Marking twice should change nothing, GOT[%d]", changed)
	}
	if n, _ := repo.UnreadCount(ctx, 2); n != 0 {
		t.Errorf("Marking twice should keep the count at 0, GOT[%d]", n)
	}
}

func TestGroupMessagesAreNeverUnread(t *testing.T) {
	repo := newMessageRepo(t)
	ctx := context.Background()

	message, err := repo.Append(ctx, 6, "group-a", "Reunión 3pm", entity.KindGroup, nil)
	if err != nil {
		t.Fatalf("Expected no error, GOT[%v]", err)
	}
	if message.RecipientID != nil {
		t.Errorf("Group messages have no recipient, GOT[%d]", *message.RecipientID)
	}

	for _, user := range []int64{5, 6, 7} {
		if n, _ := repo.UnreadCount(ctx, entityUser(user)); n != 0 {
			t.Errorf("Group messages are never counted, GOT[%d] for user %d", n, user)
		}
		if changed, _ := repo.MarkRead(ctx, "group-a", entityUser(user)); changed != 0 {
			t.Errorf("Group messages are never marked, GOT[%d] for user %d", changed, user)
		}
	}

	stored, _ := repo.List(ctx, "group-a", 10)
	if len(stored) != 1 || stored[0].Read {
		t.Errorf("The group message should be stored and left unread, GOT[%v]", stored)
	}
}

func TestUnreadCountByConversation(t *testing.T) {
	repo := newMessageRepo(t)
	ctx := context.Background()

	repo.Append(ctx, 1, "1_2", "a", entity.KindDirect, ptr(2))
	repo.Append(ctx, 1, "1_2", "b", entity.KindDirect, ptr(2))
	repo.Append(ctx, 3, "2_3", "c", entity.KindDirect, ptr(2))
	repo.Append(ctx, 3, "group-a", "d", entity.KindGroup, nil)

	counts, err := repo.UnreadCountByConversation(ctx, 2)
	if err != nil {
		t.Fatalf("Expected no error, GOT[%v]", err)
	}
	if counts["1_2"] != 2 || counts["2_3"] != 1 || len(counts) != 2 {
		t.Errorf("Wrong counts. GOT[%v]", counts)
	}
}

func TestDeleteMessage(t *testing.T) {
	repo := newMessageRepo(t)
	ctx := context.Background()

	message, _ := repo.Append(ctx, 1, "1_2", "borrar", entity.KindDirect, ptr(2))
	found, err := repo.Get(ctx, message.ID)
	if err != nil || found.Content != "borrar" {
		t.Fatalf("Get before delete. GOT[%v, %v]", found, err)
	}
	if err := repo.Delete(ctx, message.ID); err != nil {
		t.Fatalf("Expected no error, GOT[%v]", err)
	}
	if left, _ := repo.List(ctx, "1_2", 10); len(left) != 0 {
		t.Errorf("The message should be gone, GOT[%v]", left)
	}

	if err := repo.Delete(ctx, 12345); err != nil {
		t.Errorf("Deleting a missing message is a no-op, GOT[%v]", err)
	}
	if _, err := repo.Get(ctx, message.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after delete. GOT[%v], EXPECTED[not found]", err)
	}
}
