/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package middleware

import (
	"context"
	"net/http"

	"schoolchat/internal/entity"

	"github.com/gorilla/sessions"
)

// SessionName is the cookie the authenticated user is kept in
const SessionName = "auth-session"

// Keys of the session values
const (
	SessionKeyUserID = "user_id"
	SessionKeyName   = "name"
	SessionKeyRole   = "role"
)

type contextKey struct{}

var userKey = contextKey{}

// WithUser returns a copy of ctx carrying user as the authenticated one
func WithUser(ctx context.Context, user entity.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// CurrentUser retrieves the authenticated user put in ctx by AuthMiddleware
func CurrentUser(ctx context.Context) (entity.User, bool) {
	user, ok := ctx.Value(userKey).(entity.User)
	return user, ok
}

// AuthMiddleware lets the request through only if its session holds a user, which is then stored in the request context.
// Requests without one are answered with 401, since every client of this API speaks JSON.
func AuthMiddleware(store sessions.Store, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := store.Get(r, SessionName)
		if err != nil {
			// A cookie signed with an old key can't be decoded: treat it like a missing one
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		id, ok1 := session.Values[SessionKeyUserID].(int64)
		name, ok2 := session.Values[SessionKeyName].(string)
		role, ok3 := session.Values[SessionKeyRole].(string)
		if !(ok1 && ok2 && ok3) || id <= 0 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		user := entity.User{
			ID:   entity.UserID(id),
			Name: name,
			Role: entity.Role(role),
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}
