/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"schoolchat/internal/apperr"
	"schoolchat/internal/entity"
	"schoolchat/internal/middleware"
	"schoolchat/internal/nlog"
	"schoolchat/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/leebenson/conform"
	"github.com/pkg/errors"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 64 << 10

// Request bodies are checked against their `validate` tags, once trimmed following their `conform` tags
var validate = validator.New(validator.WithRequiredStructEnabled())

// conformer is implemented by requests carrying non-string slices, which conform cannot walk.
// conformTarget returns the part of the request holding the strings.
type conformer interface {
	conformTarget() any
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// writeError answers with the status matching err, storage details are only logged
func writeError(w http.ResponseWriter, logger nlog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Logf("Internal error {%v}", err)
		message = "Internal Server Error"
	}
	writeJSON(w, status, map[string]any{
		"status": "error",
		"error":  message,
	})
}

// decodeJSON reads the request body into v, a pointer to a request struct, then normalizes and validates it
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return apperr.Validation("malformed request body: %v", err)
	}

	target := v
	if c, ok := v.(conformer); ok {
		target = c.conformTarget()
	}
	if err := conform.Strings(target); err != nil {
		return apperr.Validation("malformed request body: %v", err)
	}
	if err := validate.Struct(v); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			first := fieldErrors[0]
			return apperr.Validation("field %s does not satisfy %s", first.Field(), first.Tag())
		}
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}

// currentUser retrieves the user authenticated by the middleware
func currentUser(r *http.Request) (entity.User, error) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		return entity.User{}, errors.Wrap(apperr.ErrUnauthorized, "no session")
	}
	return user, nil
}

func parseMessageID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("message id %q is not valid", raw)
	}
	return id, nil
}

// parseLimit reads the optional limit query parameter, 0 meaning the default page size
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("limit %q is not a number", raw)
	}
	return limit, nil
}

// requireMember fails with ErrForbidden unless user belongs to the conversation.
// A missing conversation is reported as such, not as forbidden.
func requireMember(ctx context.Context, ms service.MessagingService, conversationID string, user entity.UserID) error {
	if _, err := ms.GetConversationDetails(ctx, conversationID); err != nil {
		return err
	}
	member, err := ms.IsMember(ctx, conversationID, user)
	if err != nil {
		return err
	}
	if !member {
		return apperr.Forbidden("user %d is not a member of %s", user, conversationID)
	}
	return nil
}
