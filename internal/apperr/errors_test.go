/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
)

func TestStorageWrapsAndUnwraps(t *testing.T) {
	cause := fmt.Errorf("disk I/O error")
	err := Storage(cause, "append message")

	if !errors.Is(err, ErrStorage) {
		t.Errorf("Expected the error to match ErrStorage, GOT[%v]", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected the cause to be reachable, GOT[%v]", err)
	}
	expected := "append message: storage failure: disk I/O error"
	if err.Error() != expected {
		t.Errorf("Wrong message. GOT[%s], EXPECTED[%s]", err.Error(), expected)
	}
}

func TestStorageKeepsClassifiedErrors(t *testing.T) {
	notFound := NotFound("conversation", "1_2")
	if Storage(notFound, "get") != notFound {
		t.Errorf("A classified error should be returned untouched")
	}
	if Storage(nil, "get") != nil {
		t.Errorf("nil should stay nil")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err      error
		expected int
	}{
		{nil, http.StatusOK},
		{Validation("content is empty"), http.StatusBadRequest},
		{NotFound("message", 3), http.StatusNotFound},
		{Forbidden("not a member"), http.StatusForbidden},
		{errors.Wrap(ErrUnauthorized, "no session"), http.StatusUnauthorized},
		{Storage(fmt.Errorf("boom"), "op"), http.StatusInternalServerError},
		{fmt.Errorf("unknown"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatus(c.err); got != c.expected {
			t.Errorf("Wrong status for %v. GOT[%d], EXPECTED[%d]", c.err, got, c.expected)
		}
	}
}
