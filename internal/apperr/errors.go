/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package apperr

import (
	"net/http"

	"github.com/pkg/errors"
)

// Error taxonomy shared by repositories, services and handlers.
// Callers match with errors.Is, the wrapped message carries the detail.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrStorage      = errors.New("storage failure")
)

// storageError keeps the engine error reachable through Unwrap while matching ErrStorage.
type storageError struct {
	op  string
	err error
}

func (e *storageError) Error() string {
	return e.op + ": " + ErrStorage.Error() + ": " + e.err.Error()
}

func (e *storageError) Is(target error) bool { return target == ErrStorage }

func (e *storageError) Unwrap() error { return e.err }

// Validation returns an ErrValidation carrying the formatted reason.
func Validation(format string, v ...any) error {
	return errors.Wrapf(ErrValidation, format, v...)
}

// NotFound returns an ErrNotFound for the named resource.
func NotFound(resource string, id any) error {
	return errors.Wrapf(ErrNotFound, "%s %v", resource, id)
}

// Forbidden returns an ErrForbidden carrying the formatted reason.
func Forbidden(format string, v ...any) error {
	return errors.Wrapf(ErrForbidden, format, v...)
}

// Storage classifies err as a storage failure of operation op.
// Errors already in the taxonomy are returned untouched, nil stays nil.
func Storage(err error, op string) error {
	if err == nil || IsClassified(err) {
		return err
	}
	return errors.WithStack(&storageError{op: op, err: err})
}

// IsClassified reports whether err already belongs to the taxonomy.
func IsClassified(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrStorage)
}

// HTTPStatus maps an error of the taxonomy to the status code handlers answer with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
