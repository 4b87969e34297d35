/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package service

import (
	"context"
	"strings"
	"time"

	"schoolchat/internal/apperr"
	"schoolchat/internal/data"
	"schoolchat/internal/entity"
	"schoolchat/internal/nlog"

	goval "github.com/go-passwd/validator"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// BCrypt refuses passwords longer than 72 bytes
var passwordValidator = goval.New(
	goval.MinLength(8, errors.New("password must be at least 8 characters")),
	goval.MaxLength(72, errors.New("password must be at most 72 characters")),
)

// Service used to register and authenticate users, and to resolve them by id
type AuthService interface {
	Register(ctx context.Context, login, name string, role entity.Role, password string) (*entity.User, error) // Creates a user with a hashed password
	Login(ctx context.Context, login, password string) (*entity.User, error)                                   // Checks the credentials, returning the user
	GetUser(ctx context.Context, id entity.UserID) (*entity.User, error)                                       // Retrieves a user of the directory
	GetUsers(ctx context.Context, ids []entity.UserID) ([]*entity.User, error)                                 // Retrieves many users, skipping missing ones
}

// Local service is the implementation of the service on top of the local storage.
type localAuthService struct {
	storage *data.StorageManager // Container of the repositories
	cost    int                  // BCrypt cost
	logger  nlog.Logger          // Logs a format string
}

// NewLocalAuthService builds the service, cost <= 0 means bcrypt.DefaultCost.
func NewLocalAuthService(storage *data.StorageManager, cost int, logger nlog.Logger) AuthService {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &localAuthService{
		storage: storage,
		cost:    cost,
		logger:  logger,
	}
}

func (a *localAuthService) Logf(format string, v ...any) {
	a.logger.Logf(format, v...)
}

func (a *localAuthService) Register(ctx context.Context, login, name string, role entity.Role, password string) (*entity.User, error) {
	login = strings.TrimSpace(login)
	name = strings.TrimSpace(name)
	if login == "" || name == "" {
		return nil, apperr.Validation("login and name are required")
	}
	if !role.Valid() {
		return nil, apperr.Validation("role %q is not valid", role)
	}
	if err := passwordValidator.Validate(password); err != nil {
		return nil, apperr.Validation("%v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hashing the password")
	}

	user := &entity.User{
		Login:     login,
		Name:      name,
		Role:      role,
		CreatedAt: time.Now().UTC(),
		Secret:    entity.UserSecret{Hash: string(hash)},
	}
	if err := a.storage.GetUserRepository().Create(ctx, user); err != nil {
		a.Logf("Could not register %s {%v}", login, err)
		return nil, err
	}

	a.Logf("User %d (%s) registered", user.ID, login)
	return user, nil
}

func (a *localAuthService) Login(ctx context.Context, login, password string) (*entity.User, error) {
	user, err := a.storage.GetUserRepository().GetForLogin(ctx, strings.TrimSpace(login))
	if errors.Is(err, apperr.ErrNotFound) {
		a.Logf("Login attempt for unknown user %s", login)
		return nil, errors.Wrap(apperr.ErrUnauthorized, "wrong credentials")
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Secret.Hash), []byte(password)); err != nil {
		a.Logf("Wrong password for user %d", user.ID)
		return nil, errors.Wrap(apperr.ErrUnauthorized, "wrong credentials")
	}

	a.Logf("User %d logged in", user.ID)
	return user, nil
}

func (a *localAuthService) GetUser(ctx context.Context, id entity.UserID) (*entity.User, error) {
	if err := validateUsers(id); err != nil {
		return nil, err
	}
	return a.storage.GetUserRepository().GetByID(ctx, id)
}

func (a *localAuthService) GetUsers(ctx context.Context, ids []entity.UserID) ([]*entity.User, error) {
	return a.storage.GetUserRepository().GetByIDs(ctx, ids)
}
