/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package data

import (
	"context"
	"time"

	"schoolchat/internal/apperr"
	"schoolchat/internal/nlog"
	"schoolchat/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormWriter lets gorm's logger print through an nlog.Logger
type gormWriter struct {
	logger nlog.Logger
}

func (w gormWriter) Printf(format string, v ...any) {
	w.logger.Logf(format, v...)
}

// OpenSQLite opens (creating it if needed) the database file at path.
// The pool holds a single connection: the app is the only writer and every transaction runs serialized.
func OpenSQLite(path string, log nlog.Logger) (*gorm.DB, error) {
	dsn := path + "?_busy_timeout=5000&_journal_mode=WAL"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger: logger.New(gormWriter{log}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, apperr.Storage(err, "open database "+path)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, apperr.Storage(err, "open database "+path)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Storage manager gathers all the repositories needed for the messaging core in a single container.
type StorageManager struct {
	db *gorm.DB // Under the hood we use the SQLite implementation

	clock *repository.MonotonicClock // Shared by every repository of this manager, transactional ones included

	// Repositories
	conversationRepo repository.ConversationRepository
	membershipRepo   repository.MembershipRepository
	messageRepo      repository.MessageRepository
	userRepo         repository.UserRepository
}

func NewStorageManager(db *gorm.DB) *StorageManager {
	return newStorageManager(db, repository.NewMonotonicClock())
}

func newStorageManager(db *gorm.DB, clock *repository.MonotonicClock) *StorageManager {
	return &StorageManager{
		db:               db,
		clock:            clock,
		conversationRepo: repository.NewSQLiteConversationRepository(db, clock),
		membershipRepo:   repository.NewSQLiteMembershipRepository(db),
		messageRepo:      repository.NewSQLiteMessageRepository(db, clock),
		userRepo:         repository.NewSQLiteUserRepository(db),
	}
}

// Initialize creates every table the manager's repositories need.
func (s *StorageManager) Initialize(ctx context.Context) error {
	if err := repository.InitializeSchema(ctx, s.db); err != nil {
		return err
	}
	return repository.InitializeUserSchema(ctx, s.db)
}

// Transaction runs fn with a manager whose repositories all work on the same transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
func (s *StorageManager) Transaction(ctx context.Context, fn func(tx *StorageManager) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newStorageManager(tx, s.clock))
	})
	return apperr.Storage(err, "transaction")
}

// Close releases the underlying connection pool.
func (s *StorageManager) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *StorageManager) GetConversationRepository() repository.ConversationRepository {
	return s.conversationRepo
}

func (s *StorageManager) GetMembershipRepository() repository.MembershipRepository {
	return s.membershipRepo
}

func (s *StorageManager) GetMessageRepository() repository.MessageRepository {
	return s.messageRepo
}

func (s *StorageManager) GetUserRepository() repository.UserRepository {
	return s.userRepo
}
