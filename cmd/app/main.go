/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"schoolchat/internal"
	"schoolchat/internal/data"
	"schoolchat/internal/input"
	"schoolchat/internal/nlog"
	"schoolchat/internal/service"

	"github.com/spf13/pflag"
)

func main() {
	folder := pflag.StringP("folder", "f", ".", "folder holding the .cfg file and the database")
	pflag.Parse()

	if err := run(*folder); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

func run(folder string) error {
	config, err := internal.LoadConfig(folder)
	if err != nil {
		return err
	}

	appLogger, err := nlog.NewAppLogger(config.EnableLogging, config.DevelopmentLogging)
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	storageLogger := appLogger.RegisterSubsystem("storage")
	db, err := data.OpenSQLite(config.DBPath(), storageLogger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage := data.NewStorageManager(db)
	defer storage.Close()
	if err := storage.Initialize(ctx); err != nil {
		return err
	}
	storageLogger.Logf("Database %s ready", config.DBPath())

	messagingService := service.NewLocalMessagingService(storage, service.PageOptions{
		DefaultPageSize: config.DefaultPageSize,
		MaxPageSize:     config.MaxPageSize,
	}, appLogger.RegisterSubsystem("messaging"))
	authService := service.NewLocalAuthService(storage, config.BcryptCost, appLogger.RegisterSubsystem("auth"))

	inputManager := input.NewInputManager()
	inputManager.SetLogger(appLogger.RegisterSubsystem("http"))
	inputManager.SetAuthService(authService)
	inputManager.SetMessagingService(messagingService)

	return inputManager.Run(ctx, &input.IptConfig{
		ServerPort:      config.HTTPServerPort,
		ReadTimeout:     config.ReadTimeoutDuration(),
		WriteTimeout:    config.WriteTimeoutDuration(),
		ShutdownTimeout: config.ShutdownTimeoutDuration(),
		SecretKey:       config.SecretKey,
		SecureCookies:   config.SecureCookies,

		MessagesPerMinute: config.MessagesPerMinute,
		MessageBurst:      config.MessageBurst,
	})
}
