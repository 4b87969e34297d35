/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package input

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"schoolchat/internal/handler"
	"schoolchat/internal/middleware"
	"schoolchat/internal/nlog"
	"schoolchat/internal/service"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
)

type IptConfig struct {
	ServerPort      uint16
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	SecretKey       string
	SecureCookies   bool
	SessionMaxAge   time.Duration

	MessagesPerMinute int // Per user, on the routes sending messages. 0 disables the limit
	MessageBurst      int
}

type InputManager struct { // Manages the HTTP input of the messaging core
	running atomic.Bool
	paused  atomic.Bool

	logger nlog.Logger
	server *http.Server

	stopFromOutsideChan chan struct{}
	doneFromInsideChan  chan struct{}
	stopOnce            sync.Once

	authService      service.AuthService
	messagingService service.MessagingService
}

func NewInputManager() *InputManager {
	return &InputManager{
		running:             atomic.Bool{},
		paused:              atomic.Bool{},
		stopFromOutsideChan: make(chan struct{}),
		doneFromInsideChan:  make(chan struct{}),
	}
}

func (i *InputManager) IsReady() bool {
	return i.logger != nil && i.authService != nil && i.messagingService != nil
}

func (i *InputManager) IsRunning() bool {
	return i.running.Load()
}

func (i *InputManager) SetLogger(l nlog.Logger) {
	i.logger = l
}

func (i *InputManager) SetAuthService(as service.AuthService) {
	i.authService = as
}

func (i *InputManager) SetMessagingService(ms service.MessagingService) {
	i.messagingService = ms
}

func (i *InputManager) Logf(format string, a ...any) {
	i.logger.Logf(format, a...)
}

func (i *InputManager) SetPause(paused bool) {
	i.paused.Store(paused)
}

func (i *InputManager) IsPaused() bool {
	return i.paused.Load()
}

// PauseMiddleware answers 503 to every request while the manager is paused
func (i *InputManager) PauseMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if i.IsPaused() {
			w.Header().Set("Retry-After", "5")
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewCookieStore builds the session store the handlers and the auth middleware share
func NewCookieStore(cfg *IptConfig) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.SecretKey))
	maxAge := cfg.SessionMaxAge
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	}
	return store
}

// Router builds the full route table on top of the manager's services
func (i *InputManager) Router(store sessions.Store, limiter *middleware.RateLimiter) *mux.Router {
	authHandler := handler.NewAuthHandler(i.authService, store, i.logger)
	messageHandler := handler.NewMessageHandler(i.messagingService, i.authService, i.logger)
	conversationHandler := handler.NewConversationHandler(i.messagingService, i.authService, i.logger)

	auth := func(f http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(store, f)
	}
	// Throttled routes run the limiter after authentication, so the bucket is per user
	limited := func(f http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(store, limiter.Middleware(f))
	}

	r := mux.NewRouter()
	r.Use(i.PauseMiddleware)

	// Authentication routes
	r.HandleFunc("/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/logout", authHandler.Logout).Methods("POST")

	// Current user
	r.Handle("/me/unread", auth(messageHandler.GetUnreadCount)).Methods("GET")

	// Messages
	r.Handle("/messages/direct", limited(messageHandler.SendDirectMessage)).Methods("POST")
	r.Handle("/messages/{id:[0-9]+}", auth(messageHandler.DeleteMessage)).Methods("DELETE")

	// Groups
	r.Handle("/groups", auth(conversationHandler.CreateGroup)).Methods("POST")
	r.Handle("/groups/{id}/members", auth(conversationHandler.AddMember)).Methods("POST")

	// Conversations
	r.Handle("/conversations", auth(conversationHandler.ListConversations)).Methods("GET")
	r.Handle("/conversations/{id}", auth(conversationHandler.GetConversation)).Methods("GET")
	r.Handle("/conversations/{id}", auth(conversationHandler.DeleteConversation)).Methods("DELETE")
	r.Handle("/conversations/{id}/members", auth(conversationHandler.GetMembers)).Methods("GET")
	r.Handle("/conversations/{id}/messages", auth(messageHandler.GetMessages)).Methods("GET")
	r.Handle("/conversations/{id}/messages", limited(messageHandler.SendGroupMessage)).Methods("POST")
	r.Handle("/conversations/{id}/read", auth(messageHandler.MarkAsRead)).Methods("POST")

	return r
}

func (i *InputManager) Run(ctx context.Context, cfg *IptConfig) error {
	i.Logf("Input service started...")

	if !i.IsReady() {
		return fmt.Errorf("The Input manager is not ready... Missing components")
	}

	limiter := middleware.NewRateLimiter(cfg.MessagesPerMinute, cfg.MessageBurst)
	go limiter.Cleanup(ctx, time.Minute, 10*time.Minute)

	i.server = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:        i.Router(NewCookieStore(cfg), limiter),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	go func() {
		select {
		case <-ctx.Done():
			i.Logf("Received stop signal. Shutting down...")
		case <-i.stopFromOutsideChan:
			i.Logf("Server was asked to stop. Shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := i.server.Shutdown(shutdownCtx); err != nil {
			i.Logf("Error during shutdown... %v", err)
		}
		close(i.doneFromInsideChan)
	}()

	i.Logf("Http server starting on port {%d}", cfg.ServerPort)
	i.running.Store(true)
	defer i.running.Store(false)

	if err := i.server.ListenAndServe(); err != http.ErrServerClosed {
		i.Logf("FATAL: HTTP Server error{%v}", err)
		return err
	}

	<-i.doneFromInsideChan
	return nil
}

// Stop asks a running server to shut down and waits until it did.
// It returns right away when the server is not running.
func (i *InputManager) Stop() {
	if !i.IsRunning() {
		return
	}
	i.stopOnce.Do(func() { close(i.stopFromOutsideChan) })
	<-i.doneFromInsideChan
	i.running.Store(false)
}
