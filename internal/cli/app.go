// Package cli implements the interactive CloudChat console: a small REPL
// over the account, social, messaging and session services.
package cli

import (
	"bufio"
	"context"
	"os"
	"sync"

	"github.com/cloudchat-app/cloudchat/internal/accounts"
	"github.com/cloudchat-app/cloudchat/internal/avatars"
	"github.com/cloudchat-app/cloudchat/internal/config"
	"github.com/cloudchat-app/cloudchat/internal/logging"
	"github.com/cloudchat-app/cloudchat/internal/messaging"
	"github.com/cloudchat-app/cloudchat/internal/session"
	"github.com/cloudchat-app/cloudchat/internal/social"
)

// Services bundles everything the console operates on.
type Services struct {
	Accounts *accounts.Service
	Social   *social.Service
	Channel  *messaging.Channel
	Sessions *session.Manager
	Monitor  *session.Monitor
	Avatars  *avatars.Service
}

type App struct {
	config   *config.Config
	logger   logging.Logger
	accounts *accounts.Service
	social   *social.Service
	channel  *messaging.Channel
	sessions *session.Manager
	monitor  *session.Monitor
	avatars  *avatars.Service

	reader *bufio.Reader

	// mu guards the mutable login state below. The liveness monitor and
	// store subscriptions run on their own goroutines.
	mu            sync.Mutex
	session       *session.Session
	token         string
	monitorCancel context.CancelFunc
	chatPeer      *accounts.Account
	chatClose     messaging.Unsubscribe
	requestsClose []social.Unsubscribe
}

func NewApp(c *config.Config, s Services, logger logging.Logger) *App {
	return &App{
		config:   c,
		logger:   logger,
		accounts: s.Accounts,
		social:   s.Social,
		channel:  s.Channel,
		sessions: s.Sessions,
		monitor:  s.Monitor,
		avatars:  s.Avatars,
		reader:   bufio.NewReader(os.Stdin),
	}
}

// Run starts the console: an initial login prompt followed by the REPL.
// It returns when the user exits or stdin is closed.
func (a *App) Run(ctx context.Context) {
	printlnFn("Welcome to CloudChat (type 'help' for commands)")

	a.Login(ctx)

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)

	a.teardown()
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session != nil
}

func (a *App) isAdmin() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session != nil && a.session.Role == accounts.RoleAdmin
}

// currentSession returns the live session, or nil when logged out.
func (a *App) currentSession() *session.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return ""
	}
	s := a.session.Username
	if a.chatPeer != nil {
		s += " | chat:" + a.chatPeer.Username
	}
	return "(" + s + ")"
}

// teardown releases subscriptions and the monitor without printing; used on
// REPL exit.
func (a *App) teardown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clearStateLocked()
}

// clearStateLocked cancels the monitor, closes the open chat and any live
// request views, and drops the session. Callers hold a.mu.
func (a *App) clearStateLocked() {
	if a.monitorCancel != nil {
		a.monitorCancel()
		a.monitorCancel = nil
	}
	if a.chatClose != nil {
		a.chatClose()
		a.chatClose = nil
	}
	a.chatPeer = nil
	for _, stop := range a.requestsClose {
		stop()
	}
	a.requestsClose = nil
	a.session = nil
	a.token = ""
}
