package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cloudchat-app/cloudchat/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for a username and password and authenticates against the
// session manager. On success it stores the session and starts the account
// liveness monitor; when the monitor reports the account revoked, the user
// is signed out in place.
//
// The password byte slice is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		printlnFn("Already logged in; 'logout' first.")
		return nil
	}

	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	sess, token, err := a.sessions.Authenticate(ctx, username, string(password))
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidCredentials):
			printlnFn("Invalid username or password.")
		case errors.Is(err, common.ErrAccountSuspended):
			printlnFn("This account is suspended.")
		default:
			a.logger.Error(ctx, "login failed", "error", err)
			printlnFn("Login failed, try again later.")
		}
		return err
	}

	monitorCtx, cancel := context.WithCancel(ctx)

	a.mu.Lock()
	a.session = sess
	a.token = token
	a.monitorCancel = cancel
	a.mu.Unlock()

	go a.monitor.Run(monitorCtx, sess.AccountID, a.forceLogout)

	printlnFn("Logged in as " + sess.Username)
	return nil
}

// Logout drops the session, stops the liveness monitor and closes any open
// chat and live request views.
func (a *App) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil
	}
	a.clearStateLocked()
	printlnFn("Logged out.")
	return nil
}

// Whoami prints the current session: identity, role, expiry and the signed
// bearer token, so it can be pasted into other tooling.
func (a *App) Whoami(ctx context.Context) error {
	a.mu.Lock()
	sess, token := a.session, a.token
	a.mu.Unlock()
	if sess == nil {
		printlnFn("Not logged in.")
		return common.ErrUnauthorized
	}

	printlnFn(fmt.Sprintf("%s (%s), session expires %s", sess.Username, sess.Role, sess.ExpiresAt.Format(time.RFC3339)))
	printlnFn("token: " + token)
	return nil
}

// forceLogout is invoked by the liveness monitor when the backing account is
// deleted or paused while the session is live.
func (a *App) forceLogout() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return
	}
	a.clearStateLocked()
	printlnFn("Your account is no longer active. You have been signed out.")
}
