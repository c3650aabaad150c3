package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cloudchat-app/cloudchat/internal/accounts"
	"github.com/cloudchat-app/cloudchat/internal/common"
	"github.com/cloudchat-app/cloudchat/internal/session"
)

// requireAdmin returns the live session when it carries the ADMIN role.
func (a *App) requireAdmin() (*session.Session, error) {
	sess := a.currentSession()
	if sess == nil {
		printlnFn("Not logged in.")
		return nil, common.ErrUnauthorized
	}
	if sess.Role != accounts.RoleAdmin {
		printlnFn("Admin privileges required.")
		return nil, common.ErrUnauthorized
	}
	return sess, nil
}

// Users lists every account with its role and status.
func (a *App) Users(ctx context.Context) error {
	if _, err := a.requireAdmin(); err != nil {
		return err
	}

	users, err := a.accounts.List(ctx)
	if err != nil {
		a.logger.Error(ctx, "listing accounts failed", "error", err)
		return err
	}
	for _, u := range users {
		printlnFn(fmt.Sprintf("%s  %s  %s/%s", u.ID, u.Username, u.Role, u.Status))
	}
	return nil
}

// CreateUser creates a new account with the USER role.
func (a *App) CreateUser(ctx context.Context) error {
	if _, err := a.requireAdmin(); err != nil {
		return err
	}

	username, err := getSimpleText(a.reader, "Enter new username", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	acc, err := a.accounts.Create(ctx, username, string(password), accounts.RoleUser)
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			printlnFn("Username already taken:", username)
		} else {
			a.logger.Error(ctx, "creating account failed", "error", err)
			printlnFn("Could not create the account, try again later.")
		}
		return err
	}

	printlnFn(fmt.Sprintf("Account %s created as %s", acc.ID, acc.Username))
	return nil
}

// PauseUser suspends an account. A suspended account cannot log in and its
// live sessions are revoked by the liveness monitor.
func (a *App) PauseUser(ctx context.Context) error {
	return a.setStatus(ctx, accounts.StatusPaused, "suspended")
}

// ResumeUser reactivates a suspended account.
func (a *App) ResumeUser(ctx context.Context) error {
	return a.setStatus(ctx, accounts.StatusActive, "active")
}

func (a *App) setStatus(ctx context.Context, status accounts.Status, label string) error {
	if _, err := a.requireAdmin(); err != nil {
		return err
	}

	acc, err := a.promptAccount(ctx)
	if err != nil {
		return err
	}

	if _, err := a.accounts.SetStatus(ctx, acc.ID, status); err != nil {
		if errors.Is(err, common.ErrRootProtected) {
			printlnFn("The root account cannot be modified.")
		} else {
			a.logger.Error(ctx, "changing account status failed", "error", err)
		}
		return err
	}

	printlnFn(fmt.Sprintf("Account %s is now %s", acc.Username, label))
	return nil
}

// RenameUser changes an account's username.
func (a *App) RenameUser(ctx context.Context) error {
	if _, err := a.requireAdmin(); err != nil {
		return err
	}

	acc, err := a.promptAccount(ctx)
	if err != nil {
		return err
	}
	username, err := getSimpleText(a.reader, "Enter new username", os.Stdout)
	if err != nil {
		return err
	}

	if _, err := a.accounts.Rename(ctx, acc.ID, username); err != nil {
		switch {
		case errors.Is(err, common.ErrRootProtected):
			printlnFn("The root account cannot be modified.")
		case errors.Is(err, common.ErrConflict):
			printlnFn("Username already taken:", username)
		default:
			a.logger.Error(ctx, "renaming account failed", "error", err)
		}
		return err
	}

	printlnFn("Account renamed to " + username)
	return nil
}

// DeleteUser removes an account permanently.
func (a *App) DeleteUser(ctx context.Context) error {
	if _, err := a.requireAdmin(); err != nil {
		return err
	}

	acc, err := a.promptAccount(ctx)
	if err != nil {
		return err
	}

	if err := a.accounts.Delete(ctx, acc.ID); err != nil {
		if errors.Is(err, common.ErrRootProtected) {
			printlnFn("The root account cannot be deleted.")
		} else {
			a.logger.Error(ctx, "deleting account failed", "error", err)
		}
		return err
	}

	printlnFn("Account " + acc.Username + " deleted.")
	return nil
}

// promptAccount reads a username and resolves it to an account.
func (a *App) promptAccount(ctx context.Context) (*accounts.Account, error) {
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return nil, err
	}
	acc, err := a.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			printlnFn("No such user:", username)
		}
		return nil, err
	}
	return acc, nil
}
