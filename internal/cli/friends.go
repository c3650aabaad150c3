package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cloudchat-app/cloudchat/internal/accounts"
	"github.com/cloudchat-app/cloudchat/internal/common"
	"github.com/cloudchat-app/cloudchat/internal/social"
)

// Friends lists the accepted friends of the current user. Paused friends are
// still listed, marked with their status.
func (a *App) Friends(ctx context.Context) error {
	sess := a.currentSession()
	if sess == nil {
		printlnFn("Not logged in.")
		return common.ErrUnauthorized
	}

	friends, err := a.social.Friends(ctx, sess.AccountID)
	if err != nil {
		a.logger.Error(ctx, "listing friends failed", "error", err)
		return err
	}

	if len(friends) == 0 {
		printlnFn("No friends yet. Use 'add' to send a request.")
		return nil
	}
	for _, f := range friends {
		line := f.Username
		if f.Status == accounts.StatusPaused {
			line += " (suspended)"
		}
		printlnFn(line)
	}
	return nil
}

// FriendAdd prompts for a username and sends a friend request.
func (a *App) FriendAdd(ctx context.Context) error {
	sess := a.currentSession()
	if sess == nil {
		printlnFn("Not logged in.")
		return common.ErrUnauthorized
	}

	username, err := getSimpleText(a.reader, "Enter username to add", os.Stdout)
	if err != nil {
		return err
	}

	req, err := a.social.SendRequest(ctx, sess.AccountID, username)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNotFound):
			printlnFn("No such user:", username)
		case errors.Is(err, common.ErrSelfReference):
			printlnFn("You cannot add yourself.")
		case errors.Is(err, common.ErrTargetUnavailable):
			printlnFn("That account is suspended.")
		case errors.Is(err, common.ErrAlreadyFriends):
			printlnFn("You are already friends with", username)
		case errors.Is(err, common.ErrRequestPending):
			printlnFn("A request between you and", username, "is already pending.")
		default:
			a.logger.Error(ctx, "sending friend request failed", "error", err)
			printlnFn("Could not send the request, try again later.")
		}
		return err
	}

	printlnFn(fmt.Sprintf("Request %s sent to %s", req.ID, username))
	return nil
}

// FriendAccept accepts a pending incoming request by its id.
func (a *App) FriendAccept(ctx context.Context) error {
	return a.respond(ctx, social.StatusAccepted)
}

// FriendReject rejects a pending incoming request by its id.
func (a *App) FriendReject(ctx context.Context) error {
	return a.respond(ctx, social.StatusRejected)
}

func (a *App) respond(ctx context.Context, decision social.RequestStatus) error {
	sess := a.currentSession()
	if sess == nil {
		printlnFn("Not logged in.")
		return common.ErrUnauthorized
	}

	id, err := getSimpleText(a.reader, "Enter request id", os.Stdout)
	if err != nil {
		return err
	}

	req, err := a.social.Respond(ctx, id, sess.AccountID, decision)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNotFound):
			printlnFn("No such request:", id)
		case errors.Is(err, common.ErrUnauthorized):
			printlnFn("Only the recipient can answer a request.")
		case errors.Is(err, common.ErrConflict):
			printlnFn("That request was already answered.")
		default:
			a.logger.Error(ctx, "answering friend request failed", "error", err)
			printlnFn("Could not answer the request, try again later.")
		}
		return err
	}

	printlnFn(fmt.Sprintf("Request %s is now %s", req.ID, req.Status))
	return nil
}

// Requests starts live views over the pending requests of the current user.
// The views print whenever the pending sets change and stay active until
// logout or the next 'requests' call.
func (a *App) Requests(ctx context.Context) error {
	sess := a.currentSession()
	if sess == nil {
		printlnFn("Not logged in.")
		return common.ErrUnauthorized
	}

	// restart: at most one pair of live views at a time
	a.mu.Lock()
	for _, stop := range a.requestsClose {
		stop()
	}
	a.requestsClose = nil
	a.mu.Unlock()

	stopIn, err := a.social.SubscribeIncoming(ctx, sess.AccountID, func(reqs []social.FriendRequest) {
		a.printRequests(ctx, "Incoming requests:", reqs, func(r social.FriendRequest) string { return r.FromID })
	})
	if err != nil {
		a.logger.Error(ctx, "watching incoming requests failed", "error", err)
		return err
	}

	stopOut, err := a.social.SubscribeOutgoing(ctx, sess.AccountID, func(reqs []social.FriendRequest) {
		a.printRequests(ctx, "Outgoing requests:", reqs, func(r social.FriendRequest) string { return r.ToID })
	})
	if err != nil {
		stopIn()
		a.logger.Error(ctx, "watching outgoing requests failed", "error", err)
		return err
	}

	a.mu.Lock()
	a.requestsClose = []social.Unsubscribe{stopIn, stopOut}
	a.mu.Unlock()

	printlnFn("Watching friend requests; views refresh on every change.")
	return nil
}

func (a *App) printRequests(ctx context.Context, header string, reqs []social.FriendRequest, peer func(social.FriendRequest) string) {
	if len(reqs) == 0 {
		return
	}
	printlnFn(header)
	for _, r := range reqs {
		printlnFn(fmt.Sprintf("  %s  %s", r.ID, a.username(ctx, peer(r))))
	}
}

// username resolves an account id for display, falling back to the raw id.
func (a *App) username(ctx context.Context, id string) string {
	acc, err := a.accounts.Get(ctx, id)
	if err != nil {
		return id
	}
	return acc.Username
}
