package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cloudchat-app/cloudchat/internal/accounts"
	"github.com/cloudchat-app/cloudchat/internal/common"
	"github.com/cloudchat-app/cloudchat/internal/messaging"
)

// ChatOpen opens a live chat with a friend. At most one chat is open at a
// time; opening a new one closes the previous subscription first. The full
// transcript is printed on open and again after every change.
func (a *App) ChatOpen(ctx context.Context) error {
	sess := a.currentSession()
	if sess == nil {
		printlnFn("Not logged in.")
		return common.ErrUnauthorized
	}

	username, err := getSimpleText(a.reader, "Enter friend's username", os.Stdout)
	if err != nil {
		return err
	}

	peer, err := a.findFriend(ctx, sess.AccountID, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			printlnFn("You can only chat with accepted friends.")
		} else {
			a.logger.Error(ctx, "opening chat failed", "error", err)
		}
		return err
	}

	// the previous subscription is released before the new watch opens, so
	// a reopened conversation never has two live queries
	a.mu.Lock()
	if a.chatClose != nil {
		a.chatClose()
		a.chatClose = nil
		a.chatPeer = nil
	}
	a.mu.Unlock()

	stop, err := a.channel.Subscribe(ctx, sess.AccountID, peer.ID, func(msgs []messaging.Message) {
		a.printTranscript(peer, msgs)
	})
	if err != nil {
		a.logger.Error(ctx, "opening chat failed", "error", err)
		return err
	}

	a.mu.Lock()
	a.chatPeer = peer
	a.chatClose = stop
	a.mu.Unlock()

	printlnFn("Chat with " + peer.Username + " opened.")
	return nil
}

// ChatSend sends a message in the currently open chat.
func (a *App) ChatSend(ctx context.Context) error {
	sess := a.currentSession()
	if sess == nil {
		printlnFn("Not logged in.")
		return common.ErrUnauthorized
	}

	a.mu.Lock()
	peer := a.chatPeer
	a.mu.Unlock()
	if peer == nil {
		printlnFn("No chat open. Use 'open' first.")
		return common.ErrNotFound
	}

	body, err := getSimpleText(a.reader, "Message", os.Stdout)
	if err != nil {
		return err
	}
	if body == "" {
		return nil
	}

	if _, err := a.channel.Send(ctx, sess.AccountID, peer.ID, body, classify(body)); err != nil {
		a.logger.Error(ctx, "sending message failed", "error", err)
		printlnFn("Could not send the message, try again later.")
		return err
	}
	return nil
}

// ChatClose closes the open chat, if any.
func (a *App) ChatClose(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.chatClose == nil {
		return nil
	}
	a.chatClose()
	a.chatClose = nil
	a.chatPeer = nil
	printlnFn("Chat closed.")
	return nil
}

// findFriend resolves username among the accepted friends of accountID.
// A non-friend resolves to ErrNotFound even when the account exists.
func (a *App) findFriend(ctx context.Context, accountID, username string) (*accounts.Account, error) {
	friends, err := a.social.Friends(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for i := range friends {
		if friends[i].Username == username {
			return &friends[i], nil
		}
	}
	return nil, common.ErrNotFound
}

func (a *App) printTranscript(peer *accounts.Account, msgs []messaging.Message) {
	printlnFn("--- " + peer.Username + " ---")
	for _, m := range msgs {
		name := peer.Username
		if m.SenderID != peer.ID {
			name = "me"
		}
		ts := common.MillisToTime(m.CreatedAt).Format("15:04:05")
		printlnFn(fmt.Sprintf("[%s] %s: %s", ts, name, m.Content))
	}
}

// classify marks a message consisting of a single pictographic rune as an
// emoji message; everything else is text.
func classify(body string) messaging.Type {
	runes := []rune(body)
	if len(runes) == 1 && runes[0] >= 0x1F300 {
		return messaging.TypeEmoji
	}
	return messaging.TypeText
}
