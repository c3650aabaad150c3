package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	isAdmin() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Friends(ctx context.Context) error
	FriendAdd(ctx context.Context) error
	FriendAccept(ctx context.Context) error
	FriendReject(ctx context.Context) error
	Requests(ctx context.Context) error
	ChatOpen(ctx context.Context) error
	ChatSend(ctx context.Context) error
	ChatClose(ctx context.Context) error
	Avatar(ctx context.Context) error
	ChangeSecret(ctx context.Context) error
	Whoami(ctx context.Context) error
	Users(ctx context.Context) error
	CreateUser(ctx context.Context) error
	PauseUser(ctx context.Context) error
	ResumeUser(ctx context.Context) error
	RenameUser(ctx context.Context) error
	DeleteUser(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the CloudChat console.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help           — show available commands
//	  - login          — authenticate
//	  - exit | quit    — leave the program
//
//	Logged in:
//	  - help           — show available commands
//	  - friends        — list accepted friends
//	  - add            — send a friend request
//	  - accept         — accept a pending request
//	  - reject         — reject a pending request
//	  - requests       — watch pending requests live
//	  - open           — open a chat with a friend
//	  - send           — send a message in the open chat
//	  - close          — close the open chat
//	  - avatar         — upload a profile image
//	  - passwd         — change own password
//	  - whoami         — show the current session and token
//	  - logout         — log out
//	  - exit | quit    — leave the program
//
//	Admins additionally get:
//	  - users          — list all accounts
//	  - createuser     — create an account
//	  - pause | resume — suspend / reactivate an account
//	  - rename         — change an account's username
//	  - deluser        — delete an account
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("cc> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: friends, add, accept, reject, requests, open, send, close, avatar, passwd, whoami, logout, exit")
				if a.isAdmin() {
					printlnFn("Admin commands: users, createuser, pause, resume, rename, deluser")
				}
			} else {
				printlnFn("Available commands: login, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "friends":
			_ = a.Friends(ctx)

		case "add":
			_ = a.FriendAdd(ctx)

		case "accept":
			_ = a.FriendAccept(ctx)

		case "reject":
			_ = a.FriendReject(ctx)

		case "requests":
			_ = a.Requests(ctx)

		case "open":
			_ = a.ChatOpen(ctx)

		case "send":
			_ = a.ChatSend(ctx)

		case "close":
			_ = a.ChatClose(ctx)

		case "avatar":
			_ = a.Avatar(ctx)

		case "passwd":
			_ = a.ChangeSecret(ctx)

		case "whoami":
			_ = a.Whoami(ctx)

		case "users":
			_ = a.Users(ctx)

		case "createuser":
			_ = a.CreateUser(ctx)

		case "pause":
			_ = a.PauseUser(ctx)

		case "resume":
			_ = a.ResumeUser(ctx)

		case "rename":
			_ = a.RenameUser(ctx)

		case "deluser":
			_ = a.DeleteUser(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
