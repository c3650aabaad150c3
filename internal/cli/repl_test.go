package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"
)

type fakeExec struct {
	loggedIn bool
	admin    bool

	calls []string
}

func (f *fakeExec) record(name string) error {
	f.calls = append(f.calls, name)
	return nil
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) isAdmin() bool    { return f.admin }
func (f *fakeExec) Login(ctx context.Context) error {
	f.loggedIn = true
	return f.record("login")
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.loggedIn = false
	return f.record("logout")
}
func (f *fakeExec) Friends(ctx context.Context) error      { return f.record("friends") }
func (f *fakeExec) FriendAdd(ctx context.Context) error    { return f.record("add") }
func (f *fakeExec) FriendAccept(ctx context.Context) error { return f.record("accept") }
func (f *fakeExec) FriendReject(ctx context.Context) error { return f.record("reject") }
func (f *fakeExec) Requests(ctx context.Context) error     { return f.record("requests") }
func (f *fakeExec) ChatOpen(ctx context.Context) error     { return f.record("open") }
func (f *fakeExec) ChatSend(ctx context.Context) error     { return f.record("send") }
func (f *fakeExec) ChatClose(ctx context.Context) error    { return f.record("close") }
func (f *fakeExec) Avatar(ctx context.Context) error       { return f.record("avatar") }
func (f *fakeExec) ChangeSecret(ctx context.Context) error { return f.record("passwd") }
func (f *fakeExec) Whoami(ctx context.Context) error       { return f.record("whoami") }
func (f *fakeExec) Users(ctx context.Context) error        { return f.record("users") }
func (f *fakeExec) CreateUser(ctx context.Context) error   { return f.record("createuser") }
func (f *fakeExec) PauseUser(ctx context.Context) error    { return f.record("pause") }
func (f *fakeExec) ResumeUser(ctx context.Context) error   { return f.record("resume") }
func (f *fakeExec) RenameUser(ctx context.Context) error   { return f.record("rename") }
func (f *fakeExec) DeleteUser(ctx context.Context) error   { return f.record("deluser") }

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader(strings.Join([]string{
		"help",
		"login",
		"help",
		"add",
		"accept",
		"friends",
		"open",
		"send",
		"close",
		"whoami",
		"foobar",
		"exit",
	}, "\n"))

	exec := &fakeExec{loggedIn: false}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "status" }, sc)

	wantOrder := []string{"login", "add", "accept", "friends", "open", "send", "close", "whoami"}
	if len(exec.calls) < len(wantOrder) {
		t.Fatalf("few calls: %+v", exec.calls)
	}
	idx := 0
	for _, c := range exec.calls {
		if idx < len(wantOrder) && c == wantOrder[idx] {
			idx++
		}
	}
	if idx != len(wantOrder) {
		t.Fatalf("commands order mismatch: got %v, want subseq %v", exec.calls, wantOrder)
	}
}

func TestRunREPL_AdminCommands(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader("users\ncreateuser\npause\nresume\nrename\ndeluser\nquit\n")
	exec := &fakeExec{loggedIn: true, admin: true}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "s" }, sc)

	want := []string{"users", "createuser", "pause", "resume", "rename", "deluser"}
	if len(exec.calls) != len(want) {
		t.Fatalf("calls mismatch: got %v, want %v", exec.calls, want)
	}
	for i := range want {
		if exec.calls[i] != want[i] {
			t.Fatalf("call %d: got %q, want %q", i, exec.calls[i], want[i])
		}
	}
}

func TestRunREPL_EOFStopsLoop(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader("\n\n")
	exec := &fakeExec{loggedIn: true}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "s" }, sc)

	if len(exec.calls) != 0 {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
}
