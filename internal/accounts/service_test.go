package accounts

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/cloudchat-app/cloudchat/internal/common"
	"github.com/cloudchat-app/cloudchat/internal/cryptox"
	"github.com/cloudchat-app/cloudchat/internal/docstore/memstore"
	"github.com/cloudchat-app/cloudchat/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRoot = RootConfig{ID: "admin-001", Username: "admin", Secret: "Mylover10"}

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	return NewService(memstore.New(), testRoot, logger)
}

func TestBootstrap_CreatesRoot(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.Bootstrap(ctx))

	root, err := s.Get(ctx, "admin-001")
	require.NoError(t, err)
	assert.Equal(t, "admin", root.Username)
	assert.Equal(t, RoleAdmin, root.Role)
	assert.Equal(t, StatusActive, root.Status)
	assert.True(t, cryptox.VerifySecret(root.Secret, "Mylover10"))
	assert.NotZero(t, root.CreatedAt)
}

func TestBootstrap_ReassertsAfterExternalMutation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.Bootstrap(ctx))

	// simulate an external mutation bypassing the guard
	root, err := s.Get(ctx, "admin-001")
	require.NoError(t, err)
	root.Role = RoleUser
	root.Status = StatusPaused
	root.Username = "imposter"
	require.NoError(t, s.put(ctx, root))

	require.NoError(t, s.Bootstrap(ctx))

	root, err = s.Get(ctx, "admin-001")
	require.NoError(t, err)
	assert.Equal(t, "admin", root.Username)
	assert.Equal(t, RoleAdmin, root.Role)
	assert.Equal(t, StatusActive, root.Status)
}

func TestBootstrap_Idempotent_PreservesAvatarAndCreatedAt(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.Bootstrap(ctx))
	first, err := s.Get(ctx, "admin-001")
	require.NoError(t, err)

	_, err = s.SetAvatar(ctx, "admin-001", "avatars/root")
	require.NoError(t, err)

	require.NoError(t, s.Bootstrap(ctx))
	second, err := s.Get(ctx, "admin-001")
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, "avatars/root", second.Avatar)
}

func TestCreate_And_FindByUsername(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	acc, err := s.Create(ctx, "alice", "pw1", RoleUser)
	require.NoError(t, err)
	assert.NotEmpty(t, acc.ID)
	assert.Equal(t, StatusActive, acc.Status)

	got, err := s.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)

	// case-sensitive
	_, err = s.FindByUsername(ctx, "Alice")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreate_DuplicateUsername(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "alice", "pw1", RoleUser)
	require.NoError(t, err)

	_, err = s.Create(ctx, "alice", "pw2", RoleUser)
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestRootProtection(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	require.NoError(t, s.Bootstrap(ctx))

	_, err := s.SetStatus(ctx, "admin-001", StatusPaused)
	assert.ErrorIs(t, err, common.ErrRootProtected)

	_, err = s.SetRole(ctx, "admin-001", RoleUser)
	assert.ErrorIs(t, err, common.ErrRootProtected)

	_, err = s.Rename(ctx, "admin-001", "other")
	assert.ErrorIs(t, err, common.ErrRootProtected)

	err = s.Delete(ctx, "admin-001")
	assert.ErrorIs(t, err, common.ErrRootProtected)

	// record unchanged
	root, err := s.Get(ctx, "admin-001")
	require.NoError(t, err)
	assert.Equal(t, "admin", root.Username)
	assert.Equal(t, RoleAdmin, root.Role)
	assert.Equal(t, StatusActive, root.Status)
}

func TestSetStatus_NonRoot(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	acc, err := s.Create(ctx, "bob", "pw", RoleUser)
	require.NoError(t, err)

	paused, err := s.SetStatus(ctx, acc.ID, StatusPaused)
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, paused.Status)

	active, err := s.SetStatus(ctx, acc.ID, StatusActive)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, active.Status)
}

func TestEnforce(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	acc, err := s.Create(ctx, "carol", "pw", RoleUser)
	require.NoError(t, err)

	got, err := s.Enforce(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)

	_, err = s.SetStatus(ctx, acc.ID, StatusPaused)
	require.NoError(t, err)
	_, err = s.Enforce(ctx, acc.ID)
	assert.ErrorIs(t, err, common.ErrRevoked)

	require.NoError(t, s.Delete(ctx, acc.ID))
	_, err = s.Enforce(ctx, acc.ID)
	assert.ErrorIs(t, err, common.ErrRevoked)
}

func TestRename_TakenName(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "alice", "pw", RoleUser)
	require.NoError(t, err)
	bob, err := s.Create(ctx, "bob", "pw", RoleUser)
	require.NoError(t, err)

	_, err = s.Rename(ctx, bob.ID, "alice")
	assert.ErrorIs(t, err, common.ErrConflict)

	renamed, err := s.Rename(ctx, bob.ID, "robert")
	require.NoError(t, err)
	assert.Equal(t, "robert", renamed.Username)
}

func TestChangeSecret(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	acc, err := s.Create(ctx, "dave", "old", RoleUser)
	require.NoError(t, err)
	require.NoError(t, s.ChangeSecret(ctx, acc.ID, "new"))

	got, err := s.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.False(t, cryptox.VerifySecret(got.Secret, "old"))
	assert.True(t, cryptox.VerifySecret(got.Secret, "new"))
}

func TestList_SortedByCreation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	require.NoError(t, s.Bootstrap(ctx))

	_, err := s.Create(ctx, "alice", "pw", RoleUser)
	require.NoError(t, err)
	_, err = s.Create(ctx, "bob", "pw", RoleUser)
	require.NoError(t, err)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].CreatedAt, all[i].CreatedAt)
	}
}
