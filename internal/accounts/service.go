// Package accounts owns account records and the account lifecycle guard:
// root-account bootstrap and protection, administrative CRUD, and the
// enforce check that revokes sessions of paused or deleted accounts.
package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/cloudchat-app/cloudchat/internal/common"
	"github.com/cloudchat-app/cloudchat/internal/cryptox"
	"github.com/cloudchat-app/cloudchat/internal/docstore"
	"github.com/cloudchat-app/cloudchat/internal/logging"
	"github.com/google/uuid"
)

// RootConfig identifies the one permanently privileged account. Username
// and Secret are reasserted on every Bootstrap.
type RootConfig struct {
	ID       string
	Username string
	Secret   string
}

type Service struct {
	store  docstore.Store
	root   RootConfig
	logger logging.Logger
}

func NewService(store docstore.Store, root RootConfig, logger logging.Logger) *Service {
	return &Service{store: store, root: root, logger: logger}
}

// RootID returns the fixed identifier of the root account.
func (s *Service) RootID() string {
	return s.root.ID
}

func decode(doc docstore.Document) (*Account, error) {
	acc := &Account{}
	if err := json.Unmarshal(doc, acc); err != nil {
		return nil, fmt.Errorf("account decode error: %w", err)
	}
	return acc, nil
}

func encode(acc *Account) (docstore.Document, error) {
	doc, err := json.Marshal(acc)
	if err != nil {
		return nil, fmt.Errorf("account encode error: %w", err)
	}
	return doc, nil
}

func (s *Service) put(ctx context.Context, acc *Account) error {
	doc, err := encode(acc)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, Collection, acc.ID, doc)
}

// Bootstrap makes sure the root account exists with its protected fields
// pinned: role ADMIN, status ACTIVE, the configured username, and the
// configured credential. Any external mutation of those fields is undone
// here; avatar and creation time are preserved. Safe to call on every
// process start.
func (s *Service) Bootstrap(ctx context.Context) error {
	doc, err := s.store.Get(ctx, Collection, s.root.ID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}

	acc := &Account{
		ID:        s.root.ID,
		CreatedAt: common.NowMillis(),
	}
	if err == nil {
		if acc, err = decode(doc); err != nil {
			return err
		}
	}

	acc.Username = s.root.Username
	acc.Secret = cryptox.HashSecret(s.root.Secret)
	acc.Role = RoleAdmin
	acc.Status = StatusActive

	if err := s.put(ctx, acc); err != nil {
		return err
	}
	s.logger.Info(ctx, "root account asserted", "id", acc.ID)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Account, error) {
	doc, err := s.store.Get(ctx, Collection, id)
	if err != nil {
		return nil, err
	}
	return decode(doc)
}

// FindByUsername resolves an account by its unique, case-sensitive
// display name. Absent names return common.ErrNotFound.
func (s *Service) FindByUsername(ctx context.Context, username string) (*Account, error) {
	docs, err := s.store.List(ctx, Collection, &docstore.Filter{Field: "displayName", Value: username})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, common.ErrNotFound
	}
	return decode(docs[0])
}

// List returns all accounts ordered by creation time.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	docs, err := s.store.List(ctx, Collection, nil)
	if err != nil {
		return nil, err
	}
	out := make([]Account, 0, len(docs))
	for _, doc := range docs {
		acc, err := decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

// Create adds a non-root account. Username uniqueness is enforced with a
// conditional write where the store supports one; otherwise the
// check-then-create race is accepted and a duplicate surfaces later as two
// records sharing a name.
func (s *Service) Create(ctx context.Context, username, secret string, role Role) (*Account, error) {
	acc := &Account{
		ID:        uuid.NewString(),
		Username:  username,
		Secret:    cryptox.HashSecret(secret),
		Role:      role,
		Status:    StatusActive,
		CreatedAt: common.NowMillis(),
	}
	doc, err := encode(acc)
	if err != nil {
		return nil, err
	}

	guard := docstore.Filter{Field: "displayName", Value: username}
	if cs, ok := s.store.(docstore.ConditionalStore); ok {
		if err := cs.PutUnlessExists(ctx, Collection, guard, acc.ID, doc); err != nil {
			return nil, err
		}
		return acc, nil
	}

	if _, err := s.FindByUsername(ctx, username); err == nil {
		return nil, common.ErrConflict
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if err := s.store.Put(ctx, Collection, acc.ID, doc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *Service) update(ctx context.Context, id string, mutate func(*Account)) (*Account, error) {
	acc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	mutate(acc)
	if err := s.put(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// Rename changes an account's display name. The root name is pinned.
func (s *Service) Rename(ctx context.Context, id, username string) (*Account, error) {
	if id == s.root.ID {
		return nil, common.ErrRootProtected
	}
	if _, err := s.FindByUsername(ctx, username); err == nil {
		return nil, common.ErrConflict
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	return s.update(ctx, id, func(acc *Account) { acc.Username = username })
}

// ChangeSecret replaces the account's credential. Permitted for root too:
// the configured secret is reasserted on next bootstrap regardless.
func (s *Service) ChangeSecret(ctx context.Context, id, secret string) error {
	_, err := s.update(ctx, id, func(acc *Account) { acc.Secret = cryptox.HashSecret(secret) })
	return err
}

// SetRole changes an account's role. The root role is pinned to ADMIN.
func (s *Service) SetRole(ctx context.Context, id string, role Role) (*Account, error) {
	if id == s.root.ID {
		return nil, common.ErrRootProtected
	}
	return s.update(ctx, id, func(acc *Account) { acc.Role = role })
}

// SetStatus pauses or reactivates an account. The root status is pinned to
// ACTIVE.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (*Account, error) {
	if id == s.root.ID {
		return nil, common.ErrRootProtected
	}
	return s.update(ctx, id, func(acc *Account) { acc.Status = status })
}

// SetAvatar updates the avatar reference (object key or URL).
func (s *Service) SetAvatar(ctx context.Context, id, avatar string) (*Account, error) {
	return s.update(ctx, id, func(acc *Account) { acc.Avatar = avatar })
}

// Delete removes a non-root account.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == s.root.ID {
		return common.ErrRootProtected
	}
	return s.store.Delete(ctx, Collection, id)
}

// Enforce re-fetches the account backing a session. A missing or paused
// account yields common.ErrRevoked; transient store failure propagates as
// is so the caller can decide to keep the session.
func (s *Service) Enforce(ctx context.Context, id string) (*Account, error) {
	acc, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrRevoked
		}
		return nil, err
	}
	if acc.Status == StatusPaused {
		return nil, common.ErrRevoked
	}
	return acc, nil
}
