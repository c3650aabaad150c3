// Package social owns the friend graph: request creation with its
// validation ladder, accept/reject transitions, the derived friend set,
// and live views of pending requests.
package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cloudchat-app/cloudchat/internal/accounts"
	"github.com/cloudchat-app/cloudchat/internal/common"
	"github.com/cloudchat-app/cloudchat/internal/docstore"
	"github.com/cloudchat-app/cloudchat/internal/logging"
	"github.com/google/uuid"
)

type Service struct {
	store    docstore.Store
	accounts *accounts.Service
	logger   logging.Logger
}

func NewService(store docstore.Store, accounts *accounts.Service, logger logging.Logger) *Service {
	return &Service{store: store, accounts: accounts, logger: logger}
}

func decode(doc docstore.Document) (*FriendRequest, error) {
	req := &FriendRequest{}
	if err := json.Unmarshal(doc, req); err != nil {
		return nil, fmt.Errorf("friend request decode error: %w", err)
	}
	return req, nil
}

// activeRequest returns the PENDING or ACCEPTED request for the pair, if any.
func (s *Service) activeRequest(ctx context.Context, pairKey string) (*FriendRequest, error) {
	docs, err := s.store.List(ctx, Collection, &docstore.Filter{Field: "activePairKey", Value: pairKey})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return decode(docs[0])
}

func activeStatusErr(req *FriendRequest) error {
	if req.Status == StatusAccepted {
		return common.ErrAlreadyFriends
	}
	return common.ErrRequestPending
}

// SendRequest resolves the target by username and creates a PENDING request
// unless one of the validation rules refuses it. On stores with conditional
// writes the pair-uniqueness check is atomic; elsewhere it is
// read-then-write and a concurrent duplicate remains possible.
func (s *Service) SendRequest(ctx context.Context, fromID, toUsername string) (*FriendRequest, error) {
	target, err := s.accounts.FindByUsername(ctx, toUsername)
	if err != nil {
		return nil, err
	}
	if target.ID == fromID {
		return nil, common.ErrSelfReference
	}
	if target.Status == accounts.StatusPaused {
		return nil, common.ErrTargetUnavailable
	}

	pairKey := PairKey(fromID, target.ID)

	if existing, err := s.activeRequest(ctx, pairKey); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, activeStatusErr(existing)
	}

	req := &FriendRequest{
		ID:            uuid.NewString(),
		FromID:        fromID,
		ToID:          target.ID,
		Status:        StatusPending,
		CreatedAt:     common.NowMillis(),
		ActivePairKey: pairKey,
	}
	doc, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("friend request encode error: %w", err)
	}

	guard := docstore.Filter{Field: "activePairKey", Value: pairKey}
	if cs, ok := s.store.(docstore.ConditionalStore); ok {
		err := cs.PutUnlessExists(ctx, Collection, guard, req.ID, doc)
		if errors.Is(err, common.ErrConflict) {
			// lost the race; report what the winner left behind
			if existing, rerr := s.activeRequest(ctx, pairKey); rerr == nil && existing != nil {
				return nil, activeStatusErr(existing)
			}
			return nil, common.ErrRequestPending
		}
		if err != nil {
			return nil, err
		}
		return req, nil
	}

	if err := s.store.Put(ctx, Collection, req.ID, doc); err != nil {
		return nil, err
	}
	return req, nil
}

// Respond moves a PENDING request to ACCEPTED or REJECTED. Only the
// request's target may respond. Terminal states cannot transition again; a
// rejected pair must start over with a fresh request.
func (s *Service) Respond(ctx context.Context, requestID, responderID string, decision RequestStatus) (*FriendRequest, error) {
	if decision != StatusAccepted && decision != StatusRejected {
		return nil, fmt.Errorf("invalid decision %q", decision)
	}

	doc, err := s.store.Get(ctx, Collection, requestID)
	if err != nil {
		return nil, err
	}
	req, err := decode(doc)
	if err != nil {
		return nil, err
	}
	if req.ToID != responderID {
		return nil, common.ErrUnauthorized
	}
	if req.Status != StatusPending {
		return nil, common.ErrConflict
	}

	req.Status = decision
	if decision == StatusRejected {
		req.ActivePairKey = ""
	}

	updated, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("friend request encode error: %w", err)
	}
	if err := s.store.Put(ctx, Collection, req.ID, updated); err != nil {
		return nil, err
	}
	return req, nil
}

// Friends derives the friend set: counterpart ids across all ACCEPTED
// requests touching the account, resolved to accounts that still exist.
// Paused friends are included; whether to allow chatting with them is the
// caller's call.
func (s *Service) Friends(ctx context.Context, accountID string) ([]accounts.Account, error) {
	docs, err := s.store.List(ctx, Collection, &docstore.Filter{Field: "status", Value: string(StatusAccepted)})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var friends []accounts.Account
	for _, doc := range docs {
		req, err := decode(doc)
		if err != nil {
			return nil, err
		}
		var counterpart string
		switch accountID {
		case req.FromID:
			counterpart = req.ToID
		case req.ToID:
			counterpart = req.FromID
		default:
			continue
		}
		if _, ok := seen[counterpart]; ok {
			continue
		}
		seen[counterpart] = struct{}{}

		acc, err := s.accounts.Get(ctx, counterpart)
		if errors.Is(err, common.ErrNotFound) {
			continue // deleted since accepting
		}
		if err != nil {
			return nil, err
		}
		friends = append(friends, *acc)
	}

	sort.Slice(friends, func(i, j int) bool { return friends[i].Username < friends[j].Username })
	return friends, nil
}

// Unsubscribe releases a live request view. Safe to call more than once.
type Unsubscribe func()

// SubscribeIncoming delivers the current set of PENDING requests targeting
// the account, re-invoked with the full set on every change.
func (s *Service) SubscribeIncoming(ctx context.Context, accountID string, fn func([]FriendRequest)) (Unsubscribe, error) {
	return s.subscribe(ctx, &docstore.Filter{Field: "toId", Value: accountID}, fn)
}

// SubscribeOutgoing is the sender-side counterpart of SubscribeIncoming.
func (s *Service) SubscribeOutgoing(ctx context.Context, accountID string, fn func([]FriendRequest)) (Unsubscribe, error) {
	return s.subscribe(ctx, &docstore.Filter{Field: "fromId", Value: accountID}, fn)
}

func (s *Service) subscribe(ctx context.Context, filter *docstore.Filter, fn func([]FriendRequest)) (Unsubscribe, error) {
	sub, err := s.store.Watch(ctx, Collection, filter)
	if err != nil {
		return nil, err
	}

	go func() {
		for docs := range sub.Updates() {
			pending, err := decodePending(docs)
			if err != nil {
				s.logger.Warn(ctx, "dropping undecodable request set", "filter", filter.Field, "error", err.Error())
				continue
			}
			fn(pending)
		}
	}()

	var once sync.Once
	return func() { once.Do(sub.Close) }, nil
}

func decodePending(docs []docstore.Document) ([]FriendRequest, error) {
	pending := make([]FriendRequest, 0, len(docs))
	for _, doc := range docs {
		req, err := decode(doc)
		if err != nil {
			return nil, err
		}
		if req.Status != StatusPending {
			continue
		}
		pending = append(pending, *req)
	}
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].CreatedAt < pending[j].CreatedAt })
	return pending, nil
}
