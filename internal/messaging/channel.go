// Package messaging owns message records and their real-time delivery: a
// send path that obfuscates and persists, and per-conversation live
// subscriptions that replay the full ordered history on every change.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/cloudchat-app/cloudchat/internal/common"
	"github.com/cloudchat-app/cloudchat/internal/cryptox"
	"github.com/cloudchat-app/cloudchat/internal/docstore"
	"github.com/cloudchat-app/cloudchat/internal/logging"
	"github.com/google/uuid"
)

type Channel struct {
	store  docstore.Store
	logger logging.Logger
}

func NewChannel(store docstore.Store, logger logging.Logger) *Channel {
	return &Channel{store: store, logger: logger}
}

// Send obfuscates the body, stamps the message with the current time and
// persists it under the derived conversation key. The returned message
// carries the plaintext body so callers can echo it without a reveal pass.
// A store failure surfaces wrapping common.ErrStoreUnavailable; callers
// applying optimistic local echo must roll it back then.
func (c *Channel) Send(ctx context.Context, senderID, receiverID, body string, typ Type) (*Message, error) {
	msg := &Message{
		ID:              uuid.NewString(),
		SenderID:        senderID,
		ReceiverID:      receiverID,
		Content:         cryptox.Obfuscate(body),
		Type:            typ,
		CreatedAt:       common.NowMillis(),
		ConversationKey: ConversationKey(senderID, receiverID),
	}

	doc, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("message encode error: %w", err)
	}
	if err := c.store.Put(ctx, Collection, msg.ID, doc); err != nil {
		return nil, err
	}

	out := *msg
	out.Content = body
	return &out, nil
}

// History reads the full conversation between the two participants,
// revealed and in ascending creation order.
func (c *Channel) History(ctx context.Context, userAID, userBID string) ([]Message, error) {
	key := ConversationKey(userAID, userBID)
	docs, err := c.store.List(ctx, Collection, &docstore.Filter{Field: "conversationKey", Value: key})
	if err != nil {
		return nil, err
	}
	return decodeHistory(docs)
}

// Unsubscribe releases a live subscription. Safe to call more than once.
type Unsubscribe func()

// Subscribe opens a live query over the conversation between the two
// participants. On the initial snapshot and after every change, fn receives
// the full reconstructed history: content revealed, ascending by creation
// timestamp (ties keep store order). fn runs on the subscription's own
// goroutine; invocations are serialized.
func (c *Channel) Subscribe(ctx context.Context, userAID, userBID string, fn func([]Message)) (Unsubscribe, error) {
	key := ConversationKey(userAID, userBID)
	sub, err := c.store.Watch(ctx, Collection, &docstore.Filter{Field: "conversationKey", Value: key})
	if err != nil {
		return nil, err
	}

	go func() {
		for docs := range sub.Updates() {
			history, err := decodeHistory(docs)
			if err != nil {
				c.logger.Warn(ctx, "dropping undecodable message set", "conversation", key, "error", err.Error())
				continue
			}
			fn(history)
		}
	}()

	var once sync.Once
	return func() { once.Do(sub.Close) }, nil
}

func decodeHistory(docs []docstore.Document) ([]Message, error) {
	history := make([]Message, 0, len(docs))
	for _, doc := range docs {
		var msg Message
		if err := json.Unmarshal(doc, &msg); err != nil {
			return nil, fmt.Errorf("message decode error: %w", err)
		}
		msg.Content = cryptox.Reveal(msg.Content)
		history = append(history, msg)
	}
	sort.SliceStable(history, func(i, j int) bool { return history[i].CreatedAt < history[j].CreatedAt })
	return history, nil
}
