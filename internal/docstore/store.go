// Package docstore defines the document-store boundary the chat core is
// built against: collections of JSON documents addressable by id, equality
// filtered listing, and live queries that re-deliver the full matching set
// on every change.
//
// The interface is deliberately minimal. No compound filters exist; the
// data model is denormalized (e.g. the conversation key on messages) so a
// single-field equality match is always enough.
package docstore

import (
	"context"
	"encoding/json"
)

// Document is a raw JSON document as stored.
type Document []byte

// Filter is a single-field equality match against a top-level string field
// of the document.
type Filter struct {
	Field string
	Value string
}

// Matches reports whether the document's top-level field equals the
// filter's value. Documents that do not parse, or whose field is absent or
// not a string, do not match.
func (f Filter) Matches(doc Document) bool {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return false
	}
	v, ok := m[f.Field].(string)
	return ok && v == f.Value
}

// Subscription is a live query handle. Updates delivers the full current
// matching set, starting with an initial snapshot, then again after every
// change to the collection. The channel is closed when the subscription
// ends. Close is safe to call more than once.
type Subscription interface {
	Updates() <-chan []Document
	Close()
}

// Store is the generic key/collection store the core depends on. Network
// or backing-store failures surface as errors wrapping
// common.ErrStoreUnavailable; a missing document is common.ErrNotFound.
type Store interface {
	// Get reads one document by id.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Put writes or replaces one document.
	Put(ctx context.Context, collection, id string, doc Document) error

	// Delete removes one document. Deleting an absent id is not an error.
	Delete(ctx context.Context, collection, id string) error

	// List returns documents in the collection, optionally narrowed by a
	// single-field equality filter. Order is unspecified.
	List(ctx context.Context, collection string, filter *Filter) ([]Document, error)

	// Watch opens a live query over the collection scoped by filter.
	// The subscription is released by Close or when ctx is cancelled.
	Watch(ctx context.Context, collection string, filter *Filter) (Subscription, error)
}

// ConditionalStore is implemented by stores that can refuse a write when
// another document matching guard already exists, in one atomic step.
// A refused write fails with common.ErrConflict.
type ConditionalStore interface {
	PutUnlessExists(ctx context.Context, collection string, guard Filter, id string, doc Document) error
}
