// Package memstore is an in-memory docstore.Store with live-query fan-out.
// It backs local development and the package tests; the durable backend
// lives in docstore/postgres.
package memstore

import (
	"context"
	"sync"

	"github.com/cloudchat-app/cloudchat/internal/common"
	"github.com/cloudchat-app/cloudchat/internal/docstore"
)

// MemStore is a thread-safe in-memory document store.
type MemStore struct {
	mu sync.RWMutex
	// [collection][id]document
	data     map[string]map[string]docstore.Document
	watchers map[int64]*watcher
	nextID   int64
}

type watcher struct {
	collection string
	filter     *docstore.Filter
	ch         chan []docstore.Document
	done       chan struct{}
	once       sync.Once
	store      *MemStore
	id         int64

	mu     sync.Mutex
	closed bool
}

func (w *watcher) Updates() <-chan []docstore.Document {
	return w.ch
}

func (w *watcher) Close() {
	w.once.Do(func() {
		w.store.mu.Lock()
		delete(w.store.watchers, w.id)
		w.store.mu.Unlock()

		w.mu.Lock()
		w.closed = true
		close(w.ch)
		w.mu.Unlock()

		// releases the context watchdog
		close(w.done)
	})
}

func New() *MemStore {
	return &MemStore{
		data:     make(map[string]map[string]docstore.Document),
		watchers: make(map[int64]*watcher),
	}
}

func (m *MemStore) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.data[collection][id]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := make(docstore.Document, len(doc))
	copy(out, doc)
	return out, nil
}

func (m *MemStore) Put(ctx context.Context, collection, id string, doc docstore.Document) error {
	stored := make(docstore.Document, len(doc))
	copy(stored, doc)

	m.mu.Lock()
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]docstore.Document)
	}
	m.data[collection][id] = stored
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

// PutUnlessExists refuses the write when any document in the collection
// matches guard, making the check-then-create race-free within this store.
func (m *MemStore) PutUnlessExists(ctx context.Context, collection string, guard docstore.Filter, id string, doc docstore.Document) error {
	stored := make(docstore.Document, len(doc))
	copy(stored, doc)

	m.mu.Lock()
	for _, existing := range m.data[collection] {
		if guard.Matches(existing) {
			m.mu.Unlock()
			return common.ErrConflict
		}
	}
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]docstore.Document)
	}
	m.data[collection][id] = stored
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

func (m *MemStore) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	delete(m.data[collection], id)
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

func (m *MemStore) List(ctx context.Context, collection string, filter *docstore.Filter) ([]docstore.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(collection, filter), nil
}

func (m *MemStore) listLocked(collection string, filter *docstore.Filter) []docstore.Document {
	docs := make([]docstore.Document, 0, len(m.data[collection]))
	for _, doc := range m.data[collection] {
		if filter != nil && !filter.Matches(doc) {
			continue
		}
		out := make(docstore.Document, len(doc))
		copy(out, doc)
		docs = append(docs, out)
	}
	return docs
}

// Watch registers a watcher and immediately queues the initial snapshot.
// Delivery coalesces: if the subscriber has not consumed the previous set
// yet, it is replaced by the newer one rather than queued behind it.
func (m *MemStore) Watch(ctx context.Context, collection string, filter *docstore.Filter) (docstore.Subscription, error) {
	m.mu.Lock()
	m.nextID++
	w := &watcher{
		collection: collection,
		filter:     filter,
		ch:         make(chan []docstore.Document, 1),
		done:       make(chan struct{}),
		store:      m,
		id:         m.nextID,
	}
	m.watchers[w.id] = w
	snapshot := m.listLocked(collection, filter)
	m.mu.Unlock()

	w.push(snapshot)

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				w.Close()
			case <-w.done:
			}
		}()
	}

	return w, nil
}

func (w *watcher) push(docs []docstore.Document) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	// drop the stale pending set, if any, then queue the fresh one
	select {
	case <-w.ch:
	default:
	}
	select {
	case w.ch <- docs:
	default:
	}
}

func (m *MemStore) notify(collection string) {
	m.mu.RLock()
	type delivery struct {
		w    *watcher
		docs []docstore.Document
	}
	var deliveries []delivery
	for _, w := range m.watchers {
		if w.collection != collection {
			continue
		}
		deliveries = append(deliveries, delivery{w, m.listLocked(collection, w.filter)})
	}
	m.mu.RUnlock()

	for _, d := range deliveries {
		d.w.push(d.docs)
	}
}
