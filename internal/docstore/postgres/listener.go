package postgres

import (
	"context"
	"sync"
	"time"

	"github.com/cloudchat-app/cloudchat/internal/docstore"
	"github.com/cloudchat-app/cloudchat/internal/logging"
	"github.com/jackc/pgx/v5"
	"github.com/sethvargo/go-retry"
)

// notifyChannel is the pg_notify channel raised by the documents trigger.
// The payload is the changed collection name.
const notifyChannel = "documents_changed"

// listener owns the dedicated LISTEN connection and fans change
// notifications out to watchers. Each notification makes every watcher of
// the changed collection re-run its query and deliver the full current set.
type listener struct {
	dsn    string
	store  *Store
	logger logging.Logger

	mu       sync.Mutex
	watchers map[int64]*pgWatcher
	nextID   int64
	started  bool
	cancel   context.CancelFunc
}

type pgWatcher struct {
	collection string
	filter     *docstore.Filter
	ch         chan []docstore.Document
	done       chan struct{}
	once       sync.Once
	l          *listener
	id         int64

	mu     sync.Mutex
	closed bool
}

func newListener(dsn string, store *Store, logger logging.Logger) *listener {
	return &listener{
		dsn:      dsn,
		store:    store,
		logger:   logger,
		watchers: make(map[int64]*pgWatcher),
	}
}

func (w *pgWatcher) Updates() <-chan []docstore.Document {
	return w.ch
}

func (w *pgWatcher) Close() {
	w.once.Do(func() {
		w.l.mu.Lock()
		delete(w.l.watchers, w.id)
		w.l.mu.Unlock()

		w.mu.Lock()
		w.closed = true
		close(w.ch)
		w.mu.Unlock()

		// releases the context watchdog
		close(w.done)
	})
}

func (w *pgWatcher) push(docs []docstore.Document) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case <-w.ch:
	default:
	}
	select {
	case w.ch <- docs:
	default:
	}
}

func (l *listener) watch(ctx context.Context, collection string, filter *docstore.Filter) (docstore.Subscription, error) {
	l.mu.Lock()
	l.nextID++
	w := &pgWatcher{
		collection: collection,
		filter:     filter,
		ch:         make(chan []docstore.Document, 1),
		done:       make(chan struct{}),
		l:          l,
		id:         l.nextID,
	}
	l.watchers[w.id] = w
	l.ensureStartedLocked()
	l.mu.Unlock()

	// initial snapshot
	docs, err := l.store.List(ctx, collection, filter)
	if err != nil {
		w.Close()
		return nil, err
	}
	w.push(docs)

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

func (l *listener) ensureStartedLocked() {
	if l.started {
		return
	}
	l.started = true
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	go l.run(ctx)
}

func (l *listener) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
}

// run keeps a LISTEN session alive, reconnecting with exponential backoff.
func (l *listener) run(ctx context.Context) {
	backoff := retry.WithCappedDuration(5*time.Second, retry.NewExponential(200*time.Millisecond))

	_ = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := l.listenOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.logger.Warn(ctx, "notification listener disconnected, retrying", "error", err.Error())
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (l *listener) listenOnce(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return err
	}

	// catch up on anything missed while disconnected
	l.redeliverAll(ctx)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.notifyCollection(ctx, n.Payload)
	}
}

func (l *listener) snapshotWatchers(collection string) []*pgWatcher {
	l.mu.Lock()
	defer l.mu.Unlock()
	var ws []*pgWatcher
	for _, w := range l.watchers {
		if collection == "" || w.collection == collection {
			ws = append(ws, w)
		}
	}
	return ws
}

func (l *listener) notifyCollection(ctx context.Context, collection string) {
	for _, w := range l.snapshotWatchers(collection) {
		docs, err := l.store.List(ctx, w.collection, w.filter)
		if err != nil {
			l.logger.Warn(ctx, "live query refresh failed", "collection", w.collection, "error", err.Error())
			continue
		}
		w.push(docs)
	}
}

func (l *listener) redeliverAll(ctx context.Context) {
	l.notifyCollection(ctx, "")
}
