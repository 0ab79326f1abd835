// Package offline keeps writes that could not reach the server and replays
// them once connectivity returns.
package offline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/calygofire/calygo"
)

var ErrOffline = errors.New("offline")

// Transport delivers a request and reports the HTTP status it got back.
// A non-nil error means no status was received.
type Transport interface {
	Send(ctx context.Context, req calygo.PendingRequest) (status int, err error)
}

// ConnectivitySource reports whether the server is reachable.
type ConnectivitySource interface {
	// Online reports the current state.
	Online(ctx context.Context) bool
	// Watch emits the new state on every transition. The channel is closed
	// once ctx is done.
	Watch(ctx context.Context) <-chan bool
}

// Queue is the durable list of writes awaiting delivery. The in-memory list is
// authoritative; the store is rewritten in full after every change.
type Queue struct {
	store     calygo.PendingRequestRepo
	transport Transport
	cfg       Config
	l         calygo.Logger

	// mu guards pending and is held across the persisted rewrite so that
	// concurrent mutations cannot drop each other's entries.
	mu      sync.Mutex
	pending []calygo.PendingRequest
	// loaded is false until the store has been read once. The store is not
	// rewritten before then, so a failed load cannot wipe it.
	loaded bool

	// replayMu serializes replay passes.
	replayMu sync.Mutex

	online    atomic.Bool
	listeners listeners
}

// NewQueue loads the persisted requests from store and takes its initial
// online state from source. A failing store is logged and the queue starts
// empty; the load is retried on the next change.
func NewQueue(
	ctx context.Context,
	store calygo.PendingRequestRepo,
	transport Transport,
	source ConnectivitySource,
	opts ...Option,
) *Queue {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()

	q := &Queue{
		store:     store,
		transport: transport,
		cfg:       cfg,
		l:         cfg.Logger,
	}

	pending, err := store.GetAllPending(ctx)
	if err != nil {
		q.l.Error("failed to load pending requests", "error", err)
	} else {
		q.pending = pending
		q.loaded = true
	}
	q.online.Store(source.Online(ctx))

	q.l.Info("offline queue ready", "pending", len(q.pending), "online", q.online.Load())
	return q
}

// Enqueue appends a request and persists the queue. It never attempts
// delivery; requests go out on the next offline to online transition or Flush.
func (q *Queue) Enqueue(ctx context.Context, url, method string, headers map[string]string, body string) calygo.PendingRequest {
	req := calygo.PendingRequest{
		ID:        q.cfg.IDGenerator(),
		URL:       url,
		Method:    method,
		Headers:   maps.Clone(headers),
		Body:      body,
		Timestamp: q.cfg.Clock.Now().UnixMilli(),
	}

	q.mu.Lock()
	q.pending = append(q.pending, req)
	// the caller may enqueue because its own deadline expired
	q.persistLocked(context.WithoutCancel(ctx))
	n := len(q.pending)
	q.mu.Unlock()

	q.l.Info("queued request", "id", req.ID, "method", req.Method, "url", req.URL, "pending", n)
	q.listeners.emit(Event{Kind: EventPending, IsOnline: q.IsOnline(), Pending: n})
	return req
}

func (q *Queue) IsOnline() bool {
	return q.online.Load()
}

func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Pending returns a copy of the queued requests in insertion order.
func (q *Queue) Pending() []calygo.PendingRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.pending)
}

// Subscribe registers fn for every event and returns a function removing it.
func (q *Queue) Subscribe(fn Listener) (unsubscribe func()) {
	return q.listeners.add(fn)
}

// OnConnectivityChange registers fn for online/offline transitions only.
func (q *Queue) OnConnectivityChange(fn func(isOnline bool)) (unsubscribe func()) {
	return q.listeners.add(func(e Event) {
		if e.Kind == EventConnectivity {
			fn(e.IsOnline)
		}
	})
}

// SetOnline records a connectivity observation. Repeated observations of the
// current state are ignored. Going online notifies listeners and then replays
// the queue before returning.
func (q *Queue) SetOnline(ctx context.Context, online bool) {
	if q.online.Swap(online) == online {
		return
	}

	q.l.Info("connectivity changed", "online", online)
	q.listeners.emit(Event{Kind: EventConnectivity, IsOnline: online, Pending: q.PendingCount()})

	if online {
		q.replay(ctx)
	}
}

// Run feeds transitions from source into the queue until ctx is done.
func (q *Queue) Run(ctx context.Context, source ConnectivitySource) {
	for online := range source.Watch(ctx) {
		q.SetOnline(ctx, online)
	}
}

// Flush replays the queue now and returns how many requests left it.
func (q *Queue) Flush(ctx context.Context) (int, error) {
	if !q.IsOnline() {
		return 0, ErrOffline
	}
	return q.replay(ctx), nil
}

// replay attempts every request queued at the start of the pass, oldest first.
// A started pass is not cancelled with ctx; each attempt is bounded by the
// replay timeout instead. Requests enqueued during the pass are kept.
func (q *Queue) replay(ctx context.Context) (removed int) {
	q.replayMu.Lock()
	defer q.replayMu.Unlock()

	batch := q.Pending()
	if len(batch) == 0 {
		return 0
	}

	ctx = context.WithoutCancel(ctx)
	done := make(map[string]struct{}, len(batch))
	for _, req := range batch {
		status, err := q.send(ctx, req)
		if err == nil && status >= 200 && status < 300 {
			q.l.Debug("replayed request", "id", req.ID, "status", status)
			done[req.ID] = struct{}{}
			continue
		}

		if q.cfg.FailureClassifier(ctx, req, status, err) == FailureDrop {
			q.l.Warn("dropping request", "id", req.ID, "method", req.Method, "url", req.URL, "status", status, "error", err)
			done[req.ID] = struct{}{}
			continue
		}
		q.l.Debug("replay failed, keeping request", "id", req.ID, "status", status, "error", err)
	}

	if len(done) == 0 {
		q.l.Info("replay pass finished", "removed", 0, "remaining", len(batch))
		return 0
	}

	q.mu.Lock()
	before := len(q.pending)
	q.pending = slices.DeleteFunc(q.pending, func(r calygo.PendingRequest) bool {
		_, ok := done[r.ID]
		return ok
	})
	removed = before - len(q.pending)
	q.persistLocked(ctx)
	n := len(q.pending)
	q.mu.Unlock()

	q.l.Info("replay pass finished", "removed", removed, "remaining", n)
	q.listeners.emit(Event{Kind: EventPending, IsOnline: q.IsOnline(), Pending: n})
	return removed
}

func (q *Queue) send(ctx context.Context, req calygo.PendingRequest) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, q.cfg.ReplayTimeout)
	defer cancel()

	status, err := q.transport.Send(ctx, req)
	if err != nil {
		return 0, err
	}
	return status, nil
}

// persistLocked rewrites the stored collection from q.pending. Failures are
// logged and swallowed. Callers must hold q.mu.
func (q *Queue) persistLocked(ctx context.Context) {
	if !q.loaded && !q.reloadLocked(ctx) {
		return
	}

	err := q.cfg.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := q.store.ClearPending(ctx); err != nil {
			return fmt.Errorf("failed to clear pending requests: %w", err)
		}
		for _, req := range q.pending {
			if err := q.store.InsertPending(ctx, req); err != nil {
				return fmt.Errorf("failed to insert pending request %s: %w", req.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		q.l.Error("failed to persist offline queue", "error", err, "pending", len(q.pending))
	}
}

// reloadLocked retries the initial load, putting stored requests ahead of the
// ones queued since. Callers must hold q.mu.
func (q *Queue) reloadLocked(ctx context.Context) bool {
	stored, err := q.store.GetAllPending(ctx)
	if err != nil {
		q.l.Error("pending requests still unreadable, not rewriting store", "error", err, "pending", len(q.pending))
		return false
	}

	seen := make(map[string]struct{}, len(q.pending))
	for _, req := range q.pending {
		seen[req.ID] = struct{}{}
	}
	merged := make([]calygo.PendingRequest, 0, len(stored)+len(q.pending))
	for _, req := range stored {
		if _, ok := seen[req.ID]; !ok {
			merged = append(merged, req)
		}
	}
	q.pending = append(merged, q.pending...)
	q.loaded = true

	q.l.Info("loaded pending requests", "stored", len(stored), "pending", len(q.pending))
	return true
}
