package offline

import "sync"

type EventKind int

const (
	// EventConnectivity is emitted on every online/offline transition.
	EventConnectivity EventKind = iota
	// EventPending is emitted whenever the number of queued requests changes.
	EventPending
)

func (k EventKind) String() string {
	switch k {
	case EventConnectivity:
		return "connectivity"
	case EventPending:
		return "pending"
	}
	return "unknown"
}

// Event is a snapshot of the queue state at the time it was emitted.
type Event struct {
	Kind     EventKind
	IsOnline bool
	Pending  int
}

// Listener is called synchronously from the goroutine that changed the queue.
// Listeners must not block.
type Listener func(Event)

type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]Listener
}

func (ls *listeners) add(fn Listener) (remove func()) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.fns == nil {
		ls.fns = make(map[int]Listener)
	}
	id := ls.next
	ls.next++
	ls.fns[id] = fn

	return func() {
		ls.mu.Lock()
		defer ls.mu.Unlock()
		delete(ls.fns, id)
	}
}

func (ls *listeners) emit(e Event) {
	ls.mu.Lock()
	fns := make([]Listener, 0, len(ls.fns))
	for _, fn := range ls.fns {
		fns = append(fns, fn)
	}
	ls.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
