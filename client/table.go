package client

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/luma/relay/protocol"
)

type KeyKind uint8

const (
	KeyRequest KeyKind = iota + 1
	KeyEvent
)

func (k KeyKind) String() string {
	switch k {
	case KeyRequest:
		return "request"
	case KeyEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Key identifies a correlation table entry. Request ids and event names
// live in distinct keyspaces, so an event name that happens to look like a
// uuid never collides with a pending request.
type Key struct {
	Kind KeyKind
	Name string
}

func RequestKey(id uuid.UUID) Key {
	return Key{Kind: KeyRequest, Name: id.String()}
}

func EventKey(eventName string) Key {
	return Key{Kind: KeyEvent, Name: eventName}
}

func (k Key) String() string {
	return k.Kind.String() + ":" + k.Name
}

// KeyFor returns the key an inbound payload is dispatched under. The event
// name wins over the request id, event deliveries may carry both.
func KeyFor(h protocol.Header) (Key, bool) {
	switch {
	case h.EventName != "":
		return EventKey(h.EventName), true

	case h.HasRequestID():
		return RequestKey(h.RequestID), true

	default:
		return Key{}, false
	}
}

type entry struct {
	key     Key
	handler Handler

	// once entries are removed before their handler runs
	once bool

	// cancel, when set, is called instead of handler if the table is
	// cleared while the entry is still pending.
	cancel func(error)

	// active is shared by every entry that replaced another under the same
	// event key and goes false once the subscription is removed. Only set
	// on persistent entries.
	active *atomic.Bool
}

// live reports whether deliveries queued for e may still run.
func (e *entry) live() bool {
	return e.active == nil || e.active.Load()
}

func (e *entry) retire() {
	if e.active != nil {
		e.active.Store(false)
	}
}

type table struct {
	mu      sync.Mutex
	entries map[Key]*entry
	closed  bool
}

func newTable() *table {
	return &table{
		entries: make(map[Key]*entry),
	}
}

// set registers e under its key and returns the entry it replaced. A
// persistent entry replacing another persistent entry carries on its
// subscription. ok is false once the table has been cleared.
func (t *table) set(e *entry) (prev *entry, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, false
	}

	prev = t.entries[e.key]

	if !e.once {
		if prev != nil && !prev.once {
			e.active = prev.active
		} else {
			e.active = atomic.NewBool(true)
		}
	}

	t.entries[e.key] = e
	return prev, true
}

// restore puts prev back in place of e, if e is still registered. With no
// prev, e is removed and its subscription ends.
func (t *table) restore(e, prev *entry) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.entries[e.key] != e {
		return false
	}

	if prev != nil {
		t.entries[e.key] = prev
		return true
	}

	delete(t.entries, e.key)
	e.retire()
	return true
}

func (t *table) delete(k Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[k]
	if ok {
		delete(t.entries, k)
		e.retire()
	}

	return ok
}

// deleteIf removes e only if it is still the entry under its key.
func (t *table) deleteIf(e *entry) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.entries[e.key] != e {
		return false
	}

	delete(t.entries, e.key)
	e.retire()
	return true
}

// take looks k up, removing it when it is a once entry.
func (t *table) take(k Key) (*entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[k]
	if ok && e.once {
		delete(t.entries, k)
	}

	return e, ok
}

// clear empties the table and refuses further registrations. The removed
// entries are returned so pending waiters can be rejected.
func (t *table) clear() []*entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := make([]*entry, 0, len(t.entries))
	for k, e := range t.entries {
		removed = append(removed, e)
		delete(t.entries, k)
		e.retire()
	}

	t.closed = true
	return removed
}

func (t *table) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}
