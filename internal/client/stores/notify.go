// Package stores holds the in-memory state of the PasteBoard client: the
// entry collection and the auth/identity state. Stores are pure state with
// synchronous subscriber notification; all I/O lives in the services.
package stores

import "sync"

// notifier fans mutations out to registered listeners. Listeners are called
// synchronously, outside the owning store's lock.
type notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func()
}

// subscribe registers fn and returns its cancel func.
func (n *notifier) subscribe(fn func()) func() {
	n.mu.Lock()
	if n.subs == nil {
		n.subs = make(map[int]func())
	}
	id := n.next
	n.next++
	n.subs[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

func (n *notifier) notify() {
	n.mu.Lock()
	fns := make([]func(), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
