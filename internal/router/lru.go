package router

import (
	"container/list"
	"sync"

	"github.com/kipa-net/kipa/internal/message"
)

// outstandingLRU is a bounded LRU of recent outbound MessageIds awaiting a
// response. It is intentionally hand-rolled (container/list + map, the
// same shape as Go's own well-known LRU recipes) rather than pulled from a
// dependency: it is ~30 lines of pointer bookkeeping, and nothing in the
// retrieved example pack ships an LRU cache library to ground a heavier
// dependency on.
type outstandingLRU struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[message.ID]*list.Element
}

func newOutstandingLRU(capacity int) *outstandingLRU {
	if capacity <= 0 {
		capacity = 4096
	}
	return &outstandingLRU{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[message.ID]*list.Element),
	}
}

// add registers id as outstanding, evicting the oldest entry if the store
// is at capacity.
func (l *outstandingLRU) add(id message.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.items[id]; ok {
		return
	}
	el := l.ll.PushFront(id)
	l.items[id] = el

	for l.ll.Len() > l.capacity {
		back := l.ll.Back()
		if back == nil {
			break
		}
		l.ll.Remove(back)
		delete(l.items, back.Value.(message.ID))
	}
}

// take reports whether id was outstanding and, if so, removes it. A
// MessageId is a one-shot nonce: once matched it cannot be matched again.
func (l *outstandingLRU) take(id message.ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	el, ok := l.items[id]
	if !ok {
		return false
	}
	l.ll.Remove(el)
	delete(l.items, id)
	return true
}
