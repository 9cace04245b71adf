// Package idempotency tracks client-supplied idempotency keys so a retried
// createSubmission returns the original record instead of creating another.
package idempotency

import (
	"context"
	"sync"
	"sync/atomic"
)

// Tracker records idempotency keys and the submission each one produced.
type Tracker interface {
	// Begin reserves key for the caller. When the key already completed it
	// returns the stored submission id with replay=true. When another
	// request holds the key it returns ErrInFlight. Otherwise the caller
	// owns the key and must call Complete or Abort.
	Begin(ctx context.Context, key string) (submissionID string, replay bool, err error)

	// Complete binds a reserved key to the submission it produced.
	Complete(ctx context.Context, key, submissionID string)

	// Abort releases a reserved key so the request can be retried, e.g.
	// after a validation or storage failure.
	Abort(ctx context.Context, key string)

	Size() int64
}

// node is one tracked key. Nodes form a doubly linked list ordered by
// reservation time, newest at head.
type node struct {
	key          string
	submissionID string
	done         bool
	prev, next   *node
}

func (n *node) reset() {
	*n = node{}
}

// inMemoryTracker keeps keys in a map plus a recency list.
// Bounded mode (maxSize > 0) evicts the oldest completed key when full.
// Unbounded mode (maxSize <= 0) never evicts.
type inMemoryTracker struct {
	mu       sync.Mutex
	keys     map[string]*node
	head     *node
	tail     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryTracker creates an in-memory Tracker.
func NewInMemoryTracker(opts ...Option) Tracker {
	t := &inMemoryTracker{
		maxSize: 100_000,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.keys = make(map[string]*node)
	t.nodePool = sync.Pool{
		New: func() interface{} {
			return &node{}
		},
	}
	return t
}

func (t *inMemoryTracker) Begin(ctx context.Context, key string) (string, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n, ok := t.keys[key]; ok {
		if !n.done {
			return "", false, ErrInFlight
		}
		return n.submissionID, true, nil
	}

	if t.maxSize > 0 && len(t.keys) >= t.maxSize {
		t.evictOldest()
	}

	n := t.nodePool.Get().(*node)
	n.key = key
	t.pushFront(n)
	t.keys[key] = n
	t.size.Add(1)
	return "", false, nil
}

func (t *inMemoryTracker) Complete(ctx context.Context, key, submissionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n, ok := t.keys[key]; ok {
		n.submissionID = submissionID
		n.done = true
	}
}

func (t *inMemoryTracker) Abort(ctx context.Context, key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.keys[key]
	if !ok || n.done {
		return
	}
	t.remove(n)
}

func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}

// evictOldest drops the oldest completed key. In-flight keys are never
// evicted, so the map may briefly exceed maxSize under heavy concurrency.
// Must be called with t.mu held.
func (t *inMemoryTracker) evictOldest() {
	for n := t.tail; n != nil; n = n.prev {
		if n.done {
			t.remove(n)
			return
		}
	}
}

func (t *inMemoryTracker) pushFront(n *node) {
	n.next = t.head
	if t.head != nil {
		t.head.prev = n
	}
	t.head = n
	if t.tail == nil {
		t.tail = n
	}
}

// remove unlinks n, deletes its key and returns it to the pool.
func (t *inMemoryTracker) remove(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		t.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		t.tail = n.prev
	}
	delete(t.keys, n.key)
	n.reset()
	t.nodePool.Put(n)
	t.size.Add(-1)
}
