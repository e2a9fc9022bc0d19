package notify

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// node is a single element of the mpsc list
type node[T any] struct {
	value *T
	next  atomic.Pointer[node[T]]
}

// mpsc is an unbounded lock-free multi-producer single-consumer queue.
// Producers append to a linked list with CAS, a single goroutine moves the
// values to the out channel. Values pushed by one producer keep their order.
type mpsc[T any] struct {
	head     atomic.Pointer[node[T]]
	tail     atomic.Pointer[node[T]]
	out      chan *T
	consumer sync.WaitGroup
	closed   atomic.Bool
	pushing  atomic.Int32 // producers between the closed check and the append

	mu   sync.Mutex
	cond *sync.Cond
}

func newMPSC[T any]() *mpsc[T] {
	sentinel := &node[T]{}

	q := &mpsc[T]{
		out: make(chan *T),
	}
	q.cond = sync.NewCond(&q.mu)
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	q.consumer.Add(1)
	go q.consume()

	return q
}

// push appends value. It returns false if value is nil or the queue is closed.
func (q *mpsc[T]) push(value *T) bool {
	if value == nil {
		return false
	}

	q.pushing.Add(1)
	defer q.pushing.Add(-1)
	if q.closed.Load() {
		return false
	}

	newNode := &node[T]{value: value}
	var spins uint8

	for {
		tailNode := q.tail.Load()
		next := tailNode.next.Load()

		if next == nil {
			if tailNode.next.CompareAndSwap(nil, newNode) {
				// another producer may have moved the tail already
				q.tail.CompareAndSwap(tailNode, newNode)
				q.wake()
				return true
			}
		} else {
			// help a producer that appended but did not move the tail yet
			q.tail.CompareAndSwap(tailNode, next)
		}

		// Spin at low contention, then yield
		if spins < 10 {
			spins++
			for i := 0; i < 1<<spins; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// wake signals the consumer while holding the lock, so a wakeup between its
// emptiness check and cond.Wait cannot get lost
func (q *mpsc[T]) wake() {
	q.mu.Lock()
	q.cond.Signal()
	q.mu.Unlock()
}

// consume moves values from the list to the out channel until the queue is
// closed and drained
func (q *mpsc[T]) consume() {
	defer q.consumer.Done()
	defer close(q.out)

	for {
		drained := true

		for {
			head := q.head.Load()
			next := head.next.Load()
			if next == nil {
				break
			}
			drained = false

			value := next.value
			q.head.Store(next)
			q.out <- value
			next.value = nil
		}

		if drained && q.closed.Load() {
			// a producer that passed the closed check before close may still append
			if q.pushing.Load() > 0 {
				runtime.Gosched()
				continue
			}
			if q.head.Load().next.Load() == nil {
				return
			}
			continue
		}

		if drained {
			q.mu.Lock()
			if q.head.Load().next.Load() == nil && !q.closed.Load() {
				q.cond.Wait()
			}
			q.mu.Unlock()
		}
	}
}

// recv returns the channel the values are delivered on. It is closed once
// the queue is closed and every value was received.
func (q *mpsc[T]) recv() <-chan *T {
	return q.out
}

// close rejects further pushes. Values already queued are still delivered.
func (q *mpsc[T]) close() {
	q.closed.Store(true)
	q.wake()
}

// len counts the queued values. It is O(n) and only meant for debugging.
func (q *mpsc[T]) len() int {
	count := 0
	for current := q.head.Load().next.Load(); current != nil; current = current.next.Load() {
		count++
	}
	return count
}
