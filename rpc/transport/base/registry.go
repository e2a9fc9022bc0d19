package base

import (
	"fmt"
	"github.com/ValentinKolb/mcpc/rpc/common"
	"github.com/puzpuzpuz/xsync/v3"
	"sync"
	"sync/atomic"
)

// responseResult contains the result of a request
type responseResult struct {
	msg *common.Message
	err error
}

// registry keeps track of the requests waiting for a reply.
//
// Every way of finishing a request (reply, timeout, connection loss) goes
// through LoadAndDelete, so exactly one of them wins and the buffered
// channel receives exactly one value.
type registry struct {
	pending  *xsync.MapOf[uint64, chan responseResult]
	failed   atomic.Bool
	failOnce sync.Once
	cause    error // set once before failed is stored
}

func newRegistry() *registry {
	return &registry{
		pending: xsync.NewMapOf[uint64, chan responseResult](),
	}
}

// register adds a pending request for msgID. The returned channel receives
// exactly one result. After failAll it returns the failure cause instead.
func (r *registry) register(msgID uint64) (<-chan responseResult, error) {
	if r.failed.Load() {
		return nil, r.cause
	}

	ch := make(chan responseResult, 1)
	if _, loaded := r.pending.LoadOrStore(msgID, ch); loaded {
		return nil, fmt.Errorf("%w: %d", common.ErrDuplicateMsgID, msgID)
	}

	// failAll may have run between the check above and the store
	if r.failed.Load() {
		if _, ok := r.pending.LoadAndDelete(msgID); ok {
			return nil, r.cause
		}
		// failAll already took the entry and delivered the cause
	}
	return ch, nil
}

// resolve delivers msg to the request waiting for replyTo. It returns false
// if no such request is pending.
func (r *registry) resolve(replyTo uint64, msg *common.Message) bool {
	ch, ok := r.pending.LoadAndDelete(replyTo)
	if !ok {
		return false
	}
	ch <- responseResult{msg: msg}
	return true
}

// remove drops the pending request without resolving it. It returns false if
// the request was already resolved, in which case the result is in its channel.
func (r *registry) remove(msgID uint64) bool {
	_, ok := r.pending.LoadAndDelete(msgID)
	return ok
}

// failAll resolves every pending request with err and rejects further
// registrations. Only the first call sets the cause. It returns the number
// of requests failed by this call.
func (r *registry) failAll(err error) int {
	r.failOnce.Do(func() {
		r.cause = err
		r.failed.Store(true)
	})

	n := 0
	r.pending.Range(func(msgID uint64, _ chan responseResult) bool {
		if ch, ok := r.pending.LoadAndDelete(msgID); ok {
			ch <- responseResult{err: r.cause}
			n++
		}
		return true
	})
	return n
}

// len returns the number of pending requests
func (r *registry) len() int {
	return r.pending.Size()
}
