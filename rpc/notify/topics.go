package notify

import (
	"context"
	"errors"
	"github.com/ValentinKolb/mcpc/rpc/common"
	"github.com/cskr/pubsub"
	"sync"
)

// TopicAll receives every message regardless of its type
const TopicAll = "*"

// ErrSubscriptionClosed is returned by Subscription.Next after the
// subscription or the topics were closed
var ErrSubscriptionClosed = errors.New("subscription closed")

// Topics is a sink that publishes every message under its type and under
// TopicAll. Incoming messages are buffered in a Queue and published by a
// separate goroutine, so slow subscribers never stall the connection. A
// subscriber that stops reading does stall delivery to all other subscribers.
type Topics struct {
	bus   *pubsub.PubSub
	queue *Queue
	done  chan struct{}

	mu     sync.RWMutex // Guards closed against concurrent bus commands
	closed bool
}

// NewTopics creates a topic sink whose subscription channels buffer capacity messages
func NewTopics(capacity int) *Topics {
	t := &Topics{
		bus:   pubsub.New(capacity),
		queue: NewQueue(),
		done:  make(chan struct{}),
	}
	go t.publish()
	return t
}

func (t *Topics) Handle(msg *common.Message) {
	t.queue.Handle(msg)
}

// Subscribe returns a subscription for the given message types. Without
// types it subscribes to TopicAll.
func (t *Topics) Subscribe(types ...common.MessageType) (*Subscription, error) {
	names := make([]string, 0, len(types))
	for _, msgType := range types {
		names = append(names, string(msgType))
	}
	if len(names) == 0 {
		names = append(names, TopicAll)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return nil, ErrSubscriptionClosed
	}

	return &Subscription{topics: t, ch: t.bus.Sub(names...), names: names}, nil
}

// Close stops publishing, delivers the buffered messages and closes all subscriptions
func (t *Topics) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()

	// publish may wait on a subscriber that is unsubscribing, so the lock
	// must not be held here
	t.queue.Close()
	<-t.done
	t.bus.Shutdown()
}

// publish moves messages from the queue to the bus until the queue is closed
func (t *Topics) publish() {
	defer close(t.done)
	for msg := range t.queue.Recv() {
		t.bus.Pub(msg, string(msg.Type), TopicAll)
	}
}

// Subscription receives the messages of one or more topics
type Subscription struct {
	topics *Topics
	ch     chan interface{}
	names  []string
	once   sync.Once
}

// Next blocks until the next message arrives or ctx is done
func (s *Subscription) Next(ctx context.Context) (*common.Message, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case v, ok := <-s.ch:
		if !ok {
			return nil, ErrSubscriptionClosed
		}
		return v.(*common.Message), nil
	}
}

// Unsubscribe removes the subscription from all of its topics
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		// keep draining so a publish in progress cannot block the bus, the
		// bus closes the channel once it left every topic or shut down
		go func() {
			for range s.ch {
			}
		}()

		s.topics.mu.RLock()
		defer s.topics.mu.RUnlock()
		if !s.topics.closed {
			s.topics.bus.Unsub(s.ch, s.names...)
		}
	})
}
