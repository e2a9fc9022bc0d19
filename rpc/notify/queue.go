package notify

import (
	"github.com/ValentinKolb/mcpc/rpc/common"
)

// Queue is a sink that buffers messages without bound, so the reader
// goroutine never waits for the consumer. Messages are received in arrival
// order from Recv.
type Queue struct {
	q *mpsc[common.Message]
}

// NewQueue creates an empty queue and starts its delivery goroutine
func NewQueue() *Queue {
	return &Queue{q: newMPSC[common.Message]()}
}

// Handle appends msg to the queue. Messages handed in after Close are dropped.
func (q *Queue) Handle(msg *common.Message) {
	if !q.q.push(msg) && msg != nil {
		Logger.Debugf("Queue closed, dropping %s", msg)
	}
}

// Recv returns the channel the messages are delivered on. It is closed after
// Close once all buffered messages were received.
func (q *Queue) Recv() <-chan *common.Message {
	return q.q.recv()
}

// Len returns the number of buffered messages
func (q *Queue) Len() int {
	return q.q.len()
}

// Close stops accepting messages. The consumer must keep reading from Recv
// until it is closed.
func (q *Queue) Close() {
	q.q.close()
}
