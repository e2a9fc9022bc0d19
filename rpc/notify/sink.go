package notify

import (
	"github.com/ValentinKolb/mcpc/rpc/common"
	"github.com/ValentinKolb/mcpc/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("notify")

// Sink receives messages that do not answer a pending request.
// Handle is called from the reader goroutine of the connection and must not block.
type Sink interface {
	Handle(msg *common.Message)
}

// SinkFunc adapts an ordinary function to a Sink
type SinkFunc func(msg *common.Message)

func (f SinkFunc) Handle(msg *common.Message) {
	f(msg)
}

// Discard drops every message
var Discard Sink = SinkFunc(func(*common.Message) {})

// Log returns a sink that logs every message at info level
func Log() Sink {
	return SinkFunc(func(msg *common.Message) {
		Logger.Infof("Notification: %s", msg)
	})
}

// Fanout passes every message to all of its sinks in order
type Fanout []Sink

func (f Fanout) Handle(msg *common.Message) {
	for _, sink := range f {
		sink.Handle(msg)
	}
}

// HandleFunc returns the transport handler that feeds sink
func HandleFunc(sink Sink) transport.NotificationHandleFunc {
	if sink == nil {
		return nil
	}
	return sink.Handle
}
