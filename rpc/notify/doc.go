// Package notify provides sinks for the messages a client receives without
// having asked for them: frames without reply_to, replies to requests that
// already timed out and peer initiated notifications.
//
// A Sink is attached to a client with notify.HandleFunc. The package offers
// Log for plain logging, Queue for unbounded buffering with a single consumer,
// Topics for publish/subscribe by message type and Fanout to combine them.
package notify
