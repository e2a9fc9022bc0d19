package base

import (
	"fmt"
	"github.com/VictoriaMetrics/metrics"
)

// clientMetrics holds the counters of all client connections of one transport type
type clientMetrics struct {
	requests          *metrics.Counter
	timeouts          *metrics.Counter
	failures          *metrics.Counter
	notifications     *metrics.Counter
	malformedFrames   *metrics.Counter
	heartbeats        *metrics.Counter
	heartbeatFailures *metrics.Counter
	connectionsLost   *metrics.Counter
	latency           *metrics.Histogram
}

func newClientMetrics(transportName string) *clientMetrics {
	name := func(metric string) string {
		return fmt.Sprintf(`mcpc_client_%s{transport=%q}`, metric, transportName)
	}
	return &clientMetrics{
		requests:          metrics.GetOrCreateCounter(name("requests_total")),
		timeouts:          metrics.GetOrCreateCounter(name("request_timeouts_total")),
		failures:          metrics.GetOrCreateCounter(name("request_failures_total")),
		notifications:     metrics.GetOrCreateCounter(name("notifications_total")),
		malformedFrames:   metrics.GetOrCreateCounter(name("malformed_frames_total")),
		heartbeats:        metrics.GetOrCreateCounter(name("heartbeats_total")),
		heartbeatFailures: metrics.GetOrCreateCounter(name("heartbeat_failures_total")),
		connectionsLost:   metrics.GetOrCreateCounter(name("connections_lost_total")),
		latency:           metrics.GetOrCreateHistogram(name("request_duration_seconds")),
	}
}

// serverMetrics holds the counters of a server transport
type serverMetrics struct {
	connections     *metrics.Counter
	requests        *metrics.Counter
	malformedFrames *metrics.Counter
	writeErrors     *metrics.Counter
}

func newServerMetrics(transportName string) *serverMetrics {
	name := func(metric string) string {
		return fmt.Sprintf(`mcpc_server_%s{transport=%q}`, metric, transportName)
	}
	return &serverMetrics{
		connections:     metrics.GetOrCreateCounter(name("connections_total")),
		requests:        metrics.GetOrCreateCounter(name("messages_total")),
		malformedFrames: metrics.GetOrCreateCounter(name("malformed_frames_total")),
		writeErrors:     metrics.GetOrCreateCounter(name("write_errors_total")),
	}
}
