package common

import (
	"bytes"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
	"time"
)

func TestClientConfig(t *testing.T) {
	c := DefaultClientConfig()
	require.Equal(t, "127.0.0.1:9000", c.Address())

	c.Host = "::1"
	require.Equal(t, "[::1]:9000", c.Address())

	c.HeartbeatInterval = 0
	c.ReadTimeout = 30 * time.Second
	out := c.String()
	require.Contains(t, out, "[::1]:9000")
	require.Regexp(t, `Interval\s+: off`, out)
	require.Regexp(t, `Read Timeout\s+: 30s`, out)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logger.LogLevel
		wantErr bool
	}{
		{in: "debug", want: logger.DEBUG},
		{in: "INFO", want: logger.INFO},
		{in: "", want: logger.INFO},
		{in: "warn", want: logger.WARNING},
		{in: "warning", want: logger.WARNING},
		{in: "error", want: logger.ERROR},
		{in: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestLineLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newLineLogger("transport/rpc", &buf)

	l.Debugf("hidden %d", 1)
	l.Infof("connected to %s", "127.0.0.1:9000")
	require.NotContains(t, buf.String(), "hidden")
	require.Regexp(t, `INFO  \| transport/rpc +\| connected to 127\.0\.0\.1:9000\n$`, buf.String())

	buf.Reset()
	l.SetLevel(logger.ERROR)
	l.Warningf("dropped")
	l.Errorf("failed")
	require.Equal(t, 1, strings.Count(buf.String(), "\n"))
	require.Contains(t, buf.String(), "ERROR | transport/rpc")

	require.PanicsWithValue(t, "broken 7", func() { l.Panicf("broken %d", 7) })
}
