package unix

import (
	"context"
	"github.com/ValentinKolb/mcpc/rpc/common"
	"github.com/ValentinKolb/mcpc/rpc/transport"
	"github.com/ValentinKolb/mcpc/rpc/transport/base"
	"net"
)

// clientConnector implements the IClientConnector interface for Unix sockets
type clientConnector struct {
	dialer net.Dialer
}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "unix"
}

func (c *clientConnector) Endpoint(config common.ClientConfig) string {
	return config.SocketPath
}

func (c *clientConnector) Dial(ctx context.Context, config common.ClientConfig) (net.Conn, error) {
	return c.dialer.DialContext(ctx, "unix", config.SocketPath)
}

func (c *clientConnector) UpgradeConnection(net.Conn, common.ClientConfig) error {
	return nil
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewUnixClientTransport creates a new Unix client transport
func NewUnixClientTransport(config common.ClientConfig) transport.IRPCClientTransport {
	return base.NewBaseClientTransport(&clientConnector{}, config)
}
