package dialer

import (
	"context"
	"net"
)

// PortMapDialer sends dials aimed at one port to another, leaving the host
// part alone. Ports missing from the map are dialled as requested.
type PortMapDialer struct {
	ports map[string]string
	next  ContextDialer
}

func NewPortMapDialer(ports map[string]string, next ContextDialer) *PortMapDialer {
	return &PortMapDialer{
		ports: ports,
		next:  next,
	}
}

func (d *PortMapDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}

	if mapped, ok := d.ports[port]; ok && mapped != "" {
		port = mapped
	}

	return d.next.DialContext(ctx, network, net.JoinHostPort(host, port))
}
