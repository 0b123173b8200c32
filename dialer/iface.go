package dialer

import (
	"context"
	"net"
)

// ContextDialer is satisfied by *net.Dialer and by every dialer here, so
// they can be stacked.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}
