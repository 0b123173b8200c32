package dialer

import (
	"context"
	"net"
	"time"
)

// DeadlineDialer bounds the whole life of every connection it makes. Once
// the timeout has passed, reads and writes fail and the caller closes the
// connection, no matter what stage the exchange is in.
type DeadlineDialer struct {
	timeout time.Duration
	next    ContextDialer
}

func NewDeadlineDialer(timeout time.Duration, next ContextDialer) *DeadlineDialer {
	return &DeadlineDialer{
		timeout: timeout,
		next:    next,
	}
}

func (d *DeadlineDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	deadline := time.Now().Add(d.timeout)

	ctx, cl := context.WithDeadline(ctx, deadline)
	defer cl()

	conn, err := d.next.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}

	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
