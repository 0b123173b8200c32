package source

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/mysteriumnetwork/hostwall/dialer"
	"github.com/mysteriumnetwork/hostwall/record"
	"github.com/mysteriumnetwork/hostwall/target"
)

const DefaultTLSTimeout = 600 * time.Millisecond

// Certificate reads names from the certificate presented on a TLS port.
type Certificate struct {
	port    string
	timeout time.Duration
	dialer  dialer.ContextDialer
}

func NewCertificate(timeout time.Duration) *Certificate {
	if timeout <= 0 {
		timeout = DefaultTLSTimeout
	}
	return &Certificate{
		port:    "443",
		timeout: timeout,
		dialer:  dialer.NewDeadlineDialer(timeout, &net.Dialer{}),
	}
}

// SetPort changes the port handshakes are made on.
func (s *Certificate) SetPort(port string) *Certificate {
	s.port = port
	return s
}

func (s *Certificate) Tag() string {
	return "certificate"
}

func (s *Certificate) Plan(_ context.Context, set *target.Set) (*Job, error) {
	if err := requireIPs(s.Tag(), set); err != nil {
		return nil, err
	}
	return &Job{
		Units:  set.IPs,
		Lookup: s.lookup,
	}, nil
}

func (s *Certificate) lookup(ctx context.Context, ip string) ([]record.Record, error) {
	ctx, cl := context.WithTimeout(ctx, s.timeout)
	defer cl()

	conn, err := s.dialer.DialContext(ctx, "tcp", net.JoinHostPort(ip, s.port))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var leaf *x509.Certificate
	tlsConn := tls.Client(conn, &tls.Config{
		InsecureSkipVerify: true,
		VerifyConnection: func(cs tls.ConnectionState) error {
			if len(cs.PeerCertificates) == 0 {
				return errors.New("no peer certificate")
			}
			leaf = cs.PeerCertificates[0]
			return nil
		},
	})
	defer tlsConn.Close()

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, fmt.Errorf("handshake failed: %w", err)
	}

	c := newCollector(s.Tag())
	c.add(ip, leaf.Subject.CommonName)
	for _, name := range leaf.DNSNames {
		c.add(ip, name)
	}
	return c.result(), nil
}
