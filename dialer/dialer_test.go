package dialer

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

type recordingDialer struct {
	address string
}

func (d *recordingDialer) DialContext(_ context.Context, _, address string) (net.Conn, error) {
	d.address = address
	return nil, errors.New("recorded")
}

func TestPortMapDialer(t *testing.T) {
	d := func(next ContextDialer) *PortMapDialer {
		return NewPortMapDialer(map[string]string{"80": "8080", "443": ""}, next)
	}

	cases := []struct {
		address string
		want    string
	}{
		{"10.0.0.1:80", "10.0.0.1:8080"},
		{"10.0.0.1:443", "10.0.0.1:443"},
		{"10.0.0.1:22", "10.0.0.1:22"},
	}
	for _, c := range cases {
		rec := &recordingDialer{}
		d(rec).DialContext(context.Background(), "tcp", c.address)
		if rec.address != c.want {
			t.Errorf("%s: dialled %s, want %s", c.address, rec.address, c.want)
		}
	}

	if _, err := d(&recordingDialer{}).DialContext(context.Background(), "tcp", "no-port"); err == nil {
		t.Error("expected an error for an address without port")
	}
}

func TestDeadlineDialerClosesSlowPeers(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		// never answer
		time.Sleep(2 * time.Second)
		conn.Close()
	}()

	d := NewDeadlineDialer(100*time.Millisecond, &net.Dialer{})
	conn, err := d.DialContext(context.Background(), "tcp", l.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	start := time.Now()
	_, err = io.ReadAll(conn)
	if err == nil {
		t.Fatal("expected the read to fail once the deadline passed")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("read was not cut short: %v", elapsed)
	}
}
