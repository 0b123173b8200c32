package source

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/mysteriumnetwork/hostwall/dialer"
	"github.com/mysteriumnetwork/hostwall/record"
	"github.com/mysteriumnetwork/hostwall/target"
)

const DefaultHeadersTimeout = 2 * time.Second

const bigIPCookiePrefix = "BIGipServer"

var bigIPName = regexp.MustCompile(`[a-z][a-z\-]*\.[\.\-a-z]*`)

// Headers requests the bare address over http and https and reads names
// leaked by redirects and load balancer cookies.
type Headers struct {
	timeout   time.Duration
	ports     map[string]string
	transport *http.Transport
}

func NewHeaders(timeout time.Duration) *Headers {
	if timeout <= 0 {
		timeout = DefaultHeadersTimeout
	}
	s := &Headers{
		timeout: timeout,
		ports:   make(map[string]string),
	}
	dial := dialer.NewDeadlineDialer(timeout, dialer.NewPortMapDialer(s.ports, &net.Dialer{}))
	s.transport = &http.Transport{
		DialContext:         dial.DialContext,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
		TLSHandshakeTimeout: timeout,
		DisableKeepAlives:   true,
	}
	return s
}

// SetPorts makes requests reach other ports than 80 and 443. Empty values
// leave the default port in place. Must be called before running.
func (s *Headers) SetPorts(httpPort, httpsPort string) *Headers {
	s.ports["80"] = httpPort
	s.ports["443"] = httpsPort
	return s
}

func (s *Headers) Tag() string {
	return "headers"
}

func (s *Headers) Plan(_ context.Context, set *target.Set) (*Job, error) {
	if err := requireIPs(s.Tag(), set); err != nil {
		return nil, err
	}
	return &Job{
		Units:  set.IPs,
		Lookup: s.lookup,
	}, nil
}

func (s *Headers) lookup(ctx context.Context, ip string) ([]record.Record, error) {
	c := newCollector(s.Tag())
	var errs *multierror.Error
	for _, scheme := range []string{"http", "https"} {
		if err := s.fetch(ctx, c, scheme, ip); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if errs != nil && errs.Len() == 2 {
		return nil, errs
	}
	return c.result(), nil
}

func (s *Headers) fetch(ctx context.Context, c *collector, scheme, ip string) error {
	ctx, cl := context.WithTimeout(ctx, s.timeout)
	defer cl()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, scheme+"://"+ip+"/", nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.transport.RoundTrip(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", scheme, err)
	}
	defer cleanupBody(resp.Body)

	if loc := resp.Header.Get("Location"); loc != "" {
		if u, err := url.Parse(loc); err == nil {
			c.addAs(scheme+"-location", ip, u.Hostname())
		}
	}

	for _, cookie := range resp.Cookies() {
		if !strings.HasPrefix(cookie.Name, bigIPCookiePrefix) {
			continue
		}
		pool := strings.ToLower(strings.TrimPrefix(cookie.Name, bigIPCookiePrefix))
		if name := bigIPName.FindString(pool); name != "" {
			c.addAs(scheme+"-bigip", ip, name)
		}
	}
	return nil
}
