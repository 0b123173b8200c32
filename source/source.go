// Package source holds the lookup techniques. Each technique turns a Target
// Set into a list of units of work and knows how to look up a single unit.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/mysteriumnetwork/hostwall/record"
	"github.com/mysteriumnetwork/hostwall/target"
)

var (
	// ErrConfiguration is returned by Plan when the technique cannot run
	// with the given configuration or Target Set.
	ErrConfiguration = errors.New("configuration error")
	// ErrWildcard is returned by Plan when a domain resolves any name.
	ErrWildcard = errors.New("wildcard domain")
	// ErrUnauthorized is returned by lookups when an upstream service
	// rejects the credentials. No further lookups of the technique make
	// sense after that.
	ErrUnauthorized = errors.New("upstream rejected credentials")
)

// LookupFunc looks up a single unit of work.
type LookupFunc func(ctx context.Context, unit string) ([]record.Record, error)

// Job is a planned run of a technique.
type Job struct {
	Units  []string
	Lookup LookupFunc
}

type Source interface {
	// Tag is a short name identifying the technique.
	Tag() string
	// Plan checks preconditions and builds the units of work for set.
	Plan(ctx context.Context, set *target.Set) (*Job, error)
}

const DefaultHTTPTimeout = 10 * time.Second

const (
	discardLimit int64 = 128 * 1024
	bodyLimit    int64 = 4 * 1024 * 1024
)

const userAgent = "Mozilla/5.0 (compatible; hostwall)"

// NewHTTPClient returns a pooled client suitable for scraping sources.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = timeout
	return client
}

// Does cleanup of HTTP response in order to make it reusable by keep-alive
// logic of HTTP client
func cleanupBody(body io.ReadCloser) {
	io.Copy(io.Discard, &io.LimitedReader{
		R: body,
		N: discardLimit,
	})
	body.Close()
}

// collector gathers records for a single lookup, dropping names that are
// not usable and repeated pairs.
type collector struct {
	source  string
	seen    map[record.Record]struct{}
	records []record.Record
}

func newCollector(source string) *collector {
	return &collector{
		source: source,
		seen:   make(map[record.Record]struct{}),
	}
}

func (c *collector) add(ip, name string) {
	c.addAs(c.source, ip, name)
}

func (c *collector) addAs(source, ip, name string) {
	name = record.NormalizeName(name)
	if ip == "" || !record.IsNameLike(name) {
		return
	}
	rec := record.Record{IP: ip, Name: name, Source: source}
	if _, ok := c.seen[rec]; ok {
		return
	}
	c.seen[rec] = struct{}{}
	c.records = append(c.records, rec)
}

func (c *collector) result() []record.Record {
	return c.records
}

func requireIPs(tag string, set *target.Set) error {
	if len(set.IPs) == 0 {
		return fmt.Errorf("%w: %s requires target addresses", ErrConfiguration, tag)
	}
	return nil
}

func requireDomain(tag string, set *target.Set) error {
	if set.Domain == "" {
		return fmt.Errorf("%w: %s requires a target domain", ErrConfiguration, tag)
	}
	return nil
}
