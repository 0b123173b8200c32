package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/mysteriumnetwork/hostwall/queue"
	"github.com/mysteriumnetwork/hostwall/record"
	"github.com/mysteriumnetwork/hostwall/resolver"
	"github.com/mysteriumnetwork/hostwall/target"
)

const (
	CrtShURL = "https://crt.sh/"

	// DefaultCrtShConcurrency bounds forward lookups of names found in the
	// certificate logs of one domain.
	DefaultCrtShConcurrency = 10

	crtShBodyLimit = 8 * bodyLimit
)

type crtShQuery struct {
	Query  string `url:"q"`
	Output string `url:"output"`
}

type crtShEntry struct {
	CommonName string `json:"common_name"`
	NameValue  string `json:"name_value"`
}

// CrtSh reads names of the target domain from certificate transparency
// logs indexed by crt.sh and resolves them.
type CrtSh struct {
	baseURL     string
	concurrency int
	client      *retryablehttp.Client
	resolver    resolver.Resolver
}

func NewCrtSh(r resolver.Resolver, timeout time.Duration) *CrtSh {
	return &CrtSh{
		baseURL:     CrtShURL,
		concurrency: DefaultCrtShConcurrency,
		client:      newRetryableClient(timeout),
		resolver:    r,
	}
}

// SetBaseURL points the source at another endpoint.
func (s *CrtSh) SetBaseURL(u string) *CrtSh {
	s.baseURL = u
	return s
}

func (s *CrtSh) Tag() string {
	return "crtsh"
}

func (s *CrtSh) Plan(_ context.Context, set *target.Set) (*Job, error) {
	if err := requireDomain(s.Tag(), set); err != nil {
		return nil, err
	}
	return &Job{
		Units:  single(set.Domain),
		Lookup: s.lookup,
	}, nil
}

func (s *CrtSh) lookup(ctx context.Context, domain string) ([]record.Record, error) {
	names, err := s.fetchNames(ctx, domain)
	if err != nil {
		return nil, err
	}

	return queue.New[string](s.concurrency).Run(ctx, names, func(ctx context.Context, name string) ([]record.Record, error) {
		c := newCollector(s.Tag())
		resolveInto(ctx, s.resolver, c, s.Tag(), name)
		return c.result(), nil
	})
}

// fetchNames returns distinct names at or below domain, in the order the
// log listed them. Wildcard entries count for their parent name.
func (s *CrtSh) fetchNames(ctx context.Context, domain string) ([]string, error) {
	params, err := query.Values(crtShQuery{Query: "%." + domain, Output: "json"})
	if err != nil {
		return nil, err
	}
	req, err := retryablehttp.NewRequest(http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer cleanupBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %s", s.Tag(), resp.Status)
	}

	var entries []crtShEntry
	if err := json.NewDecoder(io.LimitReader(resp.Body, crtShBodyLimit)).Decode(&entries); err != nil {
		return nil, fmt.Errorf("%s: bad response: %w", s.Tag(), err)
	}

	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		for _, raw := range append(strings.Split(e.NameValue, "\n"), e.CommonName) {
			name := record.NormalizeName(raw)
			if seen[name] || !record.IsNameLike(name) || strings.Contains(name, "@") {
				continue
			}
			if name != domain && !strings.HasSuffix(name, "."+domain) {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	return names, nil
}
