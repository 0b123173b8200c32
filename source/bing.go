package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/mysteriumnetwork/hostwall/record"
	"github.com/mysteriumnetwork/hostwall/target"
)

const (
	BingAPIURL      = "https://api.bing.microsoft.com/v7.0/search"
	BingPageSize    = 50
	DefaultMaxPages = 10
)

type bingQuery struct {
	Query      string `url:"q"`
	Count      int    `url:"count"`
	Offset     int    `url:"offset"`
	SafeSearch string `url:"safeSearch"`
}

type bingResponse struct {
	WebPages struct {
		Value []struct {
			URL string `json:"url"`
		} `json:"value"`
	} `json:"webPages"`
}

// BingAPI searches the Bing Web Search API with the "ip:" operator.
type BingAPI struct {
	key      string
	baseURL  string
	maxPages int
	client   *retryablehttp.Client
}

func NewBingAPI(key string, timeout time.Duration) *BingAPI {
	return &BingAPI{
		key:      key,
		baseURL:  BingAPIURL,
		maxPages: DefaultMaxPages,
		client:   newRetryableClient(timeout),
	}
}

// newRetryableClient retries transport errors and 5xx answers a couple of
// times and hands the last response back instead of an error.
func newRetryableClient(timeout time.Duration) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.HTTPClient = NewHTTPClient(timeout)
	client.RetryMax = 2
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 3 * time.Second
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = nil
	return client
}

// SetBaseURL points the source at another endpoint.
func (s *BingAPI) SetBaseURL(u string) *BingAPI {
	s.baseURL = u
	return s
}

// SetMaxPages bounds paging through results of a single address.
func (s *BingAPI) SetMaxPages(n int) *BingAPI {
	if n > 0 {
		s.maxPages = n
	}
	return s
}

func (s *BingAPI) Tag() string {
	return "bing-api"
}

func (s *BingAPI) Plan(_ context.Context, set *target.Set) (*Job, error) {
	if s.key == "" {
		return nil, fmt.Errorf("%w: %s requires an API key", ErrConfiguration, s.Tag())
	}
	if err := requireIPs(s.Tag(), set); err != nil {
		return nil, err
	}
	return &Job{
		Units:  set.IPs,
		Lookup: s.lookup,
	}, nil
}

func (s *BingAPI) lookup(ctx context.Context, ip string) ([]record.Record, error) {
	c := newCollector(s.Tag())
	for page := 0; page < s.maxPages; page++ {
		urls, err := s.fetchPage(ctx, ip, page*BingPageSize)
		if err != nil {
			return c.result(), err
		}
		for _, u := range urls {
			c.add(ip, hostOf(u))
		}
		if len(urls) < BingPageSize {
			break
		}
	}
	return c.result(), nil
}

func (s *BingAPI) fetchPage(ctx context.Context, ip string, offset int) ([]string, error) {
	params, err := query.Values(bingQuery{
		Query:      "ip:" + ip,
		Count:      BingPageSize,
		Offset:     offset,
		SafeSearch: "Off",
	})
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequest(http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Ocp-Apim-Subscription-Key", s.key)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer cleanupBody(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s answered %s", ErrUnauthorized, s.Tag(), resp.Status)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%s: unexpected status %s", s.Tag(), resp.Status)
	}

	var msg bingResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, bodyLimit)).Decode(&msg); err != nil {
		return nil, fmt.Errorf("%s: bad response: %w", s.Tag(), err)
	}

	urls := make([]string, 0, len(msg.WebPages.Value))
	for _, v := range msg.WebPages.Value {
		urls = append(urls, v.URL)
	}
	return urls, nil
}
