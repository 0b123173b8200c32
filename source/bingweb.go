package source

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mysteriumnetwork/hostwall/record"
	"github.com/mysteriumnetwork/hostwall/target"
)

const (
	BingWebURL      = "https://www.bing.com/search"
	bingWebPageSize = 10
)

// BingWeb scrapes Bing result pages for the "ip:" operator.
type BingWeb struct {
	baseURL  string
	maxPages int
	client   *http.Client
}

func NewBingWeb(timeout time.Duration) *BingWeb {
	return &BingWeb{
		baseURL:  BingWebURL,
		maxPages: DefaultMaxPages,
		client:   NewHTTPClient(timeout),
	}
}

func (s *BingWeb) SetBaseURL(u string) *BingWeb {
	s.baseURL = u
	return s
}

func (s *BingWeb) SetMaxPages(n int) *BingWeb {
	if n > 0 {
		s.maxPages = n
	}
	return s
}

func (s *BingWeb) Tag() string {
	return "bing-web"
}

func (s *BingWeb) Plan(_ context.Context, set *target.Set) (*Job, error) {
	if err := requireIPs(s.Tag(), set); err != nil {
		return nil, err
	}
	return &Job{
		Units:  set.IPs,
		Lookup: s.lookup,
	}, nil
}

func (s *BingWeb) lookup(ctx context.Context, ip string) ([]record.Record, error) {
	c := newCollector(s.Tag())
	for page := 0; page < s.maxPages; page++ {
		params := url.Values{
			"q":     {"ip:" + ip},
			"first": {strconv.Itoa(page*bingWebPageSize + 1)},
		}
		doc, err := fetchDocument(ctx, s.client, s.baseURL+"?"+params.Encode())
		if err != nil {
			return c.result(), err
		}

		cites := doc.Find("cite")
		cites.Each(func(_ int, sel *goquery.Selection) {
			c.add(ip, hostOf(sel.Text()))
		})
		if cites.Length() < bingWebPageSize {
			break
		}
	}
	return c.result(), nil
}
