package source

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mysteriumnetwork/hostwall/record"
	"github.com/mysteriumnetwork/hostwall/target"
)

const ViewDNSURL = "https://viewdns.info/reverseip/"

// ViewDNS scrapes the reverse IP table of viewdns.info.
type ViewDNS struct {
	baseURL string
	client  *http.Client
}

func NewViewDNS(timeout time.Duration) *ViewDNS {
	return &ViewDNS{
		baseURL: ViewDNSURL,
		client:  NewHTTPClient(timeout),
	}
}

func (s *ViewDNS) SetBaseURL(u string) *ViewDNS {
	s.baseURL = u
	return s
}

func (s *ViewDNS) Tag() string {
	return "viewdns"
}

func (s *ViewDNS) Plan(_ context.Context, set *target.Set) (*Job, error) {
	if err := requireIPs(s.Tag(), set); err != nil {
		return nil, err
	}
	return &Job{
		Units:  set.IPs,
		Lookup: s.lookup,
	}, nil
}

func (s *ViewDNS) lookup(ctx context.Context, ip string) ([]record.Record, error) {
	params := url.Values{
		"host": {ip},
		"t":    {"1"},
	}
	doc, err := fetchDocument(ctx, s.client, s.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	c := newCollector(s.Tag())
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		name := row.ChildrenFiltered("td").First().Text()
		// skips the heading row and the layout tables around the results
		if strings.Contains(name, ".") {
			c.add(ip, name)
		}
	})
	return c.result(), nil
}
