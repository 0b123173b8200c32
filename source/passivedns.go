package source

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mysteriumnetwork/hostwall/record"
	"github.com/mysteriumnetwork/hostwall/target"
)

const PassiveDNSURL = "https://rapiddns.io/sameip"

// PassiveDNS reads a passive DNS service listing every name seen in a /24.
// One page covers all target addresses of a prefix.
type PassiveDNS struct {
	baseURL string
	client  *http.Client
}

func NewPassiveDNS(timeout time.Duration) *PassiveDNS {
	return &PassiveDNS{
		baseURL: PassiveDNSURL,
		client:  NewHTTPClient(timeout),
	}
}

func (s *PassiveDNS) SetBaseURL(u string) *PassiveDNS {
	s.baseURL = u
	return s
}

func (s *PassiveDNS) Tag() string {
	return "passive-dns"
}

func (s *PassiveDNS) Plan(_ context.Context, set *target.Set) (*Job, error) {
	if err := requireIPs(s.Tag(), set); err != nil {
		return nil, err
	}
	return &Job{
		Units: set.Prefixes(),
		Lookup: func(ctx context.Context, prefix string) ([]record.Record, error) {
			return s.lookup(ctx, set, prefix)
		},
	}, nil
}

func (s *PassiveDNS) lookup(ctx context.Context, set *target.Set, prefix string) ([]record.Record, error) {
	doc, err := fetchDocument(ctx, s.client, s.baseURL+"/"+prefix+".0/24?full=1")
	if err != nil {
		return nil, err
	}

	c := newCollector(s.Tag())
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		var ip, name string
		row.Find("td").Each(func(_ int, cell *goquery.Selection) {
			text := strings.TrimSpace(cell.Text())
			switch {
			case ip == "" && net.ParseIP(text).To4() != nil:
				ip = text
			case name == "" && record.IsNameLike(record.NormalizeName(text)):
				name = text
			}
		})
		if ip != "" && set.Contains(ip) {
			c.add(ip, name)
		}
	})
	return c.result(), nil
}
