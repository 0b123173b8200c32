package source

import (
	"context"
	"fmt"

	"github.com/miekg/dns"

	"github.com/mysteriumnetwork/hostwall/record"
	"github.com/mysteriumnetwork/hostwall/resolver"
	"github.com/mysteriumnetwork/hostwall/target"
)

// Transferer requests zone transfers.
type Transferer interface {
	Transfer(ctx context.Context, zone, server string) ([]dns.RR, error)
}

// AXFR attempts a zone transfer of the target domain from each of its
// nameservers.
type AXFR struct {
	resolver resolver.RecordResolver
	transfer Transferer
}

func NewAXFR(r resolver.RecordResolver, t Transferer) *AXFR {
	return &AXFR{
		resolver: r,
		transfer: t,
	}
}

func (s *AXFR) Tag() string {
	return "axfr"
}

func (s *AXFR) Plan(ctx context.Context, set *target.Set) (*Job, error) {
	if err := requireDomain(s.Tag(), set); err != nil {
		return nil, err
	}
	servers, err := s.resolver.LookupNS(ctx, set.Domain)
	if err != nil {
		return nil, fmt.Errorf("unable to find nameservers of %s: %w", set.Domain, err)
	}
	return &Job{
		Units: servers,
		Lookup: func(ctx context.Context, server string) ([]record.Record, error) {
			return s.lookup(ctx, set.Domain, server)
		},
	}, nil
}

func (s *AXFR) lookup(ctx context.Context, zone, server string) ([]record.Record, error) {
	rrs, err := s.transfer.Transfer(ctx, zone, server)
	if err != nil {
		return nil, err
	}

	c := newCollector(s.Tag())
	for _, rr := range rrs {
		switch v := rr.(type) {
		case *dns.A:
			c.add(v.A.String(), v.Hdr.Name)
		case *dns.CNAME:
			addrs, err := s.resolver.LookupHost(ctx, v.Target)
			if err != nil || len(addrs) == 0 {
				continue
			}
			c.add(addrs[0], v.Hdr.Name)
		case *dns.NS:
			resolveInto(ctx, s.resolver, c, s.Tag(), v.Ns)
		case *dns.SRV:
			resolveInto(ctx, s.resolver, c, s.Tag(), v.Target)
		}
	}
	return c.result(), nil
}
