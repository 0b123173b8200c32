package source

import (
	"context"

	"github.com/mysteriumnetwork/hostwall/record"
	"github.com/mysteriumnetwork/hostwall/resolver"
	"github.com/mysteriumnetwork/hostwall/target"
)

// Reverse looks up PTR records of every address.
type Reverse struct {
	resolver resolver.Resolver
}

func NewReverse(r resolver.Resolver) *Reverse {
	return &Reverse{
		resolver: r,
	}
}

func (s *Reverse) Tag() string {
	return "reverse"
}

func (s *Reverse) Plan(_ context.Context, set *target.Set) (*Job, error) {
	if err := requireIPs(s.Tag(), set); err != nil {
		return nil, err
	}
	return &Job{
		Units:  set.IPs,
		Lookup: s.lookup,
	}, nil
}

func (s *Reverse) lookup(ctx context.Context, ip string) ([]record.Record, error) {
	names, err := s.resolver.LookupAddr(ctx, ip)
	if err != nil {
		return nil, err
	}
	c := newCollector(s.Tag())
	for _, name := range names {
		c.add(ip, name)
	}
	return c.result(), nil
}
