package source

import (
	"context"
	"fmt"

	"github.com/mysteriumnetwork/hostwall/record"
	"github.com/mysteriumnetwork/hostwall/resolver"
	"github.com/mysteriumnetwork/hostwall/target"
)

// WildcardLabel is resolved under the target domain before guessing names.
// A domain answering it answers anything.
const WildcardLabel = "youmustconstructadditionalpylons"

// Dictionary guesses subdomains of the target domain.
type Dictionary struct {
	resolver resolver.Resolver
}

func NewDictionary(r resolver.Resolver) *Dictionary {
	return &Dictionary{
		resolver: r,
	}
}

func (s *Dictionary) Tag() string {
	return "dictionary"
}

func (s *Dictionary) Plan(ctx context.Context, set *target.Set) (*Job, error) {
	if err := requireDomain(s.Tag(), set); err != nil {
		return nil, err
	}
	if len(set.Names) == 0 {
		return nil, fmt.Errorf("%w: %s requires name fragments", ErrConfiguration, s.Tag())
	}

	control := WildcardLabel + "." + set.Domain
	if addrs, err := s.resolver.LookupHost(ctx, control); err == nil && len(addrs) > 0 {
		return nil, fmt.Errorf("%w: %s resolves to %v", ErrWildcard, control, addrs)
	}

	units := make([]string, 0, len(set.Names))
	for _, name := range set.Names {
		units = append(units, name+"."+set.Domain)
	}

	return &Job{
		Units:  units,
		Lookup: s.lookup,
	}, nil
}

func (s *Dictionary) lookup(ctx context.Context, fqdn string) ([]record.Record, error) {
	addrs, err := s.resolver.LookupHost(ctx, fqdn)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, nil
	}
	c := newCollector(s.Tag())
	c.add(addrs[0], fqdn)
	return c.result(), nil
}
