package source

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/cloudflare/cloudflare-go"

	"github.com/mysteriumnetwork/hostwall/record"
	"github.com/mysteriumnetwork/hostwall/resolver"
	"github.com/mysteriumnetwork/hostwall/source/cfhelper"
	"github.com/mysteriumnetwork/hostwall/target"
)

const (
	MaxRetries        = 3
	MinRetryDelaySecs = 1
	MaxRetryDelaySecs = 10
)

// Cloudflare lists origins of a zone hosted on Cloudflare: A records, CNAME
// targets and load balancer pool members.
type Cloudflare struct {
	token    string
	opts     []cloudflare.Option
	resolver resolver.Resolver

	poolAddresses map[string][]string
	paMux         sync.RWMutex
}

func NewCloudflare(apiToken string, r resolver.Resolver, opts ...cloudflare.Option) *Cloudflare {
	return &Cloudflare{
		token:         apiToken,
		opts:          opts,
		resolver:      r,
		poolAddresses: make(map[string][]string),
	}
}

func (s *Cloudflare) Tag() string {
	return "cloudflare"
}

func (s *Cloudflare) Plan(_ context.Context, set *target.Set) (*Job, error) {
	if s.token == "" {
		return nil, fmt.Errorf("%w: %s requires an API token", ErrConfiguration, s.Tag())
	}
	if err := requireDomain(s.Tag(), set); err != nil {
		return nil, err
	}

	opts := append([]cloudflare.Option{
		cloudflare.UsingRetryPolicy(MaxRetries, MinRetryDelaySecs, MaxRetryDelaySecs),
	}, s.opts...)
	api, err := cloudflare.NewWithAPIToken(s.token, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: can't instantiate Cloudflare API client: %v", ErrConfiguration, err)
	}

	return &Job{
		Units: []string{set.Domain},
		Lookup: func(ctx context.Context, zone string) ([]record.Record, error) {
			return s.lookup(ctx, api, zone)
		},
	}, nil
}

func (s *Cloudflare) lookup(ctx context.Context, api *cloudflare.API, zone string) ([]record.Record, error) {
	zoneID, err := cfhelper.ZoneIDByName(ctx, api, zone)
	if err != nil {
		return nil, fmt.Errorf("ZoneIDByName failed: %w", err)
	}

	recs, err := api.DNSRecords(ctx, zoneID, cloudflare.DNSRecord{})
	if err != nil {
		return nil, fmt.Errorf("DNSRecords failed: %w", err)
	}

	c := newCollector(s.Tag())
	for _, rec := range recs {
		switch rec.Type {
		case "A":
			c.add(rec.Content, rec.Name)
		case "CNAME":
			if s.resolver == nil {
				continue
			}
			addrs, err := s.resolver.LookupHost(ctx, rec.Content)
			if err != nil || len(addrs) == 0 {
				continue
			}
			c.add(addrs[0], rec.Name)
		}
	}

	lbs, err := api.ListLoadBalancers(ctx, zoneID)
	if err != nil {
		return c.result(), fmt.Errorf("ListLoadBalancers failed: %w", err)
	}

	for _, lb := range lbs {
		for _, pool := range cfhelper.PoolIDs(lb) {
			addresses, err := s.resolveLBPool(ctx, api, pool)
			if err != nil {
				return c.result(), fmt.Errorf("resolveLBPool failed: %w", err)
			}
			for _, addr := range addresses {
				if net.ParseIP(addr).To4() != nil {
					c.add(addr, lb.Name)
				} else if s.resolver != nil {
					resolveInto(ctx, s.resolver, c, s.Tag(), addr)
				}
			}
		}
	}

	return c.result(), nil
}

func (s *Cloudflare) resolveLBPool(ctx context.Context, api *cloudflare.API, poolID string) ([]string, error) {
	s.paMux.RLock()
	addresses, ok := s.poolAddresses[poolID]
	s.paMux.RUnlock()
	if ok {
		return addresses, nil
	}

	pool, err := api.LoadBalancerPoolDetails(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("LoadBalancerPoolDetails failed: %w", err)
	}
	for _, origin := range pool.Origins {
		addresses = append(addresses, origin.Address)
	}

	s.paMux.Lock()
	defer s.paMux.Unlock()
	s.poolAddresses[poolID] = addresses

	return addresses, nil
}
