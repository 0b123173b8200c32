package validator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/mysteriumnetwork/hostwall/queue"
	"github.com/mysteriumnetwork/hostwall/record"
	"github.com/mysteriumnetwork/hostwall/resolver"
	"github.com/mysteriumnetwork/hostwall/target"
)

// Policy decides which forward resolutions of a name confirm a record.
type Policy int

const (
	// Scoped keeps addresses that belong to the Target Set.
	Scoped = Policy(iota)
	// Claimed keeps only the address the record was found for.
	Claimed = Policy(iota)
	// AnyAddress keeps every address the name resolves to.
	AnyAddress = Policy(iota)
)

func (p Policy) String() string {
	switch p {
	case Scoped:
		return "scoped"
	case Claimed:
		return "claimed"
	case AnyAddress:
		return "any"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "scoped":
		return Scoped, nil
	case "claimed":
		return Claimed, nil
	case "any":
		return AnyAddress, nil
	default:
		return Scoped, fmt.Errorf("unknown fcrdns policy %q", s)
	}
}

// FCrDNS forward-resolves the name of every record and emits one record per
// confirmed address. Records whose name does not resolve are dropped.
type FCrDNS struct {
	resolver    resolver.Resolver
	concurrency int
	policy      Policy
	scope       *target.Set
	limiter     *rate.Limiter
	logger      logrus.FieldLogger
}

func NewFCrDNS(r resolver.Resolver, concurrency int) *FCrDNS {
	return &FCrDNS{
		resolver:    r,
		concurrency: concurrency,
		policy:      Scoped,
		logger:      logrus.StandardLogger(),
	}
}

// SetPolicy selects the confirmation policy. Scoped needs a scope with
// addresses and behaves like Claimed without one.
func (v *FCrDNS) SetPolicy(p Policy, scope *target.Set) *FCrDNS {
	v.policy = p
	v.scope = scope
	return v
}

func (v *FCrDNS) SetRateLimit(every time.Duration) *FCrDNS {
	if every > 0 {
		v.limiter = rate.NewLimiter(rate.Every(every), 1)
	}
	return v
}

func (v *FCrDNS) SetLogger(l logrus.FieldLogger) *FCrDNS {
	v.logger = l
	return v
}

func (v *FCrDNS) Validate(ctx context.Context, records []record.Record) ([]record.Record, error) {
	p := &pass{
		resolver: v.resolver,
		cache:    make(map[string]lookup),
	}
	accept := v.acceptor()

	q := queue.New[record.Record](v.concurrency).OnError(func(rec record.Record, err error) {
		v.logger.WithField("name", rec.Name).WithError(err).Debug("forward lookup failed")
	})
	if v.limiter != nil {
		q.WithLimiter(v.limiter)
	}

	return q.Run(ctx, record.Dedupe(records), func(ctx context.Context, rec record.Record) ([]record.Record, error) {
		addrs, err := p.resolve(ctx, rec.Name)
		if err != nil {
			return nil, err
		}
		var res []record.Record
		for _, addr := range addrs {
			if accept(rec, addr) {
				res = append(res, record.Record{IP: addr, Name: rec.Name, Source: rec.Source})
			}
		}
		return res, nil
	})
}

func (v *FCrDNS) acceptor() func(rec record.Record, addr string) bool {
	policy := v.policy
	if policy == Scoped && (v.scope == nil || len(v.scope.IPs) == 0) {
		policy = Claimed
	}

	switch policy {
	case AnyAddress:
		return func(record.Record, string) bool { return true }
	case Claimed:
		return func(rec record.Record, addr string) bool { return rec.IP == addr }
	default:
		scope := v.scope
		return func(_ record.Record, addr string) bool { return scope.Contains(addr) }
	}
}

// pass holds lookups made during one validation so every distinct name is
// resolved once, failures included.
type pass struct {
	resolver resolver.Resolver
	group    singleflight.Group
	mux      sync.RWMutex
	cache    map[string]lookup
}

type lookup struct {
	addrs []string
	err   error
}

func (p *pass) resolve(ctx context.Context, name string) ([]string, error) {
	p.mux.RLock()
	l, ok := p.cache[name]
	p.mux.RUnlock()
	if ok {
		return l.addrs, l.err
	}

	res, _, _ := p.group.Do(name, func() (interface{}, error) {
		addrs, err := p.resolver.LookupHost(ctx, name)
		l := lookup{addrs: addrs, err: err}
		p.mux.Lock()
		defer p.mux.Unlock()
		p.cache[name] = l
		return l, nil
	})
	l = res.(lookup)
	return l.addrs, l.err
}

// RunFCrDNS validates records with the Scoped policy.
func RunFCrDNS(ctx context.Context, records []record.Record, r resolver.Resolver, scope *target.Set, concurrency int) ([]record.Record, error) {
	return NewFCrDNS(r, concurrency).SetPolicy(Scoped, scope).Validate(ctx, records)
}
