package resolver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

const maxCNAMEHops = 10

// DNSResolver talks DNS directly to a single server.
type DNSResolver struct {
	server string
	client *dns.Client
}

// NewDNSResolver creates a resolver querying server. Port 53 is assumed
// when server carries no port.
func NewDNSResolver(server string, timeout time.Duration) *DNSResolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &DNSResolver{
		server: withPort(server),
		client: &dns.Client{
			Timeout: timeout,
		},
	}
}

func withPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, "53")
}

func (r *DNSResolver) exchange(ctx context.Context, name string, qtype uint16) (*dns.Msg, error) {
	m := &dns.Msg{}
	m.SetQuestion(dns.Fqdn(name), qtype)

	in, _, err := r.client.ExchangeContext(ctx, m, r.server)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", dns.TypeToString[qtype], name, err)
	}
	if in.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("%s %s: %s", dns.TypeToString[qtype], name, dns.RcodeToString[in.Rcode])
	}
	return in, nil
}

func (r *DNSResolver) LookupHost(ctx context.Context, name string) ([]string, error) {
	current := name
	for hop := 0; hop <= maxCNAMEHops; hop++ {
		in, err := r.exchange(ctx, current, dns.TypeA)
		if err != nil {
			return nil, err
		}

		var (
			addrs []string
			cname string
		)
		for _, rr := range in.Answer {
			switch v := rr.(type) {
			case *dns.A:
				addrs = append(addrs, v.A.String())
			case *dns.CNAME:
				cname = v.Target
			}
		}
		if len(addrs) > 0 {
			return addrs, nil
		}
		if cname == "" {
			return nil, fmt.Errorf("A %s: %w", name, ErrNoAnswer)
		}
		current = cname
	}
	return nil, fmt.Errorf("A %s: CNAME chain longer than %d", name, maxCNAMEHops)
}

func (r *DNSResolver) LookupAddr(ctx context.Context, ip string) ([]string, error) {
	arpa, err := dns.ReverseAddr(ip)
	if err != nil {
		return nil, err
	}
	in, err := r.exchange(ctx, arpa, dns.TypePTR)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, rr := range in.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			names = append(names, ptr.Ptr)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("PTR %s: %w", ip, ErrNoAnswer)
	}
	return trimDots(names), nil
}

func (r *DNSResolver) LookupSRV(ctx context.Context, name string) ([]string, error) {
	return r.targets(ctx, name, dns.TypeSRV, func(rr dns.RR) string {
		if v, ok := rr.(*dns.SRV); ok {
			return v.Target
		}
		return ""
	})
}

func (r *DNSResolver) LookupNS(ctx context.Context, domain string) ([]string, error) {
	return r.targets(ctx, domain, dns.TypeNS, func(rr dns.RR) string {
		if v, ok := rr.(*dns.NS); ok {
			return v.Ns
		}
		return ""
	})
}

func (r *DNSResolver) LookupMX(ctx context.Context, domain string) ([]string, error) {
	return r.targets(ctx, domain, dns.TypeMX, func(rr dns.RR) string {
		if v, ok := rr.(*dns.MX); ok {
			return v.Mx
		}
		return ""
	})
}

func (r *DNSResolver) targets(ctx context.Context, name string, qtype uint16, pick func(dns.RR) string) ([]string, error) {
	in, err := r.exchange(ctx, name, qtype)
	if err != nil {
		return nil, err
	}
	var res []string
	for _, rr := range in.Answer {
		if t := pick(rr); t != "" {
			res = append(res, t)
		}
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("%s %s: %w", dns.TypeToString[qtype], name, ErrNoAnswer)
	}
	return trimDots(res), nil
}

// Transfer requests a full zone transfer of zone from server.
func (r *DNSResolver) Transfer(ctx context.Context, zone, server string) ([]dns.RR, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tr := &dns.Transfer{
		DialTimeout:  r.client.Timeout,
		ReadTimeout:  r.client.Timeout,
		WriteTimeout: r.client.Timeout,
	}
	m := &dns.Msg{}
	m.SetAxfr(dns.Fqdn(zone))

	envelopes, err := tr.In(m, withPort(server))
	if err != nil {
		return nil, fmt.Errorf("AXFR %s@%s: %w", zone, server, err)
	}

	var rrs []dns.RR
	for env := range envelopes {
		if env.Error != nil {
			return nil, fmt.Errorf("AXFR %s@%s: %w", zone, server, env.Error)
		}
		rrs = append(rrs, env.RR...)
	}
	return rrs, nil
}

// SystemServer returns the first nameserver configured in a resolv.conf
// style file.
func SystemServer(path string) (string, error) {
	conf, err := dns.ClientConfigFromFile(path)
	if err != nil {
		return "", fmt.Errorf("unable to read %s: %w", path, err)
	}
	if len(conf.Servers) == 0 {
		return "", fmt.Errorf("no nameservers in %s", path)
	}
	return net.JoinHostPort(conf.Servers[0], conf.Port), nil
}
