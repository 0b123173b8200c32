package resolver

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

const DefaultTimeout = 5 * time.Second

// NetResolver resolves through the Go resolver, either against the system
// configuration or pinned to a single server.
type NetResolver struct {
	resolver *net.Resolver
	timeout  time.Duration
}

// NewNetResolver returns a resolver using server ("host:port") for every
// query. An empty server keeps the system configuration.
func NewNetResolver(server string, timeout time.Duration) *NetResolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r := &net.Resolver{
		PreferGo:     true,
		StrictErrors: false,
	}
	if server != "" {
		r.Dial = func(ctx context.Context, network, _ string) (net.Conn, error) {
			d := net.Dialer{}
			return d.DialContext(ctx, network, server)
		}
	}
	return &NetResolver{
		resolver: r,
		timeout:  timeout,
	}
}

func (r *NetResolver) LookupHost(ctx context.Context, name string) ([]string, error) {
	ctx, cl := context.WithTimeout(ctx, r.timeout)
	defer cl()

	ips, err := r.resolver.LookupIP(ctx, "ip4", name)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoAnswer)
	}
	res := make([]string, 0, len(ips))
	for _, ip := range ips {
		res = append(res, ip.String())
	}
	return res, nil
}

func (r *NetResolver) LookupAddr(ctx context.Context, ip string) ([]string, error) {
	ctx, cl := context.WithTimeout(ctx, r.timeout)
	defer cl()

	names, err := r.resolver.LookupAddr(ctx, ip)
	if err != nil {
		return nil, err
	}
	return trimDots(names), nil
}

func (r *NetResolver) LookupSRV(ctx context.Context, name string) ([]string, error) {
	ctx, cl := context.WithTimeout(ctx, r.timeout)
	defer cl()

	_, srvs, err := r.resolver.LookupSRV(ctx, "", "", name)
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, len(srvs))
	for _, srv := range srvs {
		res = append(res, srv.Target)
	}
	return trimDots(res), nil
}

func (r *NetResolver) LookupNS(ctx context.Context, domain string) ([]string, error) {
	ctx, cl := context.WithTimeout(ctx, r.timeout)
	defer cl()

	nss, err := r.resolver.LookupNS(ctx, domain)
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, len(nss))
	for _, ns := range nss {
		res = append(res, ns.Host)
	}
	return trimDots(res), nil
}

func (r *NetResolver) LookupMX(ctx context.Context, domain string) ([]string, error) {
	ctx, cl := context.WithTimeout(ctx, r.timeout)
	defer cl()

	mxs, err := r.resolver.LookupMX(ctx, domain)
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, len(mxs))
	for _, mx := range mxs {
		res = append(res, mx.Host)
	}
	return trimDots(res), nil
}

func trimDots(names []string) []string {
	for i, name := range names {
		names[i] = strings.TrimSuffix(name, ".")
	}
	return names
}
