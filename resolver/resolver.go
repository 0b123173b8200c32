// Package resolver provides the DNS lookups used by sources and by the
// FCrDNS validator.
package resolver

import (
	"context"
	"errors"
)

var ErrNoAnswer = errors.New("no answer")

type Resolver interface {
	// LookupHost returns IPv4 addresses of name, following CNAMEs.
	LookupHost(ctx context.Context, name string) ([]string, error)
	// LookupAddr returns names from the PTR records of ip.
	LookupAddr(ctx context.Context, ip string) ([]string, error)
}

// RecordResolver additionally resolves records pointing at other hosts.
type RecordResolver interface {
	Resolver
	LookupSRV(ctx context.Context, name string) ([]string, error)
	LookupNS(ctx context.Context, domain string) ([]string, error)
	LookupMX(ctx context.Context, domain string) ([]string, error)
}
