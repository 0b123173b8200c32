package source

import (
	"context"

	"github.com/mysteriumnetwork/hostwall/record"
	"github.com/mysteriumnetwork/hostwall/resolver"
	"github.com/mysteriumnetwork/hostwall/target"
)

// SRVPrefixes are the service labels probed by the srv technique.
var SRVPrefixes = []string{
	"_gc._tcp", "_kerberos._tcp", "_kerberos._udp", "_ldap._tcp",
	"_test._tcp", "_sips._tcp", "_sip._udp", "_sip._tcp", "_aix._tcp",
	"_finger._tcp", "_ftp._tcp", "_http._tcp", "_nntp._tcp",
	"_telnet._tcp", "_whois._tcp", "_h323cs._tcp", "_h323cs._udp",
	"_h323be._tcp", "_h323be._udp", "_h323ls._tcp", "_https._tcp",
	"_h323ls._udp", "_sipinternal._tcp", "_sipinternaltls._tcp",
	"_sip._tls", "_sipfederationtls._tcp", "_jabber._tcp",
	"_xmpp-server._tcp", "_xmpp-client._tcp", "_imap._tcp",
	"_certificates._tcp", "_crls._tcp", "_pgpkeys._tcp",
	"_pgprevokations._tcp", "_cmp._tcp", "_svcp._tcp", "_crl._tcp",
	"_ocsp._tcp", "_PKIXREP._tcp", "_smtp._tcp", "_hkp._tcp",
	"_hkps._tcp", "_jabber._udp", "_xmpp-server._udp", "_xmpp-client._udp",
	"_jabber-client._tcp", "_jabber-client._udp", "_kpasswd._tcp", "_kpasswd._udp",
}

// HostRecords resolves the hosts named by SRV, NS or MX records of the
// target domain.
type HostRecords struct {
	tag      string
	resolver resolver.RecordResolver
	units    func(domain string) []string
	lookup   func(ctx context.Context, name string) ([]string, error)
}

func NewSRV(r resolver.RecordResolver) *HostRecords {
	return &HostRecords{
		tag:      "srv",
		resolver: r,
		units: func(domain string) []string {
			units := make([]string, 0, len(SRVPrefixes))
			for _, prefix := range SRVPrefixes {
				units = append(units, prefix+"."+domain)
			}
			return units
		},
		lookup: r.LookupSRV,
	}
}

func NewNS(r resolver.RecordResolver) *HostRecords {
	return &HostRecords{
		tag:      "ns",
		resolver: r,
		units:    single,
		lookup:   r.LookupNS,
	}
}

func NewMX(r resolver.RecordResolver) *HostRecords {
	return &HostRecords{
		tag:      "mx",
		resolver: r,
		units:    single,
		lookup:   r.LookupMX,
	}
}

func single(domain string) []string {
	return []string{domain}
}

func (s *HostRecords) Tag() string {
	return s.tag
}

func (s *HostRecords) Plan(_ context.Context, set *target.Set) (*Job, error) {
	if err := requireDomain(s.Tag(), set); err != nil {
		return nil, err
	}
	return &Job{
		Units: s.units(set.Domain),
		Lookup: func(ctx context.Context, name string) ([]record.Record, error) {
			hosts, err := s.lookup(ctx, name)
			if err != nil {
				return nil, err
			}
			c := newCollector(s.Tag())
			resolveInto(ctx, s.resolver, c, s.Tag(), hosts...)
			return c.result(), nil
		},
	}, nil
}

// resolveInto adds every address of each host to c. Hosts that do not
// resolve are skipped.
func resolveInto(ctx context.Context, r resolver.Resolver, c *collector, tag string, hosts ...string) {
	for _, host := range hosts {
		addrs, err := r.LookupHost(ctx, host)
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			c.addAs(tag, addr, host)
		}
	}
}
