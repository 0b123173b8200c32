package main

import (
	"github.com/mysteriumnetwork/hostwall/config"
	"github.com/mysteriumnetwork/hostwall/resolver"
	"github.com/mysteriumnetwork/hostwall/source"
)

const resolvConf = "/etc/resolv.conf"

// webSources are paced by -rate-every.
var webSources = []string{"crtsh", "bing-api", "bing-web", "passive-dns", "viewdns"}

type resolvers struct {
	lookup   resolver.RecordResolver
	transfer source.Transferer
}

func newResolvers(cfg *config.Config) (*resolvers, error) {
	if cfg.Server != "" {
		r := resolver.NewDNSResolver(cfg.Server, resolver.DefaultTimeout)
		return &resolvers{lookup: r, transfer: r}, nil
	}

	res := &resolvers{lookup: resolver.NewNetResolver("", resolver.DefaultTimeout)}
	if cfg.Enabled("axfr") {
		server, err := resolver.SystemServer(resolvConf)
		if err != nil {
			return nil, err
		}
		res.transfer = resolver.NewDNSResolver(server, resolver.DefaultTimeout)
	}
	return res, nil
}

func buildSources(cfg *config.Config, r *resolvers) []source.Source {
	var sources []source.Source
	for _, tag := range config.Techniques {
		if !cfg.Enabled(tag) {
			continue
		}
		switch tag {
		case "dictionary":
			sources = append(sources, source.NewDictionary(r.lookup))
		case "reverse":
			sources = append(sources, source.NewReverse(r.lookup))
		case "certificate":
			sources = append(sources, source.NewCertificate(cfg.TLSTimeout))
		case "crtsh":
			sources = append(sources, source.NewCrtSh(r.lookup, cfg.HTTPTimeout))
		case "bing-api":
			sources = append(sources, source.NewBingAPI(cfg.BingKey, cfg.HTTPTimeout))
		case "bing-web":
			sources = append(sources, source.NewBingWeb(cfg.HTTPTimeout))
		case "passive-dns":
			sources = append(sources, source.NewPassiveDNS(cfg.HTTPTimeout))
		case "viewdns":
			sources = append(sources, source.NewViewDNS(cfg.HTTPTimeout))
		case "headers":
			sources = append(sources, source.NewHeaders(cfg.HeadersTimeout).SetPorts(cfg.HeadersHTTPPort, cfg.HeadersHTTPSPort))
		case "srv":
			sources = append(sources, source.NewSRV(r.lookup))
		case "ns":
			sources = append(sources, source.NewNS(r.lookup))
		case "mx":
			sources = append(sources, source.NewMX(r.lookup))
		case "axfr":
			sources = append(sources, source.NewAXFR(r.lookup, r.transfer))
		case "cloudflare":
			sources = append(sources, source.NewCloudflare(cfg.CFAPIToken, r.lookup))
		}
	}
	return sources
}
