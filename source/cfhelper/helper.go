package cfhelper

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudflare/cloudflare-go"
	"golang.org/x/net/idna"
)

var (
	ErrZoneNotFound  = errors.New("zone could not be found")
	ErrZoneAmbiguous = errors.New("ambiguous zone name")
)

// normalizeZoneName converts an IDN zone name from Punycode to its Unicode
// form, the way zones are listed by the API. Names that fail to convert are
// returned unchanged.
func normalizeZoneName(name string) string {
	if n, err := idna.ToUnicode(name); err == nil {
		return n
	}
	return name
}

// ZoneIDByName retrieves the ID of the zone called zoneName.
func ZoneIDByName(ctx context.Context, api *cloudflare.API, zoneName string) (string, error) {
	zoneName = normalizeZoneName(zoneName)
	res, err := api.ListZonesContext(ctx, cloudflare.WithZoneFilters(zoneName, "", ""))
	if err != nil {
		return "", fmt.Errorf("ListZonesContext command failed: %w", err)
	}

	switch len(res.Result) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrZoneNotFound, zoneName)
	case 1:
		return res.Result[0].ID, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrZoneAmbiguous, zoneName)
	}
}

// PoolIDs lists every pool a load balancer may send traffic to.
func PoolIDs(lb cloudflare.LoadBalancer) []string {
	pools := append([]string{}, lb.DefaultPools...)
	if lb.FallbackPool != "" {
		pools = append(pools, lb.FallbackPool)
	}
	for _, p := range lb.RegionPools {
		pools = append(pools, p...)
	}
	for _, p := range lb.PopPools {
		pools = append(pools, p...)
	}
	for _, p := range lb.CountryPools {
		pools = append(pools, p...)
	}
	return pools
}
