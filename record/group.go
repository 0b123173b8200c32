package record

import (
	"sort"
)

// Grouped maps an ip address to the unique names seen for it.
type Grouped map[string][]string

// Group builds the grouped view of records. Records lacking an ip or a name
// are skipped. Names within a group are sorted, so the view does not depend
// on the order of the input.
func Group(records []Record) Grouped {
	sets := make(map[string]map[string]struct{})
	for _, rec := range records {
		if rec.IP == "" || rec.Name == "" {
			continue
		}
		set, ok := sets[rec.IP]
		if !ok {
			set = make(map[string]struct{})
			sets[rec.IP] = set
		}
		set[rec.Name] = struct{}{}
	}

	res := make(Grouped, len(sets))
	for ip, set := range sets {
		names := make([]string, 0, len(set))
		for name := range set {
			names = append(names, name)
		}
		sort.Strings(names)
		res[ip] = names
	}
	return res
}

// IPs returns the addresses of the view in ascending order.
func (g Grouped) IPs() []string {
	ips := make([]string, 0, len(g))
	for ip := range g {
		ips = append(ips, ip)
	}
	sort.Slice(ips, func(i, j int) bool {
		if lessIP(ips[i], ips[j]) != lessIP(ips[j], ips[i]) {
			return lessIP(ips[i], ips[j])
		}
		return ips[i] < ips[j]
	})
	return ips
}
