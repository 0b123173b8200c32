package record

import (
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// NormalizeName brings a hostname found in the wild to a canonical form.
// IDNs are converted to their ASCII form; conversion errors are discarded
// and the lower-cased name is returned as is.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, ".")
	name = strings.TrimPrefix(name, "*.")
	name = strings.ToLower(name)
	if n, err := idna.ToASCII(name); err == nil {
		return n
	}
	return name
}

// IsNameLike reports whether name can be a hostname rather than a bare address.
func IsNameLike(name string) bool {
	if name == "" || net.ParseIP(name) != nil || strings.ContainsAny(name, " \t\r\n/") {
		return false
	}
	for _, c := range name {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			return true
		}
	}
	return false
}
