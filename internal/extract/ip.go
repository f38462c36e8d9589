// Package extract derives objects and facts from common indicator formats.
package extract

import (
	"net/netip"
	"strings"

	"github.com/Harshitk-cp/actgraph/internal/domain"
)

// IPObject returns the object type ("ipv4" or "ipv6") and the normalised
// address. IPv6 addresses are fully expanded.
func IPObject(addr string) (string, string, error) {
	ip, err := netip.ParseAddr(strings.TrimSpace(addr))
	if err != nil {
		return "", "", &domain.ValidationError{Field: "ip", Value: addr, Message: "invalid IP address"}
	}
	ip = ip.WithZone("")
	if ip.Is4() {
		return "ipv4", ip.String(), nil
	}
	return "ipv6", ip.StringExpanded(), nil
}
