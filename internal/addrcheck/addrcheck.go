// Package addrcheck validates the MAC and IPv4 addresses of static DHCP
// reservations before any remote server is contacted.
package addrcheck

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
)

const (
	// ErrInvalidFormat is returned when an address is syntactically wrong.
	ErrInvalidFormat errors.Error = "invalid format"

	// ErrDisallowedAddressClass is returned when an IPv4 address is valid but
	// can't be reserved for a DHCP client.
	ErrDisallowedAddressClass errors.Error = "disallowed address class"
)

// macGroups is the number of colon-separated octets in a MAC address.
const macGroups = 6

// ValidateMAC returns the canonical lowercase form of s if it's a MAC address
// of exactly six colon-separated two-digit hexadecimal groups.
func ValidateMAC(s string) (mac string, err error) {
	mac = strings.ToLower(s)

	groups := strings.Split(mac, ":")
	if len(groups) != macGroups {
		return "", fmt.Errorf("bad mac address %q: %w", s, ErrInvalidFormat)
	}

	for _, g := range groups {
		if len(g) != 2 || !isHex(g[0]) || !isHex(g[1]) {
			return "", fmt.Errorf("bad mac address %q: %w", s, ErrInvalidFormat)
		}
	}

	return mac, nil
}

// isHex returns true if b is a lowercase hexadecimal digit.
func isHex(b byte) (ok bool) {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f')
}

// reservedNet is the IETF-reserved 240.0.0.0/4 block, which also contains the
// limited broadcast address.
var reservedNet = netip.MustParsePrefix("240.0.0.0/4")

// ValidateIP checks that s is a dotted-quad IPv4 address suitable for a static
// reservation and returns s unchanged.  Multicast, unspecified, reserved,
// loopback, and link-local addresses are rejected.
func ValidateIP(s string) (ip string, err error) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return "", fmt.Errorf("bad ip address %q: %w", s, ErrInvalidFormat)
	}

	switch {
	case
		addr.IsMulticast(),
		addr.IsUnspecified(),
		reservedNet.Contains(addr),
		addr.IsLoopback(),
		addr.IsLinkLocalUnicast():
		return "", fmt.Errorf("bad ip address %q: %w", s, ErrDisallowedAddressClass)
	default:
		return s, nil
	}
}
