// Package topology maps addresses and networks to the DHCP servers
// administering them.
package topology

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"go4.org/netipx"
	"gopkg.in/yaml.v3"
)

// ErrServerNotFound is returned when no configured server administers the
// requested address or network.
const ErrServerNotFound errors.Error = "cannot identify dhcp server"

// Server is a single DHCP server and the network it administers.
type Server struct {
	// Addr is the address of the server used to connect to it.
	Addr string

	// Network is the network identifier as written in the configuration.  It
	// is usually a CIDR block, but any string is accepted as an exact-match
	// lookup key.
	Network string
}

// Topology is the static table of servers.  The order of servers is the order
// of their declaration, and it's significant: when several networks contain
// the same address, the server declared first wins.  A nil *Topology is an
// empty table.
type Topology struct {
	servers []Server
}

// New returns a topology containing servers in the given order.
func New(servers ...Server) (t *Topology) {
	return &Topology{
		servers: append([]Server(nil), servers...),
	}
}

// Servers returns a copy of the servers in declaration order.
func (t *Topology) Servers() (servers []Server) {
	if t == nil {
		return nil
	}

	return append([]Server(nil), t.servers...)
}

// Len returns the number of configured servers.
func (t *Topology) Len() (n int) {
	if t == nil {
		return 0
	}

	return len(t.servers)
}

// Lookup returns the server with the address addr, if any.
func (t *Topology) Lookup(addr string) (srv Server, ok bool) {
	if t == nil {
		return Server{}, false
	}

	for _, s := range t.servers {
		if s.Addr == addr {
			return s, true
		}
	}

	return Server{}, false
}

// Resolve returns the server responsible for target, which is either a network
// identifier or an IPv4 address.  An exact match against a configured network
// identifier takes precedence over network membership of an address.
func (t *Topology) Resolve(target string) (srv Server, err error) {
	if t == nil {
		return Server{}, fmt.Errorf("%q: %w", target, ErrServerNotFound)
	}

	for _, s := range t.servers {
		if s.Network == target {
			return s, nil
		}
	}

	addr, err := netip.ParseAddr(target)
	if err != nil || !addr.Is4() {
		return Server{}, fmt.Errorf("%q: %w", target, ErrServerNotFound)
	}

	for _, s := range t.servers {
		pref, perr := parseNetwork(s.Network)
		if perr != nil {
			continue
		}

		if pref.Contains(addr) {
			return s, nil
		}
	}

	return Server{}, fmt.Errorf("%q: %w", target, ErrServerNotFound)
}

// parseNetwork parses an IPv4 network.  A bare address is a single-address
// network, and a network with host bits set is invalid.
func parseNetwork(s string) (pref netip.Prefix, err error) {
	if !strings.Contains(s, "/") {
		var addr netip.Addr
		addr, err = netip.ParseAddr(s)
		if err != nil {
			return netip.Prefix{}, err
		}

		return addr.Prefix(addr.BitLen())
	}

	pref, err = netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, err
	}

	switch {
	case !pref.Addr().Is4():
		return netip.Prefix{}, fmt.Errorf("network %q is not ipv4", s)
	case pref.Masked() != pref:
		return netip.Prefix{}, fmt.Errorf("network %q has host bits set", s)
	default:
		return pref, nil
	}
}

// Shadowed returns the servers whose networks overlap the networks of servers
// declared before them.  Addresses within such an overlap always resolve to the
// earlier server.  Servers with unparseable networks are ignored.
func (t *Topology) Shadowed() (shadowed []Server) {
	if t == nil {
		return nil
	}

	var b netipx.IPSetBuilder
	for _, s := range t.servers {
		pref, err := parseNetwork(s.Network)
		if err != nil {
			continue
		}

		seen, err := b.IPSet()
		if err != nil {
			// Shouldn't happen, since only valid prefixes are added.
			continue
		}

		if seen.OverlapsPrefix(pref) {
			shadowed = append(shadowed, s)
		}

		b.AddPrefix(pref)
	}

	return shadowed
}

// type check
var _ yaml.Unmarshaler = (*Topology)(nil)

// UnmarshalYAML implements the [yaml.Unmarshaler] interface for *Topology.  It
// decodes a mapping of server addresses to networks keeping the order of
// declaration, which a Go map would lose.
func (t *Topology) UnmarshalYAML(value *yaml.Node) (err error) {
	defer func() { err = errors.Annotate(err, "bad servers table: %w") }()

	if value.Kind == yaml.ScalarNode && value.ShortTag() == "!!null" {
		*t = Topology{}

		return nil
	}

	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of servers to networks", value.Line)
	}

	topo := Topology{
		servers: make([]Server, 0, len(value.Content)/2),
	}

	seen := make(map[string]struct{}, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]

		err = validate(k, v)
		if err != nil {
			return err
		}

		if _, ok := seen[k.Value]; ok {
			return fmt.Errorf("line %d: duplicate server %q", k.Line, k.Value)
		}

		seen[k.Value] = struct{}{}
		topo.servers = append(topo.servers, Server{
			Addr:    k.Value,
			Network: v.Value,
		})
	}

	*t = topo

	return nil
}

// validate returns the errors of a single servers table entry, if any.
func validate(k, v *yaml.Node) (err error) {
	switch {
	case k.Kind != yaml.ScalarNode:
		return fmt.Errorf("line %d: server address must be a scalar", k.Line)
	case k.Value == "":
		return fmt.Errorf("line %d: empty server address", k.Line)
	case v.Kind != yaml.ScalarNode:
		return fmt.Errorf("line %d: network of server %q must be a scalar", v.Line, k.Value)
	case v.Value == "":
		return fmt.Errorf("line %d: empty network for server %q", v.Line, k.Value)
	default:
		return nil
	}
}

// type check
var _ yaml.Marshaler = (*Topology)(nil)

// MarshalYAML implements the [yaml.Marshaler] interface for *Topology.
func (t *Topology) MarshalYAML() (v any, err error) {
	if t == nil {
		return nil, nil
	}

	n := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
	}

	for _, s := range t.servers {
		n.Content = append(
			n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s.Addr},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s.Network},
		)
	}

	return n, nil
}
