// Package dhcpsvc contains the static DHCP reservation supervisor: the contract
// of reservation stores, the consistency checker, and the add, remove, list,
// and check workflows.
package dhcpsvc

import (
	"context"
	"io"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
)

const (
	// ErrIPInUse is returned when the requested IP address is already bound to
	// another MAC address on the server.
	ErrIPInUse errors.Error = "ip address already in use"

	// ErrMACNotFound is returned when no server holds a reservation for the MAC
	// address.
	ErrMACNotFound errors.Error = "mac address not found"

	// ErrRemoteCommandFailed is returned when a mutating command or a reload
	// exits with a non-zero status.
	ErrRemoteCommandFailed errors.Error = "remote command failed"
)

// Reservation is a static binding of an IPv4 address to a MAC address.
type Reservation struct {
	// MAC is the hardware address in canonical lowercase colon-separated form.
	// It identifies the reservation.
	MAC string

	// IP is the reserved IPv4 address as written in the store.
	IP string
}

// Store is a reservation set of a single DHCP server.
//
// Stores perform no conflict checking, callers must make sure that the IP
// address of a new reservation isn't bound to another MAC address.
type Store interface {
	// Reservations returns a snapshot of the reservations in the store order.
	// Each call reads the current state anew.
	Reservations(ctx context.Context) (rs []*Reservation, err error)

	// Upsert replaces the IP address of the reservation for r.MAC in place or
	// appends r if there is none, and then reloads the DHCP daemon.  replaced
	// is true if an existing reservation was updated.  If err is not nil, the
	// store may still be modified.
	Upsert(ctx context.Context, r *Reservation) (replaced bool, err error)

	// Remove deletes all reservations for mac and then reloads the DHCP
	// daemon.  If err is not nil, the store may still be modified.
	Remove(ctx context.Context, mac string) (err error)

	// Close releases the resources of the store.
	io.Closer
}

// Opener opens the stores of servers.
type Opener interface {
	// Open returns the store of the server with the address server.
	Open(ctx context.Context, server string) (s Store, err error)
}

// MACExists returns true if s has a reservation for mac.  MAC addresses are
// compared case-insensitively.
func MACExists(ctx context.Context, s Store, mac string) (ok bool, err error) {
	rs, err := s.Reservations(ctx)
	if err != nil {
		return false, err
	}

	for _, r := range rs {
		if strings.EqualFold(r.MAC, mac) {
			return true, nil
		}
	}

	return false, nil
}

// IPBoundToOtherMAC returns true if s has a reservation of ip for a MAC address
// other than mac.
func IPBoundToOtherMAC(ctx context.Context, s Store, ip, mac string) (ok bool, err error) {
	rs, err := s.Reservations(ctx)
	if err != nil {
		return false, err
	}

	for _, r := range rs {
		if r.IP == ip && !strings.EqualFold(r.MAC, mac) {
			return true, nil
		}
	}

	return false, nil
}
