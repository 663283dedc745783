package dhcpsvc

import (
	"context"
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/log"
	"github.com/ramanveerji/dhcpsuperv/internal/addrcheck"
	"github.com/ramanveerji/dhcpsuperv/internal/topology"
)

// ServiceConfig is the configuration structure for Service.
type ServiceConfig struct {
	// Topology is the table of the managed servers.  It may be nil, in which
	// case no server can be resolved.
	Topology *topology.Topology

	// Opener opens the reservation stores of the servers.  It must not be nil.
	Opener Opener
}

// Service runs the reservation workflows.  Servers are processed one at a
// time, and each store is opened right before the work on it and closed right
// after.
type Service struct {
	topo   *topology.Topology
	opener Opener
}

// New returns a new reservation service.  conf must not be nil.
func New(conf *ServiceConfig) (s *Service) {
	return &Service{
		topo:   conf.Topology,
		opener: conf.Opener,
	}
}

// AddResult is the outcome of a successful addition.
type AddResult struct {
	// Reservation is the reservation as stored.
	Reservation *Reservation

	// Server is the server now holding the reservation.
	Server topology.Server

	// Replaced is true if the IP address of an existing reservation for the
	// same MAC address was changed.
	Replaced bool
}

// Add reserves ip for mac on the server administering ip.  Both addresses are
// validated before any server is contacted.  If ip is bound to another MAC
// address on that server, Add returns [ErrIPInUse] without modifying anything.
func (s *Service) Add(ctx context.Context, mac, ip string) (res *AddResult, err error) {
	defer func() { err = errors.Annotate(err, "adding reservation: %w") }()

	mac, err = addrcheck.ValidateMAC(mac)
	if err != nil {
		return nil, err
	}

	ip, err = addrcheck.ValidateIP(ip)
	if err != nil {
		return nil, err
	}

	srv, err := s.topo.Resolve(ip)
	if err != nil {
		return nil, err
	}

	st, err := s.opener.Open(ctx, srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("server %s: %w", srv.Addr, err)
	}
	defer func() { err = errors.WithDeferred(err, st.Close()) }()

	inUse, err := IPBoundToOtherMAC(ctx, st, ip, mac)
	if err != nil {
		return nil, fmt.Errorf("server %s: checking ip: %w", srv.Addr, err)
	} else if inUse {
		return nil, fmt.Errorf("server %s: %s: %w", srv.Addr, ip, ErrIPInUse)
	}

	r := &Reservation{MAC: mac, IP: ip}
	replaced, err := st.Upsert(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("server %s: %w", srv.Addr, err)
	}

	log.Info("dhcpsvc: reserved %s for %s on %s (replaced: %t)", ip, mac, srv.Addr, replaced)

	return &AddResult{
		Reservation: r,
		Server:      srv,
		Replaced:    replaced,
	}, nil
}

// Remove deletes the reservations of mac from the first server holding it.
// Servers are probed one by one in the order of declaration, and servers that
// can't be reached or read are skipped.  It returns [ErrMACNotFound] if no
// probed server holds mac.
func (s *Service) Remove(ctx context.Context, mac string) (srv topology.Server, err error) {
	defer func() { err = errors.Annotate(err, "removing reservation: %w") }()

	mac, err = addrcheck.ValidateMAC(mac)
	if err != nil {
		return topology.Server{}, err
	}

	var probeErrs []error
	for _, srv = range s.topo.Servers() {
		var st Store
		st, err = s.probe(ctx, srv, mac)
		if err != nil {
			log.Info("dhcpsvc: skipping server %s: %s", srv.Addr, err)
			probeErrs = append(probeErrs, err)

			continue
		} else if st == nil {
			continue
		}

		err = st.Remove(ctx, mac)
		err = errors.WithDeferred(err, st.Close())
		if err != nil {
			return srv, fmt.Errorf("server %s: %w", srv.Addr, err)
		}

		log.Info("dhcpsvc: removed reservation for %s from %s", mac, srv.Addr)

		return srv, nil
	}

	if len(probeErrs) > 0 {
		return topology.Server{}, fmt.Errorf(
			"%s: %w; %d server(s) not probed, first error: %w",
			mac,
			ErrMACNotFound,
			len(probeErrs),
			probeErrs[0],
		)
	}

	return topology.Server{}, fmt.Errorf("%s: %w", mac, ErrMACNotFound)
}

// probe opens the store of srv and checks if it holds mac.  If it does, the
// store is returned open, otherwise it's closed and st is nil.
func (s *Service) probe(ctx context.Context, srv topology.Server, mac string) (st Store, err error) {
	st, err = s.opener.Open(ctx, srv.Addr)
	if err != nil {
		return nil, err
	}

	found, err := MACExists(ctx, st, mac)
	if err != nil || !found {
		return nil, errors.WithDeferred(err, st.Close())
	}

	return st, nil
}

// ServerReservations is the reservation set of a single server.
type ServerReservations struct {
	// Err is the error of reading the reservations, if any.
	Err error

	// Server is the server the reservations were read from.
	Server topology.Server

	// Reservations are the reservations in the store order.
	Reservations []*Reservation
}

// List reads the reservations of the servers selected by target, which is
// a network identifier, an address within a network, or a server address.  An
// empty target selects all servers.  A failure of a single server is recorded
// in its result and doesn't stop the others; err is only returned when target
// can't be resolved.
func (s *Service) List(ctx context.Context, target string) (res []*ServerReservations, err error) {
	servers, err := s.targets(target)
	if err != nil {
		return nil, err
	}

	res = make([]*ServerReservations, 0, len(servers))
	for _, srv := range servers {
		rs, rerr := s.snapshot(ctx, srv)
		if rerr != nil {
			log.Error("dhcpsvc: reading reservations from %s: %s", srv.Addr, rerr)
		}

		res = append(res, &ServerReservations{
			Err:          rerr,
			Server:       srv,
			Reservations: rs,
		})
	}

	return res, nil
}

// ServerReport is the consistency report of a single server.
type ServerReport struct {
	// Err is the error of reading the reservations, if any.
	Err error

	// Duplicates are the conflicts found.  It's nil if Err is not nil.
	Duplicates *Duplicates

	// Server is the checked server.
	Server topology.Server
}

// Check reports the conflicting reservations of the servers selected by
// target, see [Service.List].
func (s *Service) Check(ctx context.Context, target string) (res []*ServerReport, err error) {
	sets, err := s.List(ctx, target)
	if err != nil {
		return nil, err
	}

	res = make([]*ServerReport, 0, len(sets))
	for _, set := range sets {
		rep := &ServerReport{
			Err:    set.Err,
			Server: set.Server,
		}

		if set.Err == nil {
			rep.Duplicates = FindDuplicates(set.Reservations)
		}

		res = append(res, rep)
	}

	return res, nil
}

// targets returns the servers selected by target.
func (s *Service) targets(target string) (servers []topology.Server, err error) {
	if target == "" {
		return s.topo.Servers(), nil
	}

	srv, err := s.topo.Resolve(target)
	if err == nil {
		return []topology.Server{srv}, nil
	}

	if srv, ok := s.topo.Lookup(target); ok {
		return []topology.Server{srv}, nil
	}

	return nil, err
}

// snapshot reads the reservations of srv.
func (s *Service) snapshot(ctx context.Context, srv topology.Server) (rs []*Reservation, err error) {
	st, err := s.opener.Open(ctx, srv.Addr)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.WithDeferred(err, st.Close()) }()

	return st.Reservations(ctx)
}
