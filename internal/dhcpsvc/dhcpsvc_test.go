package dhcpsvc_test

import (
	"context"
	"strings"
	"testing"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/testutil"
	"github.com/ramanveerji/dhcpsuperv/internal/dhcpsvc"
)

func TestMain(m *testing.M) {
	testutil.DiscardLogOutput(m)
}

// testStore is a [dhcpsvc.Store] keeping the reservations in memory.
type testStore struct {
	// readErr, if not nil, is returned by Reservations.
	readErr error

	// editErr, if not nil, is returned by Upsert and Remove after the edit.
	editErr error

	srv *testServer
}

// type check
var _ dhcpsvc.Store = (*testStore)(nil)

// Reservations implements the [dhcpsvc.Store] interface for *testStore.
func (s *testStore) Reservations(_ context.Context) (rs []*dhcpsvc.Reservation, err error) {
	if s.readErr != nil {
		return nil, s.readErr
	}

	for _, r := range s.srv.rs {
		rs = append(rs, &dhcpsvc.Reservation{MAC: r.MAC, IP: r.IP})
	}

	return rs, nil
}

// Upsert implements the [dhcpsvc.Store] interface for *testStore.
func (s *testStore) Upsert(_ context.Context, r *dhcpsvc.Reservation) (replaced bool, err error) {
	s.srv.edits++
	for _, cur := range s.srv.rs {
		if strings.EqualFold(cur.MAC, r.MAC) {
			cur.IP = r.IP
			replaced = true
		}
	}

	if !replaced {
		s.srv.rs = append(s.srv.rs, &dhcpsvc.Reservation{MAC: r.MAC, IP: r.IP})
	}

	return replaced, s.editErr
}

// Remove implements the [dhcpsvc.Store] interface for *testStore.
func (s *testStore) Remove(_ context.Context, mac string) (err error) {
	s.srv.edits++

	kept := s.srv.rs[:0]
	for _, r := range s.srv.rs {
		if !strings.EqualFold(r.MAC, mac) {
			kept = append(kept, r)
		}
	}

	s.srv.rs = kept

	return s.editErr
}

// Close implements the [dhcpsvc.Store] interface for *testStore.
func (s *testStore) Close() (err error) {
	s.srv.open--

	return nil
}

// testServer is the state of a single fake server.
type testServer struct {
	// openErr, if not nil, is returned when the server is opened.
	openErr error

	// readErr and editErr are passed to the stores.
	readErr error
	editErr error

	rs []*dhcpsvc.Reservation

	// edits is the number of mutations.
	edits int

	// opens is the number of Open calls, open is the number of stores not
	// closed yet.
	opens int
	open  int
}

// testOpener is a [dhcpsvc.Opener] over fake servers.
type testOpener struct {
	servers map[string]*testServer

	// order is the order in which the servers were opened.
	order []string
}

// type check
var _ dhcpsvc.Opener = (*testOpener)(nil)

// Open implements the [dhcpsvc.Opener] interface for *testOpener.
func (o *testOpener) Open(_ context.Context, server string) (s dhcpsvc.Store, err error) {
	o.order = append(o.order, server)

	srv, ok := o.servers[server]
	if !ok {
		return nil, errors.Error("no such server")
	}

	srv.opens++
	if srv.openErr != nil {
		return nil, srv.openErr
	}

	srv.open++

	return &testStore{
		readErr: srv.readErr,
		editErr: srv.editErr,
		srv:     srv,
	}, nil
}
