package dhcpsvc_test

import (
	"testing"

	"github.com/ramanveerji/dhcpsuperv/internal/dhcpsvc"
	"github.com/stretchr/testify/assert"
)

func TestFindDuplicates(t *testing.T) {
	testCases := []struct {
		wantMACs map[string][]string
		wantIPs  map[string][]string
		name     string
		rs       []*dhcpsvc.Reservation
	}{{
		wantMACs: map[string][]string{},
		wantIPs:  map[string][]string{},
		name:     "empty",
		rs:       nil,
	}, {
		wantMACs: map[string][]string{},
		wantIPs:  map[string][]string{},
		name:     "no_conflicts",
		rs: []*dhcpsvc.Reservation{
			{MAC: "aa:aa:aa:aa:aa:aa", IP: "10.0.0.1"},
			{MAC: "bb:bb:bb:bb:bb:bb", IP: "10.0.0.2"},
		},
	}, {
		wantMACs: map[string][]string{"a": {"1", "2"}},
		wantIPs:  map[string][]string{},
		name:     "duplicate_mac",
		rs: []*dhcpsvc.Reservation{
			{MAC: "a", IP: "1"},
			{MAC: "a", IP: "2"},
			{MAC: "b", IP: "3"},
		},
	}, {
		wantMACs: map[string][]string{},
		wantIPs:  map[string][]string{"10.0.0.9": {"a", "b"}},
		name:     "duplicate_ip",
		rs: []*dhcpsvc.Reservation{
			{MAC: "a", IP: "10.0.0.9"},
			{MAC: "b", IP: "10.0.0.9"},
		},
	}, {
		wantMACs: map[string][]string{"a": {"1", "1"}},
		wantIPs:  map[string][]string{"1": {"a", "a"}},
		name:     "same_line_twice",
		rs: []*dhcpsvc.Reservation{
			{MAC: "a", IP: "1"},
			{MAC: "a", IP: "1"},
		},
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := dhcpsvc.FindDuplicates(tc.rs)

			assert.Equal(t, tc.wantMACs, d.MACs)
			assert.Equal(t, tc.wantIPs, d.IPs)
			assert.Equal(t, len(tc.wantMACs) == 0 && len(tc.wantIPs) == 0, d.Empty())
		})
	}
}
