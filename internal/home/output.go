package home

import (
	"fmt"
	"io"
	"strings"

	"github.com/ramanveerji/dhcpsuperv/internal/dhcpsvc"
	"github.com/ramanveerji/dhcpsuperv/internal/hostsfile"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// macColumnGap separates the columns of the list output.
const macColumnGap = "    "

// printList writes the reservations of each server to w and the errors to
// errw.  failed is true if any server couldn't be read.
func printList(w, errw io.Writer, sets []*dhcpsvc.ServerReservations) (failed bool) {
	for _, set := range sets {
		fmt.Fprintf(w, "%s:\n", set.Server.Addr)
		if set.Err != nil {
			fmt.Fprintf(errw, "Error connecting to %s: %s\n", set.Server.Addr, set.Err)
			failed = true

			continue
		}

		width := 0
		for _, r := range set.Reservations {
			width = max(width, len(r.MAC))
		}

		for _, r := range set.Reservations {
			fmt.Fprintf(w, "%-*s%s%s\n", width, r.MAC, macColumnGap, r.IP)
		}

		fmt.Fprintln(w)
	}

	return failed
}

// printCheck writes the consistency report of each server to w and the errors
// to errw.  failed is true if any server couldn't be read.
func printCheck(w, errw io.Writer, reps []*dhcpsvc.ServerReport) (failed bool) {
	for _, rep := range reps {
		fmt.Fprintf(w, "\nChecking server: %s\n", rep.Server.Addr)
		if rep.Err != nil {
			fmt.Fprintf(errw, "Error connecting to %s: %s\n", rep.Server.Addr, rep.Err)
			failed = true

			continue
		}

		printGroups(w, "MAC", rep.Duplicates.MACs, func(mac, ip string) (line string) {
			return formatHost(mac, ip)
		})
		printGroups(w, "IP", rep.Duplicates.IPs, func(ip, mac string) (line string) {
			return formatHost(mac, ip)
		})
	}

	return failed
}

// printGroups writes the duplicate groups of the given kind in the order of
// their keys.  format returns the line for a key and one of its members.
func printGroups(
	w io.Writer,
	kind string,
	groups map[string][]string,
	format func(key, member string) (line string),
) {
	if len(groups) == 0 {
		fmt.Fprintf(w, "No duplicate %s addresses.\n", kind)

		return
	}

	keys := maps.Keys(groups)
	slices.Sort(keys)

	b := &strings.Builder{}
	fmt.Fprintf(b, "duplicate %s addresses:\n", kind)
	for _, k := range keys {
		for _, m := range groups[k] {
			b.WriteString(format(k, m))
			b.WriteByte('\n')
		}
	}

	_, _ = io.WriteString(w, b.String())
}

// formatHost returns the hosts file line for mac and ip.
func formatHost(mac, ip string) (line string) {
	return hostsfile.FormatLine(&dhcpsvc.Reservation{MAC: mac, IP: ip})
}
