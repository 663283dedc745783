// Package hostsfile implements reservation stores over dnsmasq hosts files,
// either on remote servers or on the local machine.
package hostsfile

import (
	"bufio"
	"bytes"
	"strings"
	"unicode"

	"github.com/ramanveerji/dhcpsuperv/internal/dhcpsvc"
)

// Prefix starts every reservation line.
const Prefix = "dhcp-host="

// ParseLine parses a line of the form "dhcp-host=<mac>,<ip>".  ok is false for
// any other line, including dhcp-host lines with more or fewer fields and lines
// with empty fields or whitespace inside them, which the edit commands wouldn't
// match.
func ParseLine(line string) (r *dhcpsvc.Reservation, ok bool) {
	rest, ok := strings.CutPrefix(line, Prefix)
	if !ok {
		return nil, false
	}

	fields := strings.Split(rest, ",")
	if len(fields) != 2 || !isField(fields[0]) || !isField(fields[1]) {
		return nil, false
	}

	return &dhcpsvc.Reservation{
		MAC: strings.ToLower(fields[0]),
		IP:  fields[1],
	}, true
}

// isField returns true if f is a non-empty field without whitespace.
func isField(f string) (ok bool) {
	return f != "" && strings.IndexFunc(f, unicode.IsSpace) == -1
}

// FormatLine returns the line for r, without a trailing newline.
func FormatLine(r *dhcpsvc.Reservation) (line string) {
	return Prefix + r.MAC + "," + r.IP
}

// Parse returns the reservations of data in the order of lines.  Lines other
// than reservations are skipped.
func Parse(data []byte) (rs []*dhcpsvc.Reservation) {
	s := bufio.NewScanner(bytes.NewReader(data))
	for s.Scan() {
		r, ok := ParseLine(strings.TrimRight(s.Text(), "\r"))
		if ok {
			rs = append(rs, r)
		}
	}

	return rs
}

// isLineFor returns true if line is a reservation line for mac, compared
// case-insensitively.  It matches the same lines as the patterns of the remote
// edit commands.
func isLineFor(line, mac string) (ok bool) {
	r, ok := ParseLine(line)

	return ok && strings.EqualFold(r.MAC, mac)
}
