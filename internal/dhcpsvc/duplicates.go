package dhcpsvc

// Duplicates is the report of conflicting reservations within a single
// reservation set.
type Duplicates struct {
	// MACs maps each MAC address reserved more than once to all of its IP
	// addresses in the store order.
	MACs map[string][]string

	// IPs maps each IP address reserved more than once to all of its MAC
	// addresses in the store order.
	IPs map[string][]string
}

// Empty returns true if there are no conflicts.
func (d *Duplicates) Empty() (ok bool) {
	return len(d.MACs) == 0 && len(d.IPs) == 0
}

// FindDuplicates groups rs by MAC address and by IP address and reports every
// group having more than one member.  It doesn't modify rs.
func FindDuplicates(rs []*Reservation) (d *Duplicates) {
	byMAC := map[string][]string{}
	byIP := map[string][]string{}
	for _, r := range rs {
		byMAC[r.MAC] = append(byMAC[r.MAC], r.IP)
		byIP[r.IP] = append(byIP[r.IP], r.MAC)
	}

	return &Duplicates{
		MACs: conflicting(byMAC),
		IPs:  conflicting(byIP),
	}
}

// conflicting returns the groups having more than one member.
func conflicting(groups map[string][]string) (dups map[string][]string) {
	dups = map[string][]string{}
	for k, members := range groups {
		if len(members) > 1 {
			dups[k] = members
		}
	}

	return dups
}
