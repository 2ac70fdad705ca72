package discovery

import (
	"net/netip"
	"sort"
)

// sortMixers orders mixers by address, falling back to string order for
// anything that does not parse.
func sortMixers(m []Mixer) {
	sort.Slice(m, func(i, j int) bool {
		a, errA := netip.ParseAddr(m[i].IP)
		b, errB := netip.ParseAddr(m[j].IP)
		if errA != nil || errB != nil {
			return m[i].IP < m[j].IP
		}
		return a.Less(b)
	})
}
