package autoeq

import (
	"math"
	"sort"
)

// Entry pairs a parameter value with the normalized ID the mixer expects for
// it on the wire.
type Entry struct {
	Value float64
	ID    float32
}

// Table maps parameter values to hardware IDs. Entries are sorted by Value.
type Table struct {
	entries []Entry
}

// NewTable returns a table over a sorted copy of entries.
func NewTable(entries []Entry) Table {
	e := append([]Entry(nil), entries...)
	sort.Slice(e, func(i, j int) bool { return e[i].Value < e[j].Value })
	return Table{entries: e}
}

// Len returns the number of entries.
func (t Table) Len() int { return len(t.entries) }

// Entries returns a copy of the entries.
func (t Table) Entries() []Entry { return append([]Entry(nil), t.entries...) }

// Nearest returns the entry whose value is closest to v. Ties go to the
// lower value; NaN resolves to the lowest entry. Nearest panics on an empty
// table.
func (t Table) Nearest(v float64) Entry {
	if math.IsNaN(v) {
		return t.entries[0]
	}
	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].Value >= v })
	switch {
	case i == 0:
		return t.entries[0]
	case i == len(t.entries):
		return t.entries[len(t.entries)-1]
	}
	lo, hi := t.entries[i-1], t.entries[i]
	if v-lo.Value <= hi.Value-v {
		return lo
	}
	return hi
}

// Within returns the sub-table of entries with values in [lo, hi]. Bounds
// are widened by 0.1% so band edges that fall on a grid point are kept.
func (t Table) Within(lo, hi float64) Table {
	lo, hi = lo*0.999, hi*1.001
	var out []Entry
	for _, e := range t.entries {
		if e.Value >= lo && e.Value <= hi {
			out = append(out, e)
		}
	}
	return Table{entries: out}
}

// Grid sizes of the mixer's EQ parameters.
const (
	FrequencySteps = 201
	GainSteps      = 121
	QSteps         = 72

	// DefaultQStep is used when no Q could be computed. It sits close to
	// Q 3, a moderate bell.
	DefaultQStep = 24
)

var (
	// FrequencyTable covers 20 Hz to 20 kHz on a logarithmic grid.
	FrequencyTable = logGrid(20, 20000, FrequencySteps)
	// GainTable covers -15 to +15 dB in 0.25 dB steps.
	GainTable = linearGrid(-15, 15, GainSteps)
	// QTable covers Q 10 (narrow) down to Q 0.3 (wide) on a logarithmic
	// grid. ID 0 is the narrowest setting.
	QTable = logGrid(10, 0.3, QSteps)

	// DefaultQID is the Q ID sent when the Q is undefined.
	DefaultQID = float32(float64(DefaultQStep) / float64(QSteps-1))
)

func logGrid(from, to float64, steps int) Table {
	e := make([]Entry, steps)
	last := float64(steps - 1)
	for i := range e {
		x := float64(i) / last
		e[i] = Entry{Value: from * math.Pow(to/from, x), ID: float32(x)}
	}
	return NewTable(e)
}

func linearGrid(from, to float64, steps int) Table {
	e := make([]Entry, steps)
	last := float64(steps - 1)
	for i := range e {
		x := float64(i) / last
		e[i] = Entry{Value: from + (to-from)*x, ID: float32(x)}
	}
	return NewTable(e)
}

// ClosestQID returns the ID of the Q table entry nearest to q. An undefined
// q yields DefaultQID.
func ClosestQID(q float64) float32 {
	if math.IsNaN(q) {
		return DefaultQID
	}
	return QTable.Nearest(q).ID
}
