package spectrum

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
)

// HistoryDepth is the number of samples kept per frequency.
const HistoryDepth = 10

// Bin is one frequency and its recent samples, oldest first.
type Bin struct {
	Freq    float64   `json:"freq"`
	Samples []float64 `json:"samples"`
}

// Latest returns the newest sample, or Floor if the bin has none.
func (b Bin) Latest() float64 {
	if len(b.Samples) == 0 {
		return Floor
	}
	return b.Samples[len(b.Samples)-1]
}

// Peak returns the highest sample, or Floor if the bin has none.
func (b Bin) Peak() float64 {
	if len(b.Samples) == 0 {
		return Floor
	}
	return floats.Max(b.Samples)
}

// Snapshot is a point-in-time copy of the store. Bins are ordered by
// frequency and only include frequencies that have data.
type Snapshot struct {
	Seq   uint64
	Taken time.Time
	Bins  []Bin
}

// Store keeps the last HistoryDepth samples for each known frequency.
// One writer and any number of readers may use it concurrently.
type Store struct {
	mu    sync.RWMutex
	freqs []float64
	index map[float64]int
	hist  [][]float64
	seq   uint64
	now   func() time.Time
}

// NewStore returns an empty store for freqs, which must be sorted ascending.
// A nil freqs uses Frequencies.
func NewStore(freqs []float64) *Store {
	if freqs == nil {
		freqs = Frequencies
	}
	s := &Store{
		freqs: append([]float64(nil), freqs...),
		index: make(map[float64]int, len(freqs)),
		hist:  make([][]float64, len(freqs)),
		now:   time.Now,
	}
	for i, f := range s.freqs {
		s.index[f] = i
	}
	return s
}

// Frequencies returns the frequencies the store tracks.
func (s *Store) Frequencies() []float64 {
	return append([]float64(nil), s.freqs...)
}

// Append adds one sample to the history of freq.
func (s *Store) Append(freq, db float64) error {
	i, ok := s.index[freq]
	if !ok {
		return fmt.Errorf("spectrum: unknown frequency %v Hz", freq)
	}
	s.mu.Lock()
	s.push(i, db)
	s.seq++
	s.mu.Unlock()
	return nil
}

// AppendFrame adds values[i] to the i-th frequency under a single lock, so
// readers see either none or all of the frame. Values beyond the last
// frequency are dropped; frequencies beyond the last value are untouched.
// It returns the number of samples written.
func (s *Store) AppendFrame(values []float64) int {
	n := len(values)
	if n > len(s.freqs) {
		n = len(s.freqs)
	}
	if n == 0 {
		return 0
	}
	s.mu.Lock()
	for i := 0; i < n; i++ {
		s.push(i, values[i])
	}
	s.seq++
	s.mu.Unlock()
	return n
}

func (s *Store) push(i int, v float64) {
	h := append(s.hist[i], v)
	if len(h) > HistoryDepth {
		copy(h, h[len(h)-HistoryDepth:])
		h = h[:HistoryDepth]
	}
	s.hist[i] = h
}

// History returns a copy of the samples for freq, oldest first.
func (s *Store) History(freq float64) []float64 {
	i, ok := s.index[freq]
	if !ok {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.hist[i]) == 0 {
		return nil
	}
	return append([]float64(nil), s.hist[i]...)
}

// Range returns the bins with data whose frequency lies in [lo, hi].
func (s *Store) Range(lo, hi float64) []Bin {
	start := sort.SearchFloat64s(s.freqs, lo)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Bin
	for i := start; i < len(s.freqs) && s.freqs[i] <= hi; i++ {
		if len(s.hist[i]) == 0 {
			continue
		}
		out = append(out, Bin{Freq: s.freqs[i], Samples: append([]float64(nil), s.hist[i]...)})
	}
	return out
}

// Snapshot returns a deep copy of everything the store holds.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{Seq: s.seq, Taken: s.now()}
	for i, h := range s.hist {
		if len(h) == 0 {
			continue
		}
		snap.Bins = append(snap.Bins, Bin{Freq: s.freqs[i], Samples: append([]float64(nil), h...)})
	}
	return snap
}

// Reset forgets all samples. The sequence number keeps counting.
func (s *Store) Reset() {
	s.mu.Lock()
	for i := range s.hist {
		s.hist[i] = nil
	}
	s.seq++
	s.mu.Unlock()
}
