package autoeq

import (
	"fmt"
	"sort"
)

// Profile scales the correction applied to each band. A negative multiplier
// cuts the loudest bin of the band, a positive one lifts the quietest. Bands
// without a multiplier are left alone.
type Profile struct {
	Name        string             `yaml:"name"`
	Multipliers map[string]float64 `yaml:"multipliers"`
}

// Built-in profile names.
const (
	LowPitch  = "Low Pitch"
	MidPitch  = "Mid Pitch"
	HighPitch = "High Pitch"
)

// DefaultProfiles returns the built-in vocal profiles keyed by name.
func DefaultProfiles() map[string]Profile {
	return map[string]Profile{
		LowPitch: {Name: LowPitch, Multipliers: map[string]float64{
			BandLow: -1.0, BandLowMid: -0.8, BandHighMid: 1.2, BandHigh: 1.2,
		}},
		MidPitch: {Name: MidPitch, Multipliers: map[string]float64{
			BandLow: -0.9, BandLowMid: -0.85, BandHighMid: 1.1, BandHigh: 0.9,
		}},
		HighPitch: {Name: HighPitch, Multipliers: map[string]float64{
			BandLow: 0.8, BandLowMid: -0.7, BandHighMid: -0.6, BandHigh: -0.7,
		}},
	}
}

// Validate checks that every multiplier names a known band.
func (p Profile) Validate(bands []Band) error {
	if p.Name == "" {
		return fmt.Errorf("autoeq: profile without a name")
	}
	known := make(map[string]bool, len(bands))
	for _, b := range bands {
		known[b.Name] = true
	}
	names := make([]string, 0, len(p.Multipliers))
	for name := range p.Multipliers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !known[name] {
			return fmt.Errorf("autoeq: profile %q: unknown band %q", p.Name, name)
		}
	}
	return nil
}
