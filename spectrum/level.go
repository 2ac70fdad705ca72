package spectrum

import "fmt"

// Level is a coarse loudness class for display.
type Level int

const (
	Quiet Level = iota
	Nominal
	Warm
	Hot
)

var levelNames = [...]string{"quiet", "nominal", "warm", "hot"}

func (l Level) String() string {
	if l < Quiet || l > Hot {
		return "unknown"
	}
	return levelNames[l]
}

// MarshalText renders the level by name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText parses a level name.
func (l *Level) UnmarshalText(text []byte) error {
	for i, name := range levelNames {
		if string(text) == name {
			*l = Level(i)
			return nil
		}
	}
	return fmt.Errorf("spectrum: unknown level %q", text)
}

// Classify buckets a dB value: hot from -10 dB, warm from -18 dB, nominal
// from -45 dB, quiet below that.
func Classify(db float64) Level {
	switch {
	case db >= -10:
		return Hot
	case db >= -18:
		return Warm
	case db >= -45:
		return Nominal
	default:
		return Quiet
	}
}
