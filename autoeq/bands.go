package autoeq

// Band is one of the channel's four parametric EQ bands and the part of the
// spectrum it works on.
type Band struct {
	Name  string
	Index int // 1-based, as addressed on the mixer

	// Low and High bound the frequencies, in Hz, the band analyses.
	Low, High float64

	// QMax is used when the band's energy sits in a single bin, QMin when
	// every bin is close to the peak.
	QMax, QMin float64

	// Frequencies is the part of FrequencyTable inside [Low, High].
	Frequencies Table
}

// Band names, in mixer order.
const (
	BandLow     = "Low"
	BandLowMid  = "Low Mid"
	BandHighMid = "High Mid"
	BandHigh    = "High"
)

// DefaultBands returns the four bands in mixer order.
func DefaultBands() []Band {
	bands := []Band{
		{Name: BandLow, Index: 1, Low: 124.7, High: 306.2, QMax: 7, QMin: 3},
		{Name: BandLowMid, Index: 2, Low: 317, High: 1550, QMax: 6, QMin: 2.5},
		{Name: BandHighMid, Index: 3, Low: 1600, High: 5020, QMax: 5.5, QMin: 2},
		{Name: BandHigh, Index: 4, Low: 5200, High: 20000, QMax: 4.5, QMin: 1.5},
	}
	for i := range bands {
		bands[i].Frequencies = FrequencyTable.Within(bands[i].Low, bands[i].High)
	}
	return bands
}
