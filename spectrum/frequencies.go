// Package spectrum holds the RTA picture of the selected channel: the fixed
// list of analyser frequencies, a short rolling history per frequency, the
// ingest step that fills it from meter blobs and a newest-wins feed for
// readers that want every frame as it lands.
package spectrum

// Frequencies are the centre frequencies, in Hz, of the mixer's RTA bands in
// the order they appear in a meter blob once the two leading values are
// skipped.
var Frequencies = []float64{
	20, 21, 22, 24, 26, 28, 30, 32, 34, 36,
	39, 42, 45, 48, 52, 55, 59, 63, 68, 73,
	78, 84, 90, 96, 103, 110, 118, 127, 136, 146,
	156, 167, 179, 192, 206, 221, 237, 254, 272, 292,
	313, 335, 359, 385, 412, 442, 474, 508, 544, 583,
	625, 670, 718, 769, 825, 884, 947, 1020, 1090, 1170,
	1250, 1340, 1440, 1540, 1650, 1770, 1890, 2030, 2180, 2330,
	2500, 2680, 2870, 3080, 3300, 3540, 3790, 4060, 4350, 4670,
	5000, 5360, 5740, 6160, 6600, 7070, 7580, 8120, 8710, 9330,
	10000, 10720, 11490, 12310, 13200, 14140, 15160, 16250, 17410, 18660,
}

// LeadingValues is the number of decoded meter values that precede the first
// frequency band.
const LeadingValues = 2

// DefaultGainOffset is added to every decoded RTA value to bring it onto the
// console's dBFS scale.
const DefaultGainOffset = 38.0

// Floor is the lowest value the RTA reports. Samples at or below it mean
// "no signal" and are ignored by analysis.
const Floor = -90.0
