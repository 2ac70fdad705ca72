package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

var (
	// ErrMalformedReply is wrapped by DecodeDeviceInfo failures.
	ErrMalformedReply = errors.New("codec: malformed device-info reply")
	// ErrBlobLength is returned for meter blobs that are not whole 32-bit words.
	ErrBlobLength = errors.New("codec: meter blob length is not a multiple of 4")
	// ErrChannelRange is wrapped when a channel number is out of range.
	ErrChannelRange = errors.New("codec: channel out of range")
	// ErrOutOfRange is returned by the fader and trim curves for positions
	// outside 0..1.
	ErrOutOfRange = errors.New("codec: control position out of range")
)

const (
	// ParseErrorInfo is what DecodeDeviceInfo yields for a reply it could
	// not read, so a caller that only displays the string still has one.
	ParseErrorInfo = "Error parsing data"
	// InfoSeparator joins the strings of a device-info reply.
	InfoSeparator = " | "
)

// DecodeDeviceInfo extracts the string arguments of a device-info reply and
// joins them with InfoSeparator. The reply is an address and a type tag
// string, each NUL-terminated and padded to 4 bytes, followed by one padded
// string per 's' tag. int32/float32 arguments are stepped over; other tags
// carry no payload and are ignored.
//
// Any malformed or truncated input returns ParseErrorInfo together with an
// error wrapping ErrMalformedReply.
func DecodeDeviceInfo(data []byte) (string, error) {
	fail := func(what string) (string, error) {
		return ParseErrorInfo, fmt.Errorf("%w: %s", ErrMalformedReply, what)
	}

	addr, rest, ok := cutPadded(data)
	if !ok || !strings.HasPrefix(addr, "/") {
		return fail("bad address")
	}

	tags, rest, ok := cutPadded(rest)
	if !ok || !strings.HasPrefix(tags, ",") {
		return fail("bad type tag string")
	}

	parts := make([]string, 0, len(tags)-1)
	for _, tag := range tags[1:] {
		switch tag {
		case 's':
			var s string
			if s, rest, ok = cutPadded(rest); !ok {
				return fail("truncated string argument")
			}
			if !utf8.ValidString(s) {
				return fail("string argument is not UTF-8")
			}
			parts = append(parts, s)
		case 'i', 'f':
			if len(rest) < 4 {
				return fail("truncated numeric argument")
			}
			rest = rest[4:]
		}
	}

	return strings.Join(parts, InfoSeparator), nil
}

// cutPadded splits a NUL-terminated, 4-byte padded string off the front of b.
// Missing padding at the very end of the buffer is tolerated.
func cutPadded(b []byte) (string, []byte, bool) {
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		return "", nil, false
	}
	end := i + 1
	end += (4 - end%4) % 4
	if end > len(b) {
		end = len(b)
	}
	return string(b[:i]), b[end:], true
}

// DecodeMeterBlob turns an RTA meter blob into dB values. Every little-endian
// 32-bit word holds two signed 16-bit samples in 1/256 dB, low half first;
// gainOffset is added to each. Blobs that are not whole words are rejected
// rather than truncated.
func DecodeMeterBlob(blob []byte, gainOffset float64) ([]float64, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBlobLength, len(blob))
	}

	out := make([]float64, 0, len(blob)/2)
	for i := 0; i < len(blob); i += 4 {
		word := binary.LittleEndian.Uint32(blob[i : i+4])
		lo := int16(uint16(word))
		hi := int16(uint16(word >> 16))
		out = append(out, float64(lo)/256.0+gainOffset, float64(hi)/256.0+gainOffset)
	}
	return out, nil
}

// EncodeMeterBlob is the inverse of DecodeMeterBlob, for simulators and
// tests. Values are clamped to the 16-bit range and an odd count is padded
// with a trailing zero sample.
func EncodeMeterBlob(values []float64, gainOffset float64) []byte {
	n := len(values) + len(values)%2
	blob := make([]byte, 2*n)
	for i, v := range values {
		raw := math.Round((v - gainOffset) * 256)
		raw = math.Max(math.MinInt16, math.Min(math.MaxInt16, raw))
		binary.LittleEndian.PutUint16(blob[2*i:], uint16(int16(raw)))
	}
	return blob
}

// FaderToDB converts a fader position (0..1) to dB using the console's
// four-segment fader law: -90 dB at 0, -60 at 1/16, -30 at 1/4, -10 at 1/2
// and +10 dB at the top.
func FaderToDB(f float32) (float64, error) {
	v := float64(f)
	switch {
	case v > 1 || v < 0 || math.IsNaN(v):
		return 0, fmt.Errorf("%w: fader %v", ErrOutOfRange, f)
	case v >= 0.5:
		return v*40.0 - 30.0, nil
	case v >= 0.25:
		return v*80.0 - 50.0, nil
	case v >= 0.0625:
		return v*160.0 - 70.0, nil
	default:
		return v*480.0 - 90.0, nil
	}
}

// TrimToDB converts a preamp trim position (0..1) to -18..+18 dB.
func TrimToDB(f float32) (float64, error) {
	v := float64(f)
	if v > 1 || v < 0 || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: trim %v", ErrOutOfRange, f)
	}
	return v*36.0 - 18.0, nil
}
