package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/audiopilot/audiopilot/osc"
)

// padded returns s NUL-terminated and padded to a 32-bit boundary.
func padded(s string) []byte {
	b := append([]byte(s), 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

func TestDecodeDeviceInfo(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{
			"two_strings",
			bytes.Join([][]byte{padded("/xinfo"), padded(",ss"), padded("192.168.1.20"), padded("X32RACK")}, nil),
			"192.168.1.20 | X32RACK",
		},
		{
			"full_reply",
			bytes.Join([][]byte{padded("/xinfo"), padded(",ssss"), padded("192.168.1.20"), padded("X32-02-4A-53"), padded("X32"), padded("4.06")}, nil),
			"192.168.1.20 | X32-02-4A-53 | X32 | 4.06",
		},
		{
			"numeric_arguments_skipped",
			bytes.Join([][]byte{padded("/status"), padded(",sis"), padded("active"), {0, 0, 0, 7}, padded("X32")}, nil),
			"active | X32",
		},
		{
			"no_arguments",
			bytes.Join([][]byte{padded("/xinfo"), padded(",")}, nil),
			"",
		},
		{
			"unpadded_tail",
			bytes.Join([][]byte{padded("/xinfo"), padded(",s"), []byte("abc\x00\x00")}, nil),
			"abc",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeDeviceInfo(tt.raw)
			if err != nil {
				t.Fatalf("DecodeDeviceInfo() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeDeviceInfo() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeDeviceInfo_MatchesEncoder(t *testing.T) {
	raw, err := osc.NewMessage("/xinfo", "10.0.0.5", "FOH").MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeDeviceInfo(raw)
	if err != nil || got != "10.0.0.5 | FOH" {
		t.Errorf("DecodeDeviceInfo() = %q, %v", got, err)
	}
}

func TestDecodeDeviceInfo_Garbage(t *testing.T) {
	full := bytes.Join([][]byte{padded("/xinfo"), padded(",ss"), padded("192.168.1.20"), padded("X32RACK")}, nil)
	tests := []struct {
		name string
		raw  []byte
	}{
		{"nil", nil},
		{"no_nul", []byte("/xinfo")},
		{"no_slash", bytes.Join([][]byte{padded("xinfo"), padded(",s"), padded("a")}, nil)},
		{"no_typetags", padded("/xinfo")},
		{"typetags_without_comma", bytes.Join([][]byte{padded("/xinfo"), padded("ss"), padded("a")}, nil)},
		{"truncated_in_string", full[:len(full)-6]},
		{"truncated_numeric", bytes.Join([][]byte{padded("/xinfo"), padded(",i"), {0, 0}}, nil)},
		{"invalid_utf8", bytes.Join([][]byte{padded("/xinfo"), padded(",s"), {0xff, 0xfe, 0, 0}}, nil)},
		{"random", []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeDeviceInfo(tt.raw)
			if !errors.Is(err, ErrMalformedReply) {
				t.Errorf("DecodeDeviceInfo() error = %v, want ErrMalformedReply", err)
			}
			if got != ParseErrorInfo {
				t.Errorf("DecodeDeviceInfo() = %q, want %q", got, ParseErrorInfo)
			}
		})
	}
}

func blob(words ...uint32) []byte {
	b := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[4*i:], w)
	}
	return b
}

func TestDecodeMeterBlob(t *testing.T) {
	tests := []struct {
		name   string
		blob   []byte
		offset float64
		want   []float64
	}{
		{"empty", nil, 38, []float64{}},
		{"sign_boundary", blob(0x80007FFF), 0, []float64{32767.0 / 256.0, -128}},
		{"sign_boundary_offset", blob(0x80007FFF), 38, []float64{32767.0/256.0 + 38, -90}},
		{"minus_one_and_zero", blob(0x0000FFFF), 0, []float64{-1.0 / 256.0, 0}},
		{"word_order", blob(0x01000200, 0xFF00FE00), 0, []float64{2, 1, -2, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeMeterBlob(tt.blob, tt.offset)
			if err != nil {
				t.Fatalf("DecodeMeterBlob() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeMeterBlob() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeMeterBlob_Length(t *testing.T) {
	for n := 0; n <= 64; n++ {
		raw := make([]byte, n)
		for i := range raw {
			raw[i] = byte(i * 37)
		}
		got, err := DecodeMeterBlob(raw, -12.5)
		if n%4 != 0 {
			if !errors.Is(err, ErrBlobLength) {
				t.Errorf("len %d: error = %v, want ErrBlobLength", n, err)
			}
			if got != nil {
				t.Errorf("len %d: got %d values from a rejected blob", n, len(got))
			}
			continue
		}
		if err != nil {
			t.Fatalf("len %d: %v", n, err)
		}
		if len(got) != 2*(n/4) {
			t.Fatalf("len %d: got %d values, want %d", n, len(got), 2*(n/4))
		}
		for i, v := range got {
			half := binary.LittleEndian.Uint16(raw[2*i:])
			want := float64(int16(half))/256.0 - 12.5
			if v != want {
				t.Errorf("len %d value %d = %v, want %v", n, i, v, want)
			}
		}
	}
}

func TestEncodeMeterBlob(t *testing.T) {
	in := []float64{-90, -12.5, 0, 165.99609375, -200}
	blob := EncodeMeterBlob(in, 38)
	if len(blob) != 12 {
		t.Fatalf("len(blob) = %d, want 12", len(blob))
	}
	got, err := DecodeMeterBlob(blob, 38)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{-90, -12.5, 0, 165.99609375, -90, 38}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("decoded %v, want %v", got, want)
	}
}

func TestFaderToDB(t *testing.T) {
	tests := []struct {
		in      float32
		want    float64
		wantErr bool
	}{
		{0, -90, false},
		{0.0625, -60, false},
		{0.25, -30, false},
		{0.5, -10, false},
		{0.75, 0, false},
		{1, 10, false},
		{-0.1, 0, true},
		{1.5, 0, true},
		{float32(math.NaN()), 0, true},
	}
	for _, tt := range tests {
		got, err := FaderToDB(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("FaderToDB(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("FaderToDB(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTrimToDB(t *testing.T) {
	for _, tt := range []struct {
		in   float32
		want float64
	}{{0, -18}, {0.5, 0}, {1, 18}} {
		got, err := TrimToDB(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("TrimToDB(%v) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := TrimToDB(2); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("TrimToDB(2) error = %v, want ErrOutOfRange", err)
	}
}

func TestCommands(t *testing.T) {
	eq, err := EQBand(3, 1, 0.25, 0.5, 0.338)
	if err != nil {
		t.Fatal(err)
	}
	if eq.Address != "/ch/03/eq/1" {
		t.Errorf("EQBand address = %q", eq.Address)
	}
	if tags, _ := eq.TypeTags(); tags != ",ifff" {
		t.Errorf("EQBand type tags = %q, want ,ifff", tags)
	}
	if eq.Arguments[0] != EQTypeParametric {
		t.Errorf("EQBand type = %v, want %v", eq.Arguments[0], EQTypeParametric)
	}

	src, err := SetRTASource(32)
	if err != nil || src.Arguments[0] != int32(31) {
		t.Errorf("SetRTASource(32) = %v, %v; want index 31", src, err)
	}

	sub := BatchSubscribe(AddrMeters, AddrRTABank, 99)
	if tags, _ := sub.TypeTags(); tags != ",ssiii" {
		t.Errorf("BatchSubscribe type tags = %q", tags)
	}

	mute, err := Mute(1, true)
	if err != nil || mute.Address != "/ch/01/mix/on" || mute.Arguments[0] != int32(0) {
		t.Errorf("Mute(1, true) = %v, %v", mute, err)
	}

	for _, bad := range []func() error{
		func() error { _, err := EQBand(0, 1, 0, 0, 0); return err },
		func() error { _, err := EQBand(33, 1, 0, 0, 0); return err },
		func() error { _, err := SetRTASource(0); return err },
		func() error { _, err := Mute(40, false); return err },
	} {
		if err := bad(); !errors.Is(err, ErrChannelRange) {
			t.Errorf("error = %v, want ErrChannelRange", err)
		}
	}
	if _, err := EQBand(1, 5, 0, 0, 0); err == nil {
		t.Error("EQBand accepted band 5")
	}
}
