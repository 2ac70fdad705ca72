// Package codec knows the mixer's side of the wire: the addresses it answers
// on, the commands this module sends, and the two payloads that are decoded
// by hand (the device-info reply and the RTA meter blob).
package codec

import (
	"fmt"

	"github.com/audiopilot/audiopilot/osc"
)

// Addresses the mixer listens on or replies from.
const (
	AddrRemote         = "/xremote"
	AddrInfo           = "/xinfo"
	AddrBatchSubscribe = "/batchsubscribe"
	AddrSetRTASource   = "/-action/setrtasrc"

	// AddrMeters is the alias the RTA subscription is registered under; the
	// mixer tags every meter update with it.
	AddrMeters = "/meters"
	// AddrRTABank is the mixer's RTA meter bank.
	AddrRTABank = "/meters/15"
)

// EQTypeParametric selects the peaking (PEQ) filter shape for an EQ band.
const EQTypeParametric int32 = 2

// Channel numbers are 1-based as printed on the console.
const (
	MinChannel = 1
	MaxChannel = 32
	NumEQBands = 4
)

// Keepalive keeps the mixer sending parameter updates to this client.
func Keepalive() *osc.Message {
	return osc.NewMessage(AddrRemote)
}

// InfoProbe asks a mixer to identify itself.
func InfoProbe() *osc.Message {
	return osc.NewMessage(AddrInfo)
}

// BatchSubscribe registers a meter subscription under alias. The two zero
// arguments are reserved; factor sets the update rate of the stream.
func BatchSubscribe(alias, meterBank string, factor int32) *osc.Message {
	return osc.NewMessage(AddrBatchSubscribe, alias, meterBank, int32(0), int32(0), factor)
}

// SetRTASource points the RTA at a channel. channel is 1-based; the mixer
// wants the 0-based index.
func SetRTASource(channel int) (*osc.Message, error) {
	if err := CheckChannel(channel); err != nil {
		return nil, err
	}
	return osc.NewMessage(AddrSetRTASource, int32(channel-1)), nil
}

// EQBand sets all four parameters of one EQ band of a channel at once.
func EQBand(channel, band int, freqID, gainID, qID float32) (*osc.Message, error) {
	if err := CheckChannel(channel); err != nil {
		return nil, err
	}
	if band < 1 || band > NumEQBands {
		return nil, fmt.Errorf("codec: eq band %d out of range 1..%d", band, NumEQBands)
	}
	return osc.NewMessage(EQAddress(channel, band), EQTypeParametric, freqID, gainID, qID), nil
}

// EQAddress returns the address of one EQ band of a channel.
func EQAddress(channel, band int) string {
	return fmt.Sprintf("/ch/%02d/eq/%d", channel, band)
}

// FaderAddress returns the address of a channel fader.
func FaderAddress(channel int) string {
	return fmt.Sprintf("/ch/%02d/mix/fader", channel)
}

// TrimAddress returns the address of a channel preamp trim.
func TrimAddress(channel int) string {
	return fmt.Sprintf("/ch/%02d/preamp/trim", channel)
}

// MuteAddress returns the address of a channel's on/off switch.
func MuteAddress(channel int) string {
	return fmt.Sprintf("/ch/%02d/mix/on", channel)
}

// FaderQuery asks the mixer for the current fader position of a channel.
func FaderQuery(channel int) *osc.Message {
	return osc.NewMessage(FaderAddress(channel))
}

// TrimQuery asks the mixer for the current preamp trim of a channel.
func TrimQuery(channel int) *osc.Message {
	return osc.NewMessage(TrimAddress(channel))
}

// Mute switches a channel off (muted) or back on.
func Mute(channel int, muted bool) (*osc.Message, error) {
	if err := CheckChannel(channel); err != nil {
		return nil, err
	}
	on := int32(1)
	if muted {
		on = 0
	}
	return osc.NewMessage(MuteAddress(channel), on), nil
}

// CheckChannel reports whether channel is a valid 1-based input channel.
func CheckChannel(channel int) error {
	if channel < MinChannel || channel > MaxChannel {
		return fmt.Errorf("%w: %d not in %d..%d", ErrChannelRange, channel, MinChannel, MaxChannel)
	}
	return nil
}
