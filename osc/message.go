package osc

import (
	"bytes"
	"encoding"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrMalformed is wrapped by every error returned while parsing an inbound
// datagram.
var ErrMalformed = errors.New("osc: malformed message")

// Packet is anything the Client can put on the wire.
type Packet interface {
	encoding.BinaryMarshaler
}

// Message represents a single OSC message. An OSC message consists of an OSC
// address pattern and zero or more arguments.
type Message struct {
	Address   string
	Arguments []interface{}
}

// Verify that Messages implements the Packet interface.
var _ Packet = (*Message)(nil)

// NewMessage returns a new Message. The address parameter is the OSC address.
func NewMessage(addr string, args ...interface{}) *Message {
	return &Message{Address: addr, Arguments: args}
}

// Append appends the given arguments to the arguments list.
func (m *Message) Append(args ...interface{}) error {
	for _, a := range args {
		if ToTypeTag(a) == TypeInvalid {
			return fmt.Errorf("Append: unsupported type: %T", a)
		}
	}
	m.Arguments = append(m.Arguments, args...)
	return nil
}

// Clear clears the OSC address and all arguments.
func (m *Message) Clear() {
	m.Address = ""
	m.Arguments = m.Arguments[:0]
}

// TypeTags returns the type tag string.
func (m *Message) TypeTags() (string, error) {
	if m == nil {
		return "", fmt.Errorf("TypeTags: message is nil")
	}

	tags := make([]byte, 0, len(m.Arguments)+1)
	tags = append(tags, ',')
	for _, arg := range m.Arguments {
		tt := ToTypeTag(arg)
		if tt == TypeInvalid {
			return "", fmt.Errorf("TypeTags: unsupported type: %T", arg)
		}
		tags = append(tags, byte(tt))
	}

	return string(tags), nil
}

// String implements the fmt.Stringer interface.
func (m *Message) String() string {
	if m == nil {
		return ""
	}

	tags, _ := m.TypeTags()

	var sb strings.Builder
	sb.WriteString(m.Address)
	if len(tags) <= 1 {
		return sb.String()
	}

	sb.WriteByte(' ')
	sb.WriteString(tags)

	for _, arg := range m.Arguments {
		switch arg := arg.(type) {
		case bool, int32, float32, string:
			fmt.Fprintf(&sb, " %v", arg)

		case nil:
			sb.WriteString(" Nil")

		case []byte:
			fmt.Fprintf(&sb, " blob(%d)", len(arg))
		}
	}

	return sb.String()
}

// MarshalBinary implements the encoding.BinaryMarshaler interface. The byte
// buffer has the following format:
// 1. OSC Address Pattern
// 2. OSC Type Tag String
// 3. OSC Arguments
func (m *Message) MarshalBinary() ([]byte, error) {
	data := new(bytes.Buffer)
	if err := m.LightMarshalBinary(data); err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}

// LightMarshalBinary appends the encoded message to data.
func (m *Message) LightMarshalBinary(data *bytes.Buffer) error {
	if !strings.HasPrefix(m.Address, "/") {
		return fmt.Errorf("LightMarshalBinary: invalid address %q", m.Address)
	}

	typetags, err := m.TypeTags()
	if err != nil {
		return fmt.Errorf("LightMarshalBinary: %w", err)
	}

	// Process the arguments first so the payload size can be checked
	payload := new(bytes.Buffer)
	for _, arg := range m.Arguments {
		switch t := arg.(type) {
		case bool, nil:
			continue
		case int32:
			var buf [bit32Size]byte
			binary.BigEndian.PutUint32(buf[:], uint32(t))
			payload.Write(buf[:])
		case float32:
			var buf [bit32Size]byte
			binary.BigEndian.PutUint32(buf[:], math.Float32bits(t))
			payload.Write(buf[:])
		case string:
			writePaddedString(t, payload)
		case []byte:
			if _, err := writeBlob(t, payload); err != nil {
				return err
			}
		}
	}

	if payload.Len() >= MaxPacketSize {
		return fmt.Errorf("LightMarshalBinary: payload too large: %d", payload.Len())
	}

	writePaddedString(m.Address, data)
	writePaddedString(typetags, data)
	data.Write(payload.Bytes())

	if data.Len() >= MaxPacketSize {
		return fmt.Errorf("LightMarshalBinary: packet too large: %d", data.Len())
	}

	return nil
}

// ParseMessage decodes a single OSC message from a datagram.
func ParseMessage(data []byte) (*Message, error) {
	msg := &Message{}
	if err := msg.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return msg, nil
}

// UnmarshalBinary implements the encoding.BinaryUnmarshaler interface.
func (m *Message) UnmarshalBinary(data []byte) error {
	if len(data) == 0 || data[0] != '/' {
		return fmt.Errorf("UnmarshalBinary: %w: not an OSC message", ErrMalformed)
	}

	if (len(data) % bit32Size) != 0 {
		return fmt.Errorf("UnmarshalBinary: %w: data isn't mod 4", ErrMalformed)
	}

	b := bytes.NewBuffer(data)

	// First, read the OSC address
	addr, _, err := readPaddedString(b)
	if err != nil {
		return fmt.Errorf("UnmarshalBinary: %w: %v", ErrMalformed, err)
	}

	// Read all arguments
	m.Address = addr
	if err = m.readArguments(b); err != nil {
		return fmt.Errorf("UnmarshalBinary: %w: %v", ErrMalformed, err)
	}

	return nil
}

// readArguments from `reader` and add them to the OSC message `msg`.
func (m *Message) readArguments(reader *bytes.Buffer) error {
	m.Arguments = nil

	// A message without a type tag string carries no arguments
	if reader.Len() == 0 {
		return nil
	}

	// Read the type tag string
	typetags, _, err := readPaddedString(reader)
	if err != nil {
		return fmt.Errorf("readArguments: %w", err)
	}

	if len(typetags) == 0 {
		return nil
	}

	// If the typetag doesn't start with ',', it's not valid
	if typetags[0] != ',' {
		return fmt.Errorf("unsupported typetag string: %s", typetags)
	}

	m.Arguments = make([]interface{}, 0, len(typetags)-1)

	for _, c := range typetags[1:] {
		switch TypeTag(c) {
		default:
			return fmt.Errorf("unsupported typetag: %c", c)

		case TypeInt32:
			if reader.Len() < bit32Size {
				return fmt.Errorf("readArguments: not enough bits to read")
			}
			m.Arguments = append(m.Arguments, int32(binary.BigEndian.Uint32(reader.Next(bit32Size))))

		case TypeFloat32:
			if reader.Len() < bit32Size {
				return fmt.Errorf("readArguments: not enough bits to read")
			}
			m.Arguments = append(m.Arguments, math.Float32frombits(binary.BigEndian.Uint32(reader.Next(bit32Size))))

		case TypeString:
			str, _, err := readPaddedString(reader)
			if err != nil {
				return fmt.Errorf("readArguments: %w", err)
			}
			m.Arguments = append(m.Arguments, str)

		case TypeBlob:
			buf, _, err := readBlob(reader)
			if err != nil {
				return fmt.Errorf("readArguments: %w", err)
			}
			m.Arguments = append(m.Arguments, buf)

		case TypeNil:
			m.Arguments = append(m.Arguments, nil)

		case TypeTrue:
			m.Arguments = append(m.Arguments, true)

		case TypeFalse:
			m.Arguments = append(m.Arguments, false)
		}
	}

	return nil
}
