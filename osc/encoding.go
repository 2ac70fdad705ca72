package osc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	bit32Size = 4

	// MaxPacketSize is the largest datagram the server reads and the largest
	// message the client will marshal.
	MaxPacketSize = 65507
)

////
// De/Encoding functions
////

// readBlob reads an OSC blob from the reader. Padding bytes are removed from
// the reader and not returned.
func readBlob(reader *bytes.Buffer) ([]byte, int, error) {
	if reader.Len() < bit32Size {
		return nil, 0, fmt.Errorf("readBlob: %w", io.ErrUnexpectedEOF)
	}

	// First, get the length
	blobLen := int(binary.BigEndian.Uint32(reader.Next(bit32Size)))
	if blobLen < 0 || blobLen > reader.Len() {
		return nil, 0, fmt.Errorf("readBlob: invalid blob length %d", blobLen)
	}

	blob := make([]byte, blobLen)
	copy(blob, reader.Next(blobLen))

	pad := padBytesNeeded(blobLen)
	if pad > reader.Len() {
		return nil, 0, fmt.Errorf("readBlob: %w", io.ErrUnexpectedEOF)
	}
	reader.Next(pad)

	return blob, bit32Size + blobLen + pad, nil
}

// writeBlob writes the data byte array as an OSC blob into buff. If the length
// of data isn't 32-bit aligned, padding bytes will be added.
func writeBlob(data []byte, buf *bytes.Buffer) (int, error) {
	if len(data) >= MaxPacketSize {
		return 0, fmt.Errorf("writeBlob: blob too large: %d", len(data))
	}

	// Add the size of the blob
	var size [bit32Size]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(data)))
	buf.Write(size[:])

	// Write the data
	buf.Write(data)

	pad := padBytesNeeded(len(data))
	buf.Write(zeroes[:pad])

	return bit32Size + len(data) + pad, nil
}

// readPaddedString reads a padded string from the given reader. The padding
// bytes are removed from the reader.
func readPaddedString(reader *bytes.Buffer) (string, int, error) {
	// Read the string from the reader
	str, err := reader.ReadString(0)
	if err != nil {
		return "", 0, io.EOF
	}
	n := len(str)

	// Remove the padding bytes (leaving the null delimiter)
	pad := padBytesNeeded(n)
	if pad > reader.Len() {
		return "", 0, io.ErrUnexpectedEOF
	}
	reader.Next(pad)

	// Strip off the string delimiter
	return str[:n-1], n + pad, nil
}

// writePaddedString writes a string with padding bytes to the buffer.
// Returns the number of written bytes.
func writePaddedString(str string, buf *bytes.Buffer) int {
	// Write the string to the buffer
	buf.WriteString(str)
	n := len(str)

	// Add the NUL delimiter and pad to the next 32-bit boundary
	numPadBytes := padBytesNeeded(n + 1)
	buf.Write(zeroes[:numPadBytes+1])

	return n + 1 + numPadBytes
}

// padBytesNeeded determines how many bytes are needed to fill up to the next 4
// byte length.
func padBytesNeeded(elementLen int) int {
	return (4 - (elementLen % 4)) % 4
}

var zeroes = [bit32Size + 1]byte{}
