package osc

import (
	"net"
)

// Client enables you to send OSC Packets to a specified server.
type Client struct {
	conn  net.PacketConn
	raddr net.Addr
	owned bool
}

// Dial creates a new OSC Client with its own socket bound to an ephemeral
// local port.
func Dial(addr string) (*Client, error) {
	a, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, raddr: a, owned: true}, nil
}

// NewClient sends through an existing socket, typically the one a Server is
// reading from so that replies come back to it. Close leaves conn open.
func NewClient(conn net.PacketConn, raddr net.Addr) *Client {
	return &Client{conn: conn, raddr: raddr}
}

// Send sends an OSC Packet to the server.
func (c *Client) Send(packet Packet) error {
	data, err := packet.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = c.conn.WriteTo(data, c.raddr)
	return err
}

// RemoteAddr returns the address packets are sent to.
func (c *Client) RemoteAddr() net.Addr {
	return c.raddr
}

// Close closes the connection to the server if the Client opened it.
func (c *Client) Close() error {
	if !c.owned {
		return nil
	}
	return c.conn.Close()
}
