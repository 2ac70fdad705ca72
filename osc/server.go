package osc

import (
	"errors"
	"net"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// Server reads OSC messages from a packet connection and hands each one to
// the Dispatcher on its own goroutine.
type Server struct {
	Dispatcher  *Dispatcher
	ReadTimeout time.Duration
	Logger      *zap.Logger
}

// ListenAndServe listens on addr and serves until the socket fails.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	return s.Serve(ln)
}

// Serve retrieves incoming OSC packets from the given connection and
// dispatches them. It returns nil once c is closed and the error otherwise.
// Datagrams that do not parse are logged and dropped.
func (s *Server) Serve(c net.PacketConn) error {
	if s.Dispatcher == nil {
		s.Dispatcher = &Dispatcher{}
	}

	var tempDelay time.Duration
	for {
		msg, addr, err := s.readFromConnection(c)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if errors.Is(err, ErrMalformed) {
				s.logger().Debug("dropping malformed datagram", zap.String("from", addrString(addr)), zap.Error(err))
				continue
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if max := 1 * time.Second; tempDelay > max {
				return err
			}
			s.logger().Warn("read failed, backing off", zap.Duration("delay", tempDelay), zap.Error(err))
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0
		go s.serve(msg, addr)
	}
}

func (s *Server) serve(m *Message, a net.Addr) {
	defer func() {
		if err := recover(); err != nil {
			buf := make([]byte, 4096)
			buf = buf[:runtime.Stack(buf, false)]
			s.logger().Error("panic in handler",
				zap.String("address", m.Address),
				zap.String("from", addrString(a)),
				zap.Any("panic", err),
				zap.ByteString("stack", buf))
		}
	}()
	s.Dispatcher.Dispatch(m, a)
}

// ReceivePacket reads a single message from c.
func (s *Server) ReceivePacket(c net.PacketConn) (*Message, net.Addr, error) {
	return s.readFromConnection(c)
}

// readFromConnection retrieves OSC packets.
func (s *Server) readFromConnection(c net.PacketConn) (*Message, net.Addr, error) {
	if s.ReadTimeout != 0 {
		if err := c.SetReadDeadline(time.Now().Add(s.ReadTimeout)); err != nil {
			return nil, nil, err
		}
	}

	buf := make([]byte, MaxPacketSize)
	n, a, err := c.ReadFrom(buf)
	if err != nil {
		return nil, a, err
	}

	msg, err := ParseMessage(buf[:n])
	return msg, a, err
}

func (s *Server) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}
