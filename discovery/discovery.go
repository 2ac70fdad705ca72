// Package discovery finds mixers on local /24 subnets by sending every host
// an info probe and collecting the replies that arrive in time.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/audiopilot/audiopilot/codec"
	"github.com/audiopilot/audiopilot/osc"
)

// Defaults for a Scanner.
const (
	DefaultPort    = 10023
	DefaultTimeout = 100 * time.Millisecond
	DefaultWorkers = 100
)

// DefaultSubnets are swept when none are configured.
var DefaultSubnets = []string{"192.168.10", "192.168.1", "192.168.56"}

// ErrSubnet is wrapped for subnet prefixes that are not three octets.
var ErrSubnet = errors.New("discovery: subnet must be three dotted octets")

// Mixer is one discovered device.
type Mixer struct {
	IP   string
	Info string
}

// Scanner sweeps subnets for mixers. The zero value uses the defaults.
type Scanner struct {
	Port    int
	Timeout time.Duration
	Workers int
	Logger  *zap.Logger
}

// Discover probes every host of each subnet ("a.b.c" covers a.b.c.0 through
// a.b.c.255) and returns ip -> device info for each host that answered.
//
// When ctx ends the sweep stops: no new probes start and probes in flight
// are abandoned. The hosts found so far are returned together with
// ctx.Err().
func (s *Scanner) Discover(ctx context.Context, subnets []string) (map[string]string, error) {
	hosts, err := expand(subnets)
	if err != nil {
		return nil, err
	}

	port, timeout, workers := s.Port, s.Timeout, s.Workers
	if port == 0 {
		port = DefaultPort
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	log := s.logger()
	log.Info("sweep started", zap.Strings("subnets", subnets), zap.Int("hosts", len(hosts)))

	var (
		mu    sync.Mutex
		found = make(map[string]string)
	)
	g := new(errgroup.Group)
	g.SetLimit(workers)

	for _, ip := range hosts {
		if ctx.Err() != nil {
			break
		}
		ip := ip
		g.Go(func() error {
			info, err := probe(ctx, net.JoinHostPort(ip, strconv.Itoa(port)), timeout)
			if err != nil {
				log.Debug("no answer", zap.String("ip", ip), zap.Error(err))
				return nil
			}
			mu.Lock()
			found[ip] = info
			mu.Unlock()
			log.Info("mixer found", zap.String("ip", ip), zap.String("info", info))
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		log.Info("sweep canceled", zap.Int("found", len(found)), zap.Error(err))
		return found, err
	}
	log.Info("sweep finished", zap.Int("found", len(found)))
	return found, nil
}

// Mixers runs Discover and returns the result as a list ordered by IP.
func (s *Scanner) Mixers(ctx context.Context, subnets []string) ([]Mixer, error) {
	found, err := s.Discover(ctx, subnets)
	out := make([]Mixer, 0, len(found))
	for ip, info := range found {
		out = append(out, Mixer{IP: ip, Info: info})
	}
	sortMixers(out)
	return out, err
}

func (s *Scanner) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop().With(zap.String("component", "discovery"))
	}
	return s.Logger.With(zap.String("component", "discovery"))
}

// probe sends one info request to addr and waits up to timeout for a reply.
func probe(ctx context.Context, addr string, timeout time.Duration) (string, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return "", err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	// Abandon the read as soon as the sweep is canceled.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	req, err := codec.InfoProbe().MarshalBinary()
	if err != nil {
		return "", err
	}
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return "", err
	}
	if _, err := conn.Write(req); err != nil {
		return "", err
	}

	buf := make([]byte, osc.MaxPacketSize)
	n, err := conn.Read(buf)
	if err != nil {
		return "", err
	}
	return codec.DecodeDeviceInfo(buf[:n])
}

// expand turns subnet prefixes into the 256 host addresses of each.
func expand(subnets []string) ([]string, error) {
	hosts := make([]string, 0, 256*len(subnets))
	for _, subnet := range subnets {
		if !validPrefix(subnet) {
			return nil, fmt.Errorf("%w: %q", ErrSubnet, subnet)
		}
		for i := 0; i < 256; i++ {
			hosts = append(hosts, subnet+"."+strconv.Itoa(i))
		}
	}
	return hosts, nil
}

func validPrefix(subnet string) bool {
	parts := strings.Split(subnet, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 || p != strconv.Itoa(n) {
			return false
		}
	}
	return true
}
