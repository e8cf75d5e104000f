package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// DialFunc matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Config defines transport defaults for one Conn.
type Config struct {
	ConnectTimeout  time.Duration
	CommandTimeout  time.Duration
	WriteTimeout    time.Duration
	DisconnectGrace time.Duration
	ReadChunkSize   int
	// DialContext overrides the default net.Dialer.
	DialContext DialFunc
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout:  15 * time.Second,
		CommandTimeout:  20 * time.Second,
		WriteTimeout:    15 * time.Second,
		DisconnectGrace: 500 * time.Millisecond,
		ReadChunkSize:   64 * 1024,
	}
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = def.CommandTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.DisconnectGrace <= 0 {
		c.DisconnectGrace = def.DisconnectGrace
	}
	if c.ReadChunkSize <= 0 {
		c.ReadChunkSize = def.ReadChunkSize
	}
	return c
}

type Network string

const (
	NetworkTCP  Network = "tcp"
	NetworkUnix Network = "unix"
)

var ErrInvalidTarget = errors.New("session: invalid target")

// Target is where a Conn connects: a TCP host/port or a unix domain socket.
type Target struct {
	Network    Network
	Host       string
	Port       int
	SocketPath string
	// ConnectTimeout overrides Config.ConnectTimeout when positive.
	ConnectTimeout time.Duration
	// TLS applies to tcp targets only.
	TLS TLSConfig
}

func TCPTarget(host string, port int) Target {
	return Target{Network: NetworkTCP, Host: host, Port: port}
}

func UnixTarget(path string) Target {
	return Target{Network: NetworkUnix, SocketPath: path}
}

func (t Target) Validate() error {
	switch t.Network {
	case NetworkTCP:
		if strings.TrimSpace(t.Host) == "" {
			return fmt.Errorf("%w: missing host", ErrInvalidTarget)
		}
		if t.Port <= 0 || t.Port > 65535 {
			return fmt.Errorf("%w: port %d out of range", ErrInvalidTarget, t.Port)
		}
		return t.TLS.Validate()
	case NetworkUnix:
		if strings.TrimSpace(t.SocketPath) == "" {
			return fmt.Errorf("%w: missing socket path", ErrInvalidTarget)
		}
		if t.TLS.Enabled {
			return fmt.Errorf("%w: tls is not supported on unix sockets", ErrInvalidTarget)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown network %q", ErrInvalidTarget, t.Network)
	}
}

// Address is the dial address for the target's network.
func (t Target) Address() string {
	if t.Network == NetworkUnix {
		return t.SocketPath
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

func (t Target) String() string {
	return string(t.Network) + "://" + t.Address()
}
