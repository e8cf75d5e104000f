package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/gmpctl/internal/observability"
	"github.com/danmuck/gmpctl/internal/protocol"
	"github.com/danmuck/gmpctl/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

// Conn owns one socket to the manager and the receive buffer fed to the
// framer. Commands are serialized by its Channel.
type Conn struct {
	cfg     Config
	channel *Channel

	mu     sync.Mutex
	conn   net.Conn
	target Target
	buf    []byte
}

func NewConn(cfg Config) *Conn {
	return &Conn{
		cfg:     cfg.WithDefaults(),
		channel: NewChannel(),
	}
}

// Channel exposes the command gate for inspection.
func (c *Conn) Channel() *Channel {
	return c.channel
}

// Connect dials target. An existing socket is closed first. A failed connect
// leaves no half-open socket behind.
func (c *Conn) Connect(ctx context.Context, target Target) error {
	if err := target.Validate(); err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrConnectError, err)
	}
	if c.IsConnected() {
		_ = c.Disconnect()
	}

	timeout := target.ConnectTimeout
	if timeout <= 0 {
		timeout = c.cfg.ConnectTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := c.dial(dialCtx, target)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(dialCtx.Err(), context.DeadlineExceeded) || isTimeout(err) {
			return fmt.Errorf("%w: %s after %s", protocol.ErrConnectTimeout, target, timeout)
		}
		return fmt.Errorf("%w: %s: %v", protocol.ErrConnectError, target, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.target = target
	c.buf = c.buf[:0]
	c.mu.Unlock()
	log.Debug().Str("target", target.String()).Bool("tls", target.TLS.Enabled).Msg("session.Conn connected")
	return nil
}

func (c *Conn) dial(ctx context.Context, target Target) (net.Conn, error) {
	dial := c.cfg.DialContext
	if dial == nil {
		dialer := &net.Dialer{KeepAlive: 30 * time.Second}
		dial = dialer.DialContext
	}
	raw, err := dial(ctx, string(target.Network), target.Address())
	if err != nil {
		return nil, err
	}
	if tcp, ok := raw.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
		_ = tcp.SetKeepAlive(true)
	}
	if !target.TLS.Enabled {
		return raw, nil
	}

	tlsCfg, err := target.TLS.clientConfig(target.Host)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	conn := tls.Client(raw, tlsCfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	return conn, nil
}

// Disconnect half-closes the socket, waits up to DisconnectGrace for the peer
// to finish, then closes it. Calling it on a closed Conn is a no-op.
func (c *Conn) Disconnect() error {
	c.mu.Lock()
	conn := c.conn
	target := c.target
	c.conn = nil
	c.buf = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	err := closeGracefully(conn, c.cfg.DisconnectGrace)
	log.Debug().Str("target", target.String()).Msg("session.Conn disconnected")
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func closeGracefully(conn net.Conn, grace time.Duration) error {
	type closeWriter interface {
		CloseWrite() error
	}
	if cw, ok := conn.(closeWriter); ok {
		if err := cw.CloseWrite(); err == nil {
			_ = conn.SetReadDeadline(time.Now().Add(grace))
			_, _ = io.Copy(io.Discard, conn)
		}
	}
	return conn.Close()
}

// IsConnected reports whether a socket is open. Sockets are dropped on peer
// close and on I/O failure, not only on Disconnect.
func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// SendRaw writes one command and waits for the first document whose root tag
// is expectedRootTag, or any document when it is empty. Documents with other
// root tags are discarded. timeout bounds the write and the wait; zero means
// Config.CommandTimeout.
func (c *Conn) SendRaw(ctx context.Context, xml string, timeout time.Duration, expectedRootTag string) (string, error) {
	if timeout <= 0 {
		timeout = c.cfg.CommandTimeout
	}
	pending := NewPendingCommand(frame.RootTag([]byte(xml)), expectedRootTag)

	var response string
	err := c.channel.Do(ctx, pending, func(ctx context.Context) error {
		conn := c.current()
		if conn == nil {
			return protocol.ErrNotConnected
		}
		deadline := time.Now().Add(timeout)
		if err := c.write(ctx, conn, xml, deadline); err != nil {
			return err
		}
		doc, err := c.await(ctx, conn, deadline, timeout, expectedRootTag)
		if err != nil {
			log.Warn().
				Str("id", pending.ID.String()).
				Str("command", pending.Command).
				Str("expect", expectedRootTag).
				Err(err).
				Msg("session.Conn command failed")
			return err
		}
		response = doc
		return nil
	})
	return response, err
}

func (c *Conn) write(ctx context.Context, conn net.Conn, xml string, deadline time.Time) error {
	writeDeadline := time.Now().Add(c.cfg.WriteTimeout)
	if deadline.Before(writeDeadline) {
		writeDeadline = deadline
	}
	if err := conn.SetWriteDeadline(earliest(ctx, writeDeadline)); err != nil {
		return c.ioFailure(conn, err)
	}
	payload := strings.TrimSpace(xml) + "\n"
	if _, err := io.WriteString(conn, payload); err != nil {
		// A partial write leaves the stream in an unknown state, so the
		// socket is dropped even on timeout.
		failure := c.ioFailure(conn, err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return failure
	}
	return nil
}

func (c *Conn) await(ctx context.Context, conn net.Conn, deadline time.Time, timeout time.Duration, expected string) (string, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	chunk := make([]byte, c.cfg.ReadChunkSize)
	var readErr error
	for {
		if doc, ok := c.take(conn); ok {
			root := frame.RootTag([]byte(doc))
			if expected == "" || root == expected {
				return doc, nil
			}
			observability.RecordDiscardedDocument(root)
			log.Debug().Str("root", root).Str("expect", expected).Msg("session.Conn discarded document")
			continue
		}
		if readErr != nil {
			return "", readErr
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !time.Now().Before(deadline) {
			return "", readTimeout(expected, timeout)
		}
		if err := conn.SetReadDeadline(earliest(ctx, deadline)); err != nil {
			return "", c.ioFailure(conn, err)
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := conn.Read(chunk)
		if n > 0 {
			c.append(conn, chunk[:n])
		}
		if err != nil {
			readErr = c.readFailure(ctx, conn, err, expected, timeout)
		}
	}
}

func (c *Conn) readFailure(ctx context.Context, conn net.Conn, err error, expected string, timeout time.Duration) error {
	if isTimeout(err) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if c.current() != conn {
			return fmt.Errorf("%w: disconnected while waiting", protocol.ErrSocketClosed)
		}
		return readTimeout(expected, timeout)
	}
	if errors.Is(err, io.EOF) {
		c.drop(conn)
		return fmt.Errorf("%w: peer closed while waiting for response", protocol.ErrSocketClosed)
	}
	if errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: disconnected while waiting", protocol.ErrSocketClosed)
	}
	return c.ioFailure(conn, err)
}

func (c *Conn) ioFailure(conn net.Conn, err error) error {
	c.drop(conn)
	if errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: %v", protocol.ErrSocketClosed, err)
	}
	return fmt.Errorf("%w: %v", protocol.ErrSocketError, err)
}

func readTimeout(expected string, timeout time.Duration) error {
	if expected == "" {
		return fmt.Errorf("%w: no response after %s", protocol.ErrReadTimeout, timeout)
	}
	return fmt.Errorf("%w: no %s after %s", protocol.ErrReadTimeout, expected, timeout)
}

func (c *Conn) current() net.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// take removes the first complete document from the buffer of conn.
func (c *Conn) take(conn net.Conn) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return "", false
	}
	doc, rest, ok := frame.Extract(c.buf)
	if !ok {
		return "", false
	}
	out := string(doc)
	c.buf = append(c.buf[:0], rest...)
	return out, true
}

func (c *Conn) append(conn net.Conn, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return
	}
	c.buf = append(c.buf, data...)
}

// Buffered returns the number of received bytes not yet framed.
func (c *Conn) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}

// drop forgets conn if it is still current and closes it.
func (c *Conn) drop(conn net.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.buf = nil
	}
	c.mu.Unlock()
	_ = conn.Close()
}

func earliest(ctx context.Context, deadline time.Time) time.Time {
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		return ctxDeadline
	}
	return deadline
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
