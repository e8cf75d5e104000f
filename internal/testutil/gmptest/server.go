// Package gmptest runs an in-process manager that answers newline-terminated
// commands with scripted, optionally fragmented, XML responses.
package gmptest

import (
	"bufio"
	"crypto/tls"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/gmpctl/internal/protocol/frame"
)

// Handler returns the chunks written back for one received command. Each
// chunk goes out in its own write.
type Handler func(command string) []string

type Server struct {
	ln      net.Listener
	handler Handler

	mu         sync.Mutex
	chunkDelay time.Duration
	commands   []string
	conns      map[net.Conn]struct{}
	closed     bool
	wg         sync.WaitGroup
}

func NewTCP(t testing.TB, h Handler) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen tcp: %v", err)
	}
	return start(t, ln, h)
}

func NewUnix(t testing.TB, h Handler) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gvmd.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen unix: %v", err)
	}
	return start(t, ln, h)
}

func NewTLS(t testing.TB, certFile, keyFile string, h Handler) *Server {
	t.Helper()
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		t.Fatalf("load server cert: %v", err)
	}
	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	})
	if err != nil {
		t.Fatalf("listen tls: %v", err)
	}
	return start(t, ln, h)
}

func start(t testing.TB, ln net.Listener, h Handler) *Server {
	s := &Server{
		ln:      ln,
		handler: h,
		conns:   make(map[net.Conn]struct{}),
	}
	s.wg.Add(1)
	go s.acceptLoop()
	t.Cleanup(s.Close)
	return s
}

// Host and Port are set for tcp listeners.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.ln.Addr().String())
	return host
}

func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.ln.Addr().String())
	n, _ := strconv.Atoi(port)
	return n
}

// Path is set for unix listeners.
func (s *Server) Path() string {
	return s.ln.Addr().String()
}

// SetChunkDelay sets the pause between chunks of one reply.
func (s *Server) SetChunkDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunkDelay = d
}

func (s *Server) delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunkDelay
}

// Commands returns every command received so far, trimmed.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.commands))
	copy(out, s.commands)
	return out
}

// DropClients closes every accepted connection without closing the listener.
func (s *Server) DropClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
}

func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	_ = s.ln.Close()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimSpace(line)
		if cmd == "" {
			continue
		}
		s.mu.Lock()
		s.commands = append(s.commands, cmd)
		s.mu.Unlock()

		for i, chunk := range s.handler(cmd) {
			if delay := s.delay(); i > 0 && delay > 0 {
				time.Sleep(delay)
			}
			if _, err := conn.Write([]byte(chunk)); err != nil {
				return
			}
		}
	}
}

// Script answers the n-th command with the n-th reply and stays silent once
// the script runs out.
func Script(replies ...string) Handler {
	var mu sync.Mutex
	next := 0
	return func(string) []string {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(replies) {
			return nil
		}
		reply := replies[next]
		next++
		return []string{reply}
	}
}

// ByCommand answers by the command's element name.
func ByCommand(replies map[string]string) Handler {
	return func(cmd string) []string {
		reply, ok := replies[frame.RootTag([]byte(cmd))]
		if !ok {
			return nil
		}
		return []string{reply}
	}
}

// Split cuts s into pieces of at most size bytes.
func Split(s string, size int) []string {
	if size <= 0 || len(s) <= size {
		return []string{s}
	}
	var out []string
	for len(s) > size {
		out = append(out, s[:size])
		s = s[size:]
	}
	return append(out, s)
}
