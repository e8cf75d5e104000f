package gmp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/gmpctl/internal/auth"
	"github.com/danmuck/gmpctl/internal/observability"
	"github.com/danmuck/gmpctl/internal/protocol"
	"github.com/danmuck/gmpctl/internal/protocol/frame"
	"github.com/danmuck/gmpctl/internal/protocol/session"
	"github.com/rs/zerolog/log"
)

// Transport carries raw commands to the manager. *session.Conn implements it.
type Transport interface {
	Connect(ctx context.Context, target session.Target) error
	Disconnect() error
	IsConnected() bool
	SendRaw(ctx context.Context, xml string, timeout time.Duration, expectedRootTag string) (string, error)
}

type State string

const (
	StateDisconnected  State = "disconnected"
	StateConnecting    State = "connecting"
	StateConnected     State = "connected"
	StateAuthenticated State = "authenticated"
)

const authenticateCommand = "authenticate"

// ConnectParams are the inputs of one Connect call.
type ConnectParams struct {
	Credentials auth.Credentials
	Target      session.Target
	// Timeout bounds the connect and each authentication command when
	// positive. Target.ConnectTimeout takes precedence for the connect.
	Timeout time.Duration
}

// Session is an authenticated conversation with one manager over one
// Transport. It is safe for concurrent use; commands are serialized by the
// transport.
type Session struct {
	transport      Transport
	commandTimeout time.Duration

	mu        sync.Mutex
	state     State
	lastError string
}

type Option func(*Session)

// WithCommandTimeout sets the default per-command timeout.
func WithCommandTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.commandTimeout = d
		}
	}
}

func NewSession(t Transport, opts ...Option) *Session {
	s := &Session{
		transport:      t,
		commandTimeout: session.DefaultConfig().CommandTimeout,
		state:          StateDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New builds a Session over a fresh session.Conn.
func New(cfg session.Config) *Session {
	cfg = cfg.WithDefaults()
	return NewSession(session.NewConn(cfg), WithCommandTimeout(cfg.CommandTimeout))
}

// Connect opens the transport and authenticates. It reports false on any
// failure, leaves the session disconnected, and records the reason for
// LastError. The last error is reset at the start of every call.
func (s *Session) Connect(ctx context.Context, p ConnectParams) bool {
	s.setLastError("")

	if err := p.Credentials.Validate(); err != nil {
		s.setLastError(err.Error())
		return false
	}

	target := p.Target
	if target.ConnectTimeout <= 0 && p.Timeout > 0 {
		target.ConnectTimeout = p.Timeout
	}

	s.setState(StateConnecting)
	if err := s.transport.Connect(ctx, target); err != nil {
		s.fail(target, err)
		return false
	}
	s.setState(StateConnected)

	ok, err := s.authenticate(ctx, p.Credentials, p.Timeout)
	if err != nil {
		s.fail(target, err)
		return false
	}
	if !ok {
		observability.RecordConnect(string(target.Network), false)
		log.Warn().Str("target", target.String()).Str("user", p.Credentials.Username).Str("reason", s.LastError()).Msg("gmp.Session authentication rejected")
		_ = s.Disconnect()
		return false
	}

	s.setState(StateAuthenticated)
	observability.RecordConnect(string(target.Network), true)
	log.Info().Str("target", target.String()).Str("user", p.Credentials.Username).Msg("gmp.Session authenticated")
	return true
}

func (s *Session) fail(target session.Target, err error) {
	s.setLastError(err.Error())
	observability.RecordConnect(string(target.Network), false)
	log.Warn().Str("target", target.String()).Err(err).Msg("gmp.Session connect failed")
	_ = s.Disconnect()
}

// authenticate tries the nested credentials form, then the flat form. Both
// expect the same response tag; the second verdict is final.
func (s *Session) authenticate(ctx context.Context, creds auth.Credentials, timeout time.Duration) (bool, error) {
	expected := authenticateCommand + protocol.ResponseSuffix

	modern := protocol.NewCommand(authenticateCommand)
	modern.Element("credentials").
		Leaf("username", creds.Username).
		Leaf("password", creds.Password)
	res, err := s.ExecuteCommand(ctx, modern.String(), expected, timeout, false)
	if err != nil {
		return false, err
	}
	if res.OK {
		return true, nil
	}
	log.Warn().Str("user", creds.Username).Str("status", res.Status.RawCode).Msg("gmp.Session nested credentials rejected, retrying flat form")

	legacy := protocol.NewCommand(authenticateCommand).
		Leaf("username", creds.Username).
		Leaf("password", creds.Password)
	res, err = s.ExecuteCommand(ctx, legacy.String(), expected, timeout, false)
	if err != nil {
		return false, err
	}
	return res.OK, nil
}

// Disconnect closes the transport. It is safe to call at any time.
func (s *Session) Disconnect() error {
	s.setState(StateDisconnected)
	return s.transport.Disconnect()
}

// IsConnected reports the session flag and a live transport together.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state != StateConnected && state != StateAuthenticated {
		return false
	}
	return s.transport.IsConnected()
}

func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	return state == StateAuthenticated && s.transport.IsConnected()
}

// State reports disconnected once the transport has dropped, whatever the
// last transition was.
func (s *Session) State() State {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if (state == StateConnected || state == StateAuthenticated) && !s.transport.IsConnected() {
		return StateDisconnected
	}
	return state
}

// LastError returns the most recent recorded failure, or "".
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *Session) setLastError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = msg
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// ExecuteCommand sends one command and interprets the response. A rejected
// command is a result with OK unset, not an error; errors are transport
// faults, malformed responses, or a failed precondition.
func (s *Session) ExecuteCommand(ctx context.Context, xml, expectedRootTag string, timeout time.Duration, requireAuthenticated bool) (*CommandResult, error) {
	if requireAuthenticated {
		if !s.IsAuthenticated() {
			return nil, protocol.ErrNotAuthenticated
		}
	} else if !s.IsConnected() {
		return nil, protocol.ErrNotConnected
	}
	if timeout <= 0 {
		timeout = s.commandTimeout
	}

	command := frame.RootTag([]byte(xml))
	start := time.Now()
	raw, err := s.transport.SendRaw(ctx, xml, timeout, expectedRootTag)
	if err != nil {
		observability.RecordCommand(command, observability.OutcomeError, time.Since(start))
		return nil, err
	}
	doc, err := protocol.ParseDocument(raw)
	if err != nil {
		observability.RecordCommand(command, observability.OutcomeError, time.Since(start))
		return nil, err
	}

	res := newCommandResult(doc)
	if !res.OK {
		s.setLastError(protocol.FailureMessage(res.Status, res.RootTag))
		observability.RecordCommand(command, observability.OutcomeRejected, time.Since(start))
		log.Debug().Str("command", command).Str("root", res.RootTag).Str("status", res.Status.RawCode).Str("text", res.Status.Text).Msg("gmp.Session command rejected")
		return res, nil
	}
	observability.RecordCommand(command, observability.OutcomeOK, time.Since(start))
	return res, nil
}

// ExecuteAuthenticatedCommand is ExecuteCommand on an authenticated session.
func (s *Session) ExecuteAuthenticatedCommand(ctx context.Context, xml, expectedRootTag string, timeout time.Duration) (*CommandResult, error) {
	return s.ExecuteCommand(ctx, xml, expectedRootTag, timeout, true)
}

// ExecuteRawCommand runs caller-built command text. An empty expectedRootTag
// is derived from the outermost element as <name>_response.
func (s *Session) ExecuteRawCommand(ctx context.Context, xml, expectedRootTag string, timeout time.Duration) (*CommandResult, error) {
	if expectedRootTag == "" {
		tag, err := protocol.ResponseTagFor(xml)
		if err != nil {
			return nil, err
		}
		expectedRootTag = tag
	}
	return s.ExecuteAuthenticatedCommand(ctx, xml, expectedRootTag, timeout)
}

func (s *Session) execute(ctx context.Context, cmd *protocol.Command) (*CommandResult, error) {
	return s.ExecuteAuthenticatedCommand(ctx, cmd.String(), cmd.ResponseTag(), 0)
}

func requireID(what, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s id required", protocol.ErrInvalidCommand, what)
	}
	return nil
}
