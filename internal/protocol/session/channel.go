package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

var ErrCommandInFlight = errors.New("session: command already in flight")

// PendingCommand tracks the one command that owns the wire.
type PendingCommand struct {
	ID          uuid.UUID
	Command     string
	ExpectedTag string
	QueuedAt    time.Time
	StartedAt   time.Time
}

func NewPendingCommand(command, expectedTag string) PendingCommand {
	return PendingCommand{
		ID:          uuid.New(),
		Command:     command,
		ExpectedTag: expectedTag,
		QueuedAt:    time.Now(),
	}
}

// Channel admits one command at a time onto a connection. Waiters are served
// in the order they arrived.
type Channel struct {
	gate *semaphore.Weighted

	mu      sync.Mutex
	current *PendingCommand
	queued  int
}

func NewChannel() *Channel {
	return &Channel{gate: semaphore.NewWeighted(1)}
}

// Do waits for the channel, runs fn, and releases the channel whatever fn
// returns. It fails only when ctx ends while waiting.
func (ch *Channel) Do(ctx context.Context, cmd PendingCommand, fn func(context.Context) error) error {
	ch.mu.Lock()
	ch.queued++
	ch.mu.Unlock()

	err := ch.gate.Acquire(ctx, 1)

	ch.mu.Lock()
	ch.queued--
	ch.mu.Unlock()
	if err != nil {
		return err
	}
	defer ch.gate.Release(1)

	if err := ch.begin(cmd); err != nil {
		return err
	}
	defer ch.end()
	return fn(ctx)
}

func (ch *Channel) begin(cmd PendingCommand) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.current != nil {
		return fmt.Errorf("%w: id=%s command=%q", ErrCommandInFlight, ch.current.ID, ch.current.Command)
	}
	cmd.StartedAt = time.Now()
	ch.current = &cmd
	return nil
}

func (ch *Channel) end() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.current = nil
}

// InFlight returns the command currently on the wire, if any.
func (ch *Channel) InFlight() (PendingCommand, bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.current == nil {
		return PendingCommand{}, false
	}
	return *ch.current, true
}

// Queued returns the number of callers waiting for the channel.
func (ch *Channel) Queued() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.queued
}
