// Package signal provides one-shot completion latches used to gate load stages.
package signal

import (
	"context"
	"sync"
)

// Latch is a single-assignment completion signal. The first Fire wins, every
// current and future waiter observes the same terminal error. It never resets.
type Latch struct {
	name string
	once sync.Once
	done chan struct{}
	err  error
}

// New creates an unfired latch.
func New(name string) *Latch {
	return &Latch{name: name, done: make(chan struct{})}
}

// Name returns the latch name used in logs and errors.
func (l *Latch) Name() string {
	return l.name
}

// Fire marks the stage successfully complete.
func (l *Latch) Fire() bool {
	return l.Fail(nil)
}

// Fail marks the stage complete with err. Reports whether this call won.
func (l *Latch) Fail(err error) bool {
	won := false
	l.once.Do(func() {
		l.err = err
		close(l.done)
		won = true
	})
	return won
}

// Done returns a channel closed once the latch fires.
func (l *Latch) Done() <-chan struct{} {
	return l.done
}

// Fired reports whether the latch fired, with or without error.
func (l *Latch) Fired() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Succeeded reports whether the latch fired without error.
func (l *Latch) Succeeded() bool {
	return l.Fired() && l.err == nil
}

// Err returns the terminal error, or nil if unfired or successful.
func (l *Latch) Err() error {
	if !l.Fired() {
		return nil
	}
	return l.err
}

// Wait blocks until the latch fires or ctx is done.
func (l *Latch) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return l.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Waiter is the read side of a Latch handed to consumers of a stage.
type Waiter interface {
	Name() string
	Done() <-chan struct{}
	Fired() bool
	Succeeded() bool
	Err() error
	Wait(ctx context.Context) error
}

var _ Waiter = (*Latch)(nil)
