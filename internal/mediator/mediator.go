package mediator

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNoHandler is returned when a command has no registered handler
	ErrNoHandler = errors.New("mediator: no handler registered")
	// ErrHandlerExists is returned when a command is registered twice
	ErrHandlerExists = errors.New("mediator: handler already registered")
	// ErrUnexpectedResult is returned when a handler result has the wrong type
	ErrUnexpectedResult = errors.New("mediator: unexpected result type")
)

// Mediator dispatches commands to the module that owns them
type Mediator interface {
	Send(ctx context.Context, cmd Command) (interface{}, error)
}

// HandlerFunc handles one command type
type HandlerFunc func(ctx context.Context, cmd Command) (interface{}, error)

// Bus is the in-process Mediator. Handlers are registered at startup.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{handlers: make(map[string]HandlerFunc)}
}

// Register binds a handler to a command name
func (b *Bus) Register(name string, handler HandlerFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.handlers[name]; exists {
		return fmt.Errorf("%w: %s", ErrHandlerExists, name)
	}
	b.handlers[name] = handler
	return nil
}

// Send routes cmd to its handler
func (b *Bus) Send(ctx context.Context, cmd Command) (interface{}, error) {
	if cmd == nil {
		return nil, fmt.Errorf("%w: nil command", ErrNoHandler)
	}

	b.mu.RLock()
	handler, ok := b.handlers[cmd.CommandName()]
	b.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, cmd.CommandName())
	}
	return handler(ctx, cmd)
}

// Handle registers a typed handler for command type C
func Handle[C Command, R any](b *Bus, fn func(ctx context.Context, cmd C) (R, error)) error {
	var zero C
	return b.Register(zero.CommandName(), func(ctx context.Context, cmd Command) (interface{}, error) {
		typed, ok := cmd.(C)
		if !ok {
			return nil, fmt.Errorf("%w: got %T for %s", ErrUnexpectedResult, cmd, zero.CommandName())
		}
		return fn(ctx, typed)
	})
}

// Send dispatches cmd and asserts the result type.
// A nil result yields the zero value of T.
func Send[T any](ctx context.Context, m Mediator, cmd Command) (T, error) {
	var zero T

	result, err := m.Send(ctx, cmd)
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}

	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %T for %s", ErrUnexpectedResult, result, cmd.CommandName())
	}
	return typed, nil
}
