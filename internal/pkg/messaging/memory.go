package messaging

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"go.uber.org/atomic"
)

// Memory is an in-process broker for single instance deployments and tests.
// Each group receives every message once; consumers within a group compete.
// A handler error redelivers the message to the same group.
type Memory struct {
	mu     sync.RWMutex
	groups map[string]map[string]chan *message
	closed atomic.Bool
}

func NewMemory() *Memory {
	return &Memory{groups: make(map[string]map[string]chan *message)}
}

const memoryBuffer = 1024

func (m *Memory) channel(topic, group string) chan *message {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.groups[topic] == nil {
		m.groups[topic] = make(map[string]chan *message)
	}
	ch, ok := m.groups[topic][group]
	if !ok {
		ch = make(chan *message, memoryBuffer)
		m.groups[topic][group] = ch
	}
	return ch
}

func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}
	if m.closed.Load() {
		return io.ErrClosedPipe
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ch := range m.groups[destination] {
		select {
		case ch <- &message{body: msg.Body, key: msg.Key, headers: msg.Headers}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Consume registers the group on first use; messages published before that
// are not seen by it.
func (m *Memory) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	if m.closed.Load() {
		return io.ErrClosedPipe
	}

	co := newConsumeOptions(opts...)
	ch := m.channel(source, co.group)

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-ch:
					if err := handle(ctx, DriverMemory, handler, msg); err != nil {
						slog.WarnContext(ctx, "memory broker redelivering message", "topic", source, "error", err)
						select {
						case ch <- msg:
						default:
							slog.ErrorContext(ctx, "memory broker buffer full, message dropped", "topic", source)
						}
					}
				}
			}
		})
	}

	wg.Wait()
	return ctx.Err()
}

func (m *Memory) Close() error {
	m.closed.Store(true)
	return nil
}
