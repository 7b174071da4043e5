package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"

	"github.com/samber/lo"
	"github.com/shandysiswandi/otpgate/internal/pkg/stacktrace"
)

var (
	ErrDestinationRequired = errors.New("messaging: destination is required")
	ErrHandlerRequired     = errors.New("messaging: handler is required")
	ErrGroupRequired       = errors.New("messaging: consumer group is required")
)

// Messaging publishes and consumes messages.
type Messaging interface {
	io.Closer

	Publish(ctx context.Context, destination string, msg OutgoingMessage) error
	// Consume blocks until ctx is done or the subscription fails. A nil
	// handler result acks the message; an error requests redelivery.
	Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error
}

type Handler func(ctx context.Context, msg Message) error

type Header struct {
	Key   string
	Value []byte
}

type OutgoingMessage struct {
	Body []byte
	// Key is the Kafka partition key. Other drivers ignore it.
	Key     []byte
	Headers []Header
}

// Message is a received message.
type Message interface {
	Body() []byte
	Key() []byte
	Headers() []Header
	// Header returns the first value of key, or "".
	Header(key string) string
}

type message struct {
	body    []byte
	key     []byte
	headers []Header
}

func (m *message) Body() []byte      { return m.body }
func (m *message) Key() []byte       { return m.key }
func (m *message) Headers() []Header { return m.headers }

func (m *message) Header(key string) string {
	h, ok := lo.Find(m.headers, func(h Header) bool { return h.Key == key })
	if !ok {
		return ""
	}
	return string(h.Value)
}

// handle runs the handler and turns a panic into an error so the message is
// redelivered instead of crashing the consumer.
func handle(ctx context.Context, driver string, handler Handler, msg Message) (err error) {
	defer func() {
		rvr := recover()
		if rvr == nil {
			return
		}

		stack := debug.Stack()
		if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
			slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "because", rvr, "stack", paths)
		} else {
			slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "because", rvr, "stack", string(stack))
		}
		err = fmt.Errorf("messaging: panic in %s handler: %v", driver, rvr)
	}()

	return handler(ctx, msg)
}
