package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sethvargo/go-retry"
	"go.uber.org/atomic"
)

var ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")

type KafkaConfig struct {
	Brokers []string
	Dialer  *kafka.Dialer
	// HandlerRetries is how often a failing message is retried before it is skipped.
	HandlerRetries uint64
}

// Kafka writes with one writer per topic and reads with consumer groups.
// Offsets are committed only after the handler succeeded.
type Kafka struct {
	brokers   []string
	dialer    *kafka.Dialer
	retries   uint64
	retryBase time.Duration

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	closed  atomic.Bool
}

func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	return &Kafka{
		brokers:   cfg.Brokers,
		dialer:    cfg.Dialer,
		retries:   cfg.HandlerRetries,
		retryBase: 200 * time.Millisecond,
		writers:   make(map[string]*kafka.Writer),
	}, nil
}

func (k *Kafka) Close() error {
	if k.closed.Swap(true) {
		return nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	var err error
	for topic, w := range k.writers {
		err = errors.Join(err, w.Close())
		delete(k.writers, topic)
	}
	return err
}

func (k *Kafka) writer(topic string) *kafka.Writer {
	k.mu.Lock()
	defer k.mu.Unlock()

	if w, ok := k.writers[topic]; ok {
		return w
	}

	transport := kafka.DefaultTransport
	if k.dialer != nil {
		transport = &kafka.Transport{Dial: k.dialer.DialFunc, TLS: k.dialer.TLS, SASL: k.dialer.SASLMechanism}
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(k.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Transport:              transport,
	}
	k.writers[topic] = w
	return w
}

func (k *Kafka) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}
	if k.closed.Load() {
		return io.ErrClosedPipe
	}

	kmsg := kafka.Message{Key: msg.Key, Value: msg.Body, Time: time.Now()}
	for _, h := range msg.Headers {
		if h.Key != "" {
			kmsg.Headers = append(kmsg.Headers, kafka.Header{Key: h.Key, Value: h.Value})
		}
	}

	if err := k.writer(destination).WriteMessages(ctx, kmsg); err != nil {
		return fmt.Errorf("messaging: kafka publish: %w", err)
	}
	return nil
}

// Consume reads source in group. Messages are handled one at a time per
// consumer so commits stay in order. A failing message is retried in place
// with backoff and then skipped.
func (k *Kafka) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	if k.closed.Load() {
		return io.ErrClosedPipe
	}

	co := newConsumeOptions(opts...)
	if co.group == "" {
		return ErrGroupRequired
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.brokers,
		GroupID:  co.group,
		Topic:    source,
		MaxBytes: 10e6,
		Dialer:   k.dialer,
	})
	defer reader.Close()

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("messaging: kafka fetch: %w", err)
		}

		backoff := retry.WithMaxRetries(k.retries, retry.NewExponential(k.retryBase))
		herr := retry.Do(ctx, backoff, func(ctx context.Context) error {
			return retry.RetryableError(handle(ctx, DriverKafka, handler, kafkaMessage(m)))
		})
		if herr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.ErrorContext(ctx, "kafka message dropped after retries",
				"topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "error", herr)
		}

		if err := reader.CommitMessages(ctx, m); err != nil {
			return fmt.Errorf("messaging: kafka commit: %w", err)
		}
	}
}

func kafkaMessage(m kafka.Message) *message {
	out := &message{body: m.Value, key: m.Key}
	for _, h := range m.Headers {
		out.headers = append(out.headers, Header{Key: h.Key, Value: h.Value})
	}
	return out
}
