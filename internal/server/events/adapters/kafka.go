package adapters

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/agentstation/matchrules/internal/metrics"
	"github.com/agentstation/matchrules/internal/server/events"
	"github.com/agentstation/matchrules/pkg/errors"
)

// MessageWriter is the part of *kafka.Writer used by KafkaSubscriber.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the Kafka event exporter.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// KafkaSubscriber exports session events to a Kafka topic, keyed by session
// id so the events of one session stay ordered within a partition.
type KafkaSubscriber struct {
	writer  MessageWriter
	topic   string
	timeout time.Duration
	logger  *zerolog.Logger
}

// NewKafkaSubscriber creates a subscriber writing to the configured brokers.
func NewKafkaSubscriber(cfg KafkaConfig, logger *zerolog.Logger) (*KafkaSubscriber, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.NewConfigError("kafka", "no brokers configured", nil)
	}
	if cfg.Topic == "" {
		return nil, errors.NewConfigError("kafka", "no topic configured", nil)
	}
	return NewKafkaSubscriberWithWriter(newKafkaWriter(cfg), cfg.Topic, cfg.WriteTimeout, logger), nil
}

// newKafkaWriter returns a writer for one message per call. Send waits for
// each write, so a batch never holds more than one message.
func newKafkaWriter(cfg KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              1,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaSubscriberWithWriter creates a subscriber around an existing writer.
func NewKafkaSubscriberWithWriter(w MessageWriter, topic string, timeout time.Duration, logger *zerolog.Logger) *KafkaSubscriber {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KafkaSubscriber{writer: w, topic: topic, timeout: timeout, logger: logger}
}

// Send writes one event. The broker calls Send from its own goroutine, so
// the write may block up to the configured timeout.
func (k *KafkaSubscriber) Send(event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.WrapParse("json", "event", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.SessionID),
		Value: data,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "session_id", Value: []byte(event.SessionID)},
		},
	})
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(k.topic, metrics.OutcomeError).Inc()
		return errors.WrapService("kafka", "write", err)
	}
	metrics.EventsPublishedTotal.WithLabelValues(k.topic, metrics.OutcomeSuccess).Inc()
	k.logger.Debug().
		Str("topic", k.topic).
		Str("event_type", string(event.Type)).
		Str("session_id", event.SessionID).
		Msg("Event exported")
	return nil
}

// Close flushes pending messages and closes the writer.
func (k *KafkaSubscriber) Close() error {
	return k.writer.Close()
}
