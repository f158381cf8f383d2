// Package kafka publishes one NoticeDetected event per new notice, keyed by
// notice id so updates to the same filing land on one partition.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"hsr-monitor/internal/render"
	"hsr-monitor/internal/sender/strategy"
	kafkautil "hsr-monitor/pkg/kafka"
)

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements the event stream channel.
type Publisher struct {
	writer messageWriter
	topic  string
}

// NewPublisher creates a publisher for brokers and topic. Empty brokers
// yield an unconfigured publisher whose Send is a skip.
func NewPublisher(brokers, topic string) (*Publisher, error) {
	if brokers == "" {
		return &Publisher{topic: topic}, nil
	}
	if err := kafkautil.ValidateProducerParams(brokers, topic); err != nil {
		return nil, err
	}

	brokerList := kafkautil.ParseBrokers(brokers)
	slog.Info("Initializing Kafka producer",
		"brokers", brokerList,
		"topic", topic,
	)

	return &Publisher{
		writer: kafkautil.NewWriter(brokerList, topic),
		topic:  topic,
	}, nil
}

// Type returns the channel name.
func (p *Publisher) Type() string {
	return "kafka"
}

// buildMessage creates a Kafka message from a NoticeDetected event.
func buildMessage(ev render.NoticeEvent, now time.Time) (kafka.Message, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal notice event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(ev.Notice.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.EventType)},
			{Key: "schema_version", Value: []byte(strconv.Itoa(ev.SchemaVersion))},
			{Key: "run_id", Value: []byte(ev.RunID)},
		},
		Time: now,
	}, nil
}

// Send publishes every notice in the alert in one synchronous batch.
func (p *Publisher) Send(ctx context.Context, alert *render.Alert) error {
	if p.writer == nil {
		return strategy.ErrNotConfigured
	}

	events := alert.Events()
	now := time.Now()
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		msg, err := buildMessage(ev, now)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		slog.Error("Failed to write messages to Kafka",
			"topic", p.topic,
			"messages", len(msgs),
			"error", err,
		)
		return fmt.Errorf("failed to write messages to Kafka: %w", err)
	}

	slog.Info("Published notice events",
		"topic", p.topic,
		"messages", len(msgs),
		"run_id", alert.RunID,
	)
	return nil
}

// Close gracefully closes the Kafka writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	slog.Info("Closing Kafka producer", "topic", p.topic)
	return p.writer.Close()
}
