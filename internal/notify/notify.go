// Package notify carries membership events to external observers: an
// optional Kafka publish, and the sidecar stdout line format the desktop
// shell's child-process reader expects.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"
)

// Level is a notification's severity.
type Level string

const (
	LevelError   Level = "Error"
	LevelWarn    Level = "Warn"
	LevelInfo    Level = "Info"
	LevelDebug   Level = "Debug"
	LevelTrace   Level = "Trace"
	LevelSuccess Level = "Success"
)

// stdoutPrefix marks a sidecar notification line amid ordinary log output.
const stdoutPrefix = "@=@=@=>"

type payload struct {
	Message string `json:"message"`
	Level   Level  `json:"level"`
}

// PublishStdout writes one notification line to stdout for the desktop
// shell to pick out of the worker's ordinary log stream when running as a
// sidecar.
func PublishStdout(message string, level Level) error {
	b, err := json.Marshal(payload{Message: message, Level: level})
	if err != nil {
		return fmt.Errorf("notify: encode: %w", err)
	}
	fmt.Println(stdoutPrefix + string(b))
	return nil
}

// ReadStdout extracts the JSON payload from a line if it carries the
// sidecar notification prefix, returning ok=false for an ordinary log line.
func ReadStdout(line string) (message string, level Level, ok bool) {
	if !strings.HasPrefix(line, stdoutPrefix) {
		return "", "", false
	}
	var p payload
	if err := json.Unmarshal([]byte(strings.TrimPrefix(line, stdoutPrefix)), &p); err != nil {
		return "", "", false
	}
	return p.Message, p.Level, true
}

// Bus publishes membership events to a Kafka topic for external observers.
// It is additive: the coordinator's in-process registry update never
// depends on this succeeding.
type Bus struct {
	writer *kafka.Writer
	topic  string
}

// NewBus creates a Kafka producer from a comma-separated broker list.
func NewBus(brokers, topic string) (*Bus, error) {
	brokers = strings.TrimSpace(brokers)
	if brokers == "" {
		return nil, fmt.Errorf("notify: kafka brokers cannot be empty")
	}
	brokerList := strings.Split(brokers, ",")
	for i, b := range brokerList {
		brokerList[i] = strings.TrimSpace(b)
	}
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokerList...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &Bus{writer: w, topic: topic}, nil
}

// MembershipMessage is the JSON body published for each join/leave event.
type MembershipMessage struct {
	Event   string `json:"event"` // "joined" | "left"
	ActorID string `json:"actor_id"`
	Kind    string `json:"kind,omitempty"`
	Name    string `json:"name,omitempty"`
}

// Publish writes one membership message to the configured topic.
func (b *Bus) Publish(ctx context.Context, msg MembershipMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: encode membership message: %w", err)
	}
	err = b.writer.WriteMessages(ctx, kafka.Message{Key: []byte(msg.ActorID), Value: body})
	if err != nil {
		return fmt.Errorf("notify: publish to %s: %w", b.topic, err)
	}
	return nil
}

// Close flushes and closes the underlying Kafka writer.
func (b *Bus) Close() error {
	return b.writer.Close()
}
