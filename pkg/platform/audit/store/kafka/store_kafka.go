// Package kafka streams audit events to a Kafka topic, one JSON record per
// event keyed by user id.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/audit"
)

// Record is the wire form of an audit event.
type Record struct {
	Category          string    `json:"category"`
	Timestamp         time.Time `json:"timestamp"`
	UserID            string    `json:"user_id,omitempty"`
	Subject           string    `json:"subject,omitempty"`
	Action            string    `json:"action"`
	Reason            string    `json:"reason,omitempty"`
	RequestID         string    `json:"request_id,omitempty"`
	IP                string    `json:"ip,omitempty"`
	Device            string    `json:"device,omitempty"`
	DeviceFingerprint string    `json:"device_fingerprint,omitempty"`
	Provider          string    `json:"provider,omitempty"`
}

// ToRecord converts an event to its wire form.
func ToRecord(e audit.Event) Record {
	r := Record{
		Category:          string(e.Category),
		Timestamp:         e.Timestamp.UTC(),
		Subject:           e.Subject,
		Action:            e.Action,
		Reason:            e.Reason,
		RequestID:         e.RequestID,
		IP:                e.IP,
		Device:            e.Device,
		DeviceFingerprint: e.DeviceFingerprint,
		Provider:          e.Provider,
	}
	if !e.UserID.IsNil() {
		r.UserID = e.UserID.String()
	}
	return r
}

// Producer is the subset of *kgo.Client the store uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Store appends audit events to a topic.
type Store struct {
	producer Producer
	topic    string
}

// New wraps an existing producer.
func New(producer Producer, topic string) *Store {
	return &Store{producer: producer, topic: topic}
}

// Dial connects to brokers and ensures topic exists. The returned close
// function flushes and releases the client.
func Dial(ctx context.Context, brokers []string, topic string) (*Store, func(), error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(10*time.Millisecond),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := EnsureTopic(ctx, kadm.NewClient(client), topic); err != nil {
		client.Close()
		return nil, nil, err
	}
	closeFn := func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Flush(flushCtx)
		client.Close()
	}
	return New(client, topic), closeFn, nil
}

// EnsureTopic creates topic with one partition unless it already exists.
func EnsureTopic(ctx context.Context, admin *kadm.Client, topic string) error {
	resp, err := admin.CreateTopics(ctx, 1, -1, nil, topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create audit topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Append produces event synchronously.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	rec := ToRecord(event)
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	kr := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(rec.UserID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "category", Value: []byte(rec.Category)},
			{Key: "action", Value: []byte(rec.Action)},
		},
	}
	if err := s.producer.ProduceSync(ctx, kr).FirstErr(); err != nil {
		return fmt.Errorf("produce audit record: %w", err)
	}
	return nil
}
