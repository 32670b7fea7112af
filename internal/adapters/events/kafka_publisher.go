package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Collinsarusei/giftme-sub000/internal/contracts"
	"github.com/segmentio/kafka-go"
)

type KafkaPublisher struct {
	writer       *kafka.Writer
	topicByEvent map[string]string
}

func NewKafkaPublisher(brokers []string, topicByEvent map[string]string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		topicByEvent: topicByEvent,
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	topic := eventType
	if mapped, ok := p.topicByEvent[eventType]; ok && mapped != "" {
		topic = mapped
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(partitionKey),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaAlerter writes operator alerts straight to the alerts topic, bypassing
// the outbox so an alert still leaves the process when the ledger database is
// the failing component.
type KafkaAlerter struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaAlerter(brokers []string, topic string) (*KafkaAlerter, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka alerter requires at least one broker")
	}
	if topic == "" {
		topic = "ledger.alerts"
	}
	return &KafkaAlerter{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		topic: topic,
	}, nil
}

func (a *KafkaAlerter) Escalate(ctx context.Context, alert contracts.EventEnvelope) error {
	raw, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	return a.writer.WriteMessages(ctx, kafka.Message{
		Topic: a.topic,
		Key:   []byte(alert.PartitionKey),
		Value: raw,
		Time:  time.Now().UTC(),
	})
}

func (a *KafkaAlerter) Close() error {
	return a.writer.Close()
}
