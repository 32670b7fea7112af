package events

import (
	"context"
	"errors"
	"sync"

	"github.com/Collinsarusei/giftme-sub000/internal/contracts"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
)

type PublishedMessage struct {
	EventType    string
	Payload      []byte
	PartitionKey string
}

// MemoryPublisher records published messages. FailNext makes the next
// publish return an error.
type MemoryPublisher struct {
	mu       sync.Mutex
	messages []PublishedMessage
	failNext bool
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{messages: []PublishedMessage{}}
}

func (p *MemoryPublisher) FailNext() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = true
}

func (p *MemoryPublisher) Publish(_ context.Context, eventType string, payload []byte, partitionKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext {
		p.failNext = false
		return errors.New("broker unavailable")
	}
	p.messages = append(p.messages, PublishedMessage{EventType: eventType, Payload: payload, PartitionKey: partitionKey})
	return nil
}

func (p *MemoryPublisher) Messages() []PublishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PublishedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

type MemoryAlerter struct {
	mu     sync.Mutex
	alerts []contracts.EventEnvelope
}

func NewMemoryAlerter() *MemoryAlerter {
	return &MemoryAlerter{alerts: []contracts.EventEnvelope{}}
}

func (a *MemoryAlerter) Escalate(_ context.Context, alert contracts.EventEnvelope) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, alert)
	return nil
}

func (a *MemoryAlerter) Alerts() []contracts.EventEnvelope {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]contracts.EventEnvelope, len(a.alerts))
	copy(out, a.alerts)
	return out
}

var (
	_ ports.EventPublisher = (*MemoryPublisher)(nil)
	_ ports.AlertPublisher = (*MemoryAlerter)(nil)
)
