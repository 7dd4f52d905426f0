// Package testutil holds fakes shared by the service tests.
package testutil

import (
	// Go Internal Packages
	"context"
	"encoding/json"
	"sync"
	"time"

	// Local Packages
	models "pix-stream/models"
)

// Publisher records every published message. When Err is set nothing is
// recorded and Err is returned.
type Publisher struct {
	mu       sync.Mutex
	messages []models.Message
	Err      error
}

func (p *Publisher) Publish(_ context.Context, msgs ...models.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.messages = append(p.messages, msgs...)
	return nil
}

func (p *Publisher) Messages() []models.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Message, len(p.messages))
	copy(out, p.messages)
	return out
}

// OnTopic returns the messages published to topic, in order.
func (p *Publisher) OnTopic(topic string) []models.Message {
	var out []models.Message
	for _, m := range p.Messages() {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// Events decodes every published domain event, in order.
func (p *Publisher) Events() []models.Event {
	var out []models.Event
	for _, m := range p.Messages() {
		var ev models.Event
		if err := json.Unmarshal(m.Value, &ev); err == nil && ev.Entity != "" {
			out = append(out, ev)
		}
	}
	return out
}

func (p *Publisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = nil
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Message builds an ingress envelope carrying payload as JSON.
func Message(topic, requestID string, payload any) models.Message {
	value, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return models.Message{
		Topic:   topic,
		Key:     []byte(requestID),
		Headers: map[string]string{models.HeaderRequestID: requestID},
		Value:   value,
	}
}
