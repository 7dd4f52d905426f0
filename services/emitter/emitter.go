package emitter

import (
	// Go Internal Packages
	"context"
	"encoding/json"

	// Local Packages
	errors "pix-stream/errors"
	models "pix-stream/models"

	// External Packages
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, msgs ...models.Message) error
}

// Emitter turns events and commands into bus envelopes.
type Emitter struct {
	publisher Publisher
	logger    *zap.Logger
}

func New(publisher Publisher, logger *zap.Logger) *Emitter {
	return &Emitter{publisher: publisher, logger: logger}
}

// Emit publishes ev on the topic of the state it reports, keyed by entity id
// so the events of one entity stay ordered.
func (e *Emitter) Emit(ctx context.Context, requestID string, ev models.Event) error {
	if err := e.Send(ctx, ev.Topic(), ev.ID, requestID, ev); err != nil {
		return err
	}
	e.logger.Debug("event emitted",
		zap.String("topic", ev.Topic()),
		zap.String("id", ev.ID),
		zap.String("request_id", requestID),
	)
	return nil
}

// Send publishes payload as JSON to topic.
func (e *Emitter) Send(ctx context.Context, topic, key, requestID string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return errors.E(errors.Internal, "cannot encode message for "+topic, err)
	}
	msg := models.Message{
		Topic:   topic,
		Key:     []byte(key),
		Headers: map[string]string{models.HeaderRequestID: requestID},
		Value:   value,
	}
	return e.publisher.Publish(ctx, msg)
}
