// Package observers binds use cases to bus topics. Each Registration becomes
// one consumer group.
package observers

import (
	// Go Internal Packages
	"context"

	// Local Packages
	errors "pix-stream/errors"
	kafka "pix-stream/kafka"
	models "pix-stream/models"

	// External Packages
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var deadLettered = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pix_stream",
	Name:      "dead_lettered_total",
	Help:      "Messages republished to a dead-letter topic, by source topic.",
}, []string{"topic"})

type Publisher interface {
	Publish(ctx context.Context, msgs ...models.Message) error
}

// Parker keeps dead-letter copies the bus refused.
type Parker interface {
	Send(ctx context.Context, msgs []models.Message) error
}

// Registration is one observer: a consumer group over topics.
type Registration struct {
	Name    string
	Topics  []string
	Handler kafka.HandlerFunc
}

type Observer struct {
	publisher Publisher
	parker    Parker
	logger    *zap.Logger
}

func New(publisher Publisher, parker Parker, logger *zap.Logger) *Observer {
	return &Observer{publisher: publisher, parker: parker, logger: logger}
}

// WithDeadLetter republishes a message to deadLetterTopic once its handler
// failed for good: on the last redelivery, or at once for an invalid payload.
// Earlier failures only return the error so the consumer redelivers it.
func (o *Observer) WithDeadLetter(deadLetterTopic string, h kafka.HandlerFunc) kafka.HandlerFunc {
	return func(ctx context.Context, msg models.Message) error {
		err := h(ctx, msg)
		if err == nil {
			return nil
		}
		if !kafka.FinalAttempt(ctx) && !errors.Is(errors.Invalid, err) {
			return err
		}

		dl := msg.Forward(deadLetterTopic)
		dl.Headers[models.HeaderDeadLetterTopic] = msg.Topic
		dl.Headers[models.HeaderDeadLetterCode] = errors.CodeOf(err)
		dl.Headers[models.HeaderDeadLetterError] = errors.MessageOf(err)
		deadLettered.WithLabelValues(msg.Topic).Inc()

		if perr := o.publisher.Publish(ctx, dl); perr != nil {
			o.logger.Error("cannot publish dead letter, parking it",
				zap.String("topic", deadLetterTopic),
				zap.String("request_id", msg.RequestID()),
				zap.Error(perr),
			)
			if perr := o.parker.Send(ctx, []models.Message{dl}); perr != nil {
				o.logger.Error("cannot park dead letter", zap.String("request_id", msg.RequestID()), zap.Error(perr))
			}
		}
		return err
	}
}

// Forward republishes ingress notifications to the hub topic unchanged.
func (o *Observer) Forward(topic string) kafka.HandlerFunc {
	return func(ctx context.Context, msg models.Message) error {
		return o.publisher.Publish(ctx, msg.Forward(topic))
	}
}

// Terminal wraps a dead-letter handler: failures are logged, never returned,
// so a dead-letter topic cannot cascade.
func (o *Observer) Terminal(h kafka.HandlerFunc) kafka.HandlerFunc {
	return func(ctx context.Context, msg models.Message) error {
		if err := h(ctx, msg); err != nil {
			o.logger.Error("dead-letter handling failed",
				zap.String("topic", msg.Topic),
				zap.String("request_id", msg.RequestID()),
				zap.Error(err),
			)
		}
		return nil
	}
}

// Handle decodes a payload before calling fn with the message request id.
func Handle[T models.Validator, R any](fn func(ctx context.Context, requestID string, payload T) (R, error)) kafka.HandlerFunc {
	return func(ctx context.Context, msg models.Message) error {
		payload, err := models.Decode[T](msg.Value)
		if err != nil {
			return err
		}
		_, err = fn(ctx, msg.RequestID(), payload)
		return err
	}
}

// HandleEvent is Handle for steps driven by another entity's event, keyed by
// the event's entity id.
func HandleEvent[R any](fn func(ctx context.Context, requestID, id string) (R, error)) kafka.HandlerFunc {
	return Handle(func(ctx context.Context, requestID string, ev models.Event) (R, error) {
		return fn(ctx, requestID, ev.ID)
	})
}
