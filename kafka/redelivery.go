package kafka

import (
	// Go Internal Packages
	"context"
	"time"

	// Local Packages
	errors "pix-stream/errors"
	models "pix-stream/models"

	// External Packages
	"go.uber.org/zap"
)

const defaultBackoff = 200 * time.Millisecond

// Redeliverer bounds how many times a failed message is handed back to its
// handler before the consumer moves past it.
type Redeliverer struct {
	MaxRedeliveries int
	Backoff         time.Duration
	Logger          *zap.Logger
}

func NewRedeliverer(maxRedeliveries int, logger *zap.Logger) *Redeliverer {
	if maxRedeliveries < 0 {
		maxRedeliveries = 0
	}
	return &Redeliverer{MaxRedeliveries: maxRedeliveries, Backoff: defaultBackoff, Logger: logger}
}

type attemptKey struct{}

type delivery struct {
	attempt, last int
}

// FinalAttempt reports whether the handler call behind ctx is the last one
// the Redeliverer will make for its message. Calls outside a Redeliverer are
// always final.
func FinalAttempt(ctx context.Context) bool {
	d, ok := ctx.Value(attemptKey{}).(delivery)
	return !ok || d.attempt >= d.last
}

// Deliver calls handler at most 1+MaxRedeliveries times and returns the last
// error. Invalid payloads fail the same way on every attempt and are not
// redelivered.
func (r *Redeliverer) Deliver(ctx context.Context, msg models.Message, handler HandlerFunc) error {
	var err error
	for attempt := 0; attempt <= r.MaxRedeliveries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * r.Backoff):
			}
		}
		actx := context.WithValue(ctx, attemptKey{}, delivery{attempt: attempt, last: r.MaxRedeliveries})
		if err = handler(actx, msg); err == nil {
			return nil
		}
		r.Logger.Warn("handler failed",
			zap.String("topic", msg.Topic),
			zap.String("request_id", msg.RequestID()),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		if errors.Is(errors.Invalid, err) {
			break
		}
	}
	r.Logger.Error("redeliveries exhausted, committing past message",
		zap.String("topic", msg.Topic),
		zap.String("request_id", msg.RequestID()),
		zap.Int64("offset", msg.Offset),
		zap.Error(err),
	)
	return err
}
