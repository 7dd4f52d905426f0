// Package deadletter records messages whose transition could not be applied
// and moves the affected entity to its family's error state.
package deadletter

import (
	// Go Internal Packages
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	// Local Packages
	errors "pix-stream/errors"
	models "pix-stream/models"

	// External Packages
	"go.uber.org/zap"
)

type FailedStore interface {
	Create(ctx context.Context, f models.FailedTransition) error
	GetByID(ctx context.Context, id string) (*models.FailedTransition, error)
}

// Failer moves an entity to its error state; engines implement it.
type Failer interface {
	Fail(ctx context.Context, requestID, id string, f models.Failure) (bool, error)
}

type Emitter interface {
	Emit(ctx context.Context, requestID string, ev models.Event) error
}

// Resolver extracts the id of the entity a failed message was about. An
// empty id means the message never reached an entity.
type Resolver func(ctx context.Context, msg models.Message) (string, error)

type Handler struct {
	entity  string
	failed  FailedStore
	failer  Failer
	resolve Resolver
	emitter Emitter
	now     func() time.Time
	logger  *zap.Logger
}

func New(entity string, failed FailedStore, failer Failer, resolve Resolver, emitter Emitter, now func() time.Time, logger *zap.Logger) *Handler {
	if now == nil {
		now = time.Now
	}
	if resolve == nil {
		resolve = ByID
	}
	return &Handler{
		entity:  entity,
		failed:  failed,
		failer:  failer,
		resolve: resolve,
		emitter: emitter,
		now:     now,
		logger:  logger.With(zap.String("entity", entity)),
	}
}

// Handle records msg once per correlation id, then fails the entity.
func (h *Handler) Handle(ctx context.Context, msg models.Message) error {
	correlationID := CorrelationID(h.entity, msg)
	requestID := msg.RequestID()
	if requestID == "" {
		requestID = correlationID
	}
	existing, err := h.failed.GetByID(ctx, correlationID)
	if err != nil {
		return err
	}
	if existing != nil {
		h.logger.Debug("dead letter already recorded", zap.String("correlation_id", correlationID))
		return nil
	}

	entityID, err := h.resolve(ctx, msg)
	if err != nil {
		h.logger.Warn("cannot resolve dead-lettered entity", zap.String("correlation_id", correlationID), zap.Error(err))
	}

	failure := models.Failure{Code: msg.Headers[models.HeaderDeadLetterCode], Message: msg.Headers[models.HeaderDeadLetterError]}
	if failure.Code == "" {
		failure.Code = "DEAD_LETTER"
	}
	if failure.Message == "" {
		failure.Message = "transition failed after redelivery"
	}

	record := models.FailedTransition{
		ID:        correlationID,
		Entity:    h.entity,
		EntityID:  entityID,
		Topic:     sourceTopic(msg),
		Code:      failure.Code,
		Message:   failure.Message,
		Payload:   msg.Value,
		CreatedAt: h.now().UTC(),
	}
	if err := h.failed.Create(ctx, record); err != nil {
		if errors.IsErr(err, errors.ErrDuplicate) {
			return nil
		}
		return err
	}
	h.logger.Warn("transition dead-lettered",
		zap.String("correlation_id", correlationID),
		zap.String("entity_id", entityID),
		zap.String("code", failure.Code),
	)

	if entityID != "" {
		moved, err := h.failer.Fail(ctx, requestID, entityID, failure)
		if err != nil {
			return err
		}
		if moved {
			return nil
		}
	}

	// the entity has no error state, is missing or already terminal
	return h.emitter.Emit(ctx, requestID, models.Event{
		ID:         entityID,
		Entity:     h.entity,
		State:      models.StateError,
		Failure:    &failure,
		OccurredAt: h.now().UTC(),
	})
}

// CorrelationID identifies one failed transition: the entity, the topic the
// message failed on and its request id, or a digest of its payload when the
// producer set none. One request may drive several families and steps.
func CorrelationID(entity string, msg models.Message) string {
	id := msg.RequestID()
	if id == "" {
		sum := sha256.Sum256(msg.Value)
		id = hex.EncodeToString(sum[:])
	}
	return strings.Join([]string{entity, sourceTopic(msg), id}, ":")
}

func sourceTopic(msg models.Message) string {
	if topic := msg.Headers[models.HeaderDeadLetterTopic]; topic != "" {
		return topic
	}
	return msg.Topic
}

type reference struct {
	ID         string `json:"id"`
	ExternalID string `json:"externalId"`
}

// ByID resolves the entity from the payload's id field.
func ByID(_ context.Context, msg models.Message) (string, error) {
	var ref reference
	if err := json.Unmarshal(msg.Value, &ref); err != nil {
		return "", errors.InvalidBodyErr(err)
	}
	return ref.ID, nil
}

// ExternalLookup finds an entity id by counterparty reference.
type ExternalLookup func(ctx context.Context, externalID string) (string, error)

// ByIDOrExternalID falls back to an external id lookup when the payload
// carries no id.
func ByIDOrExternalID(lookup ExternalLookup) Resolver {
	return func(ctx context.Context, msg models.Message) (string, error) {
		var ref reference
		if err := json.Unmarshal(msg.Value, &ref); err != nil {
			return "", errors.InvalidBodyErr(err)
		}
		if ref.ID != "" || ref.ExternalID == "" {
			return ref.ID, nil
		}
		return lookup(ctx, ref.ExternalID)
	}
}

// ByNotification resolves the notification a hub message created.
func ByNotification(family string) Resolver {
	return func(_ context.Context, msg models.Message) (string, error) {
		if msg.RequestID() == "" {
			return "", nil
		}
		return models.NotificationID(family, msg.RequestID()), nil
	}
}
