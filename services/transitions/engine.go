// Package transitions runs the guarded transition contract shared by every
// entity family: check the predecessor state, run the side effect, persist
// with a compare-and-set on the previous state, then emit one event.
package transitions

import (
	// Go Internal Packages
	"context"
	"fmt"
	"time"

	// Local Packages
	errors "pix-stream/errors"
	models "pix-stream/models"

	// External Packages
	"go.uber.org/zap"
)

// ErrSkip returned by an Effect leaves the entity untouched.
var ErrSkip = errors.New("transition skipped")

type Store[T models.Entity] interface {
	Create(ctx context.Context, entity T) (T, error)
	GetByID(ctx context.Context, id string) (T, error)
	GetByExternalID(ctx context.Context, externalID string) (T, error)
	// Update writes entity only while the stored state still equals from.
	Update(ctx context.Context, entity T, from models.State) (bool, error)
}

type Emitter interface {
	Emit(ctx context.Context, requestID string, ev models.Event) error
}

// Step is one named transition of a family.
type Step[T models.Entity] struct {
	Name string
	// From lists the accepted predecessors. Empty accepts any state with an
	// edge to To.
	From []models.State
	To   models.State
	// Effect runs before persistence. A non-empty returned state replaces To.
	Effect func(ctx context.Context, entity T) (models.State, error)
	// FailTo, when set, records effect errors matched by FailWhen as a
	// transition to FailTo instead of returning them.
	FailTo   models.State
	FailWhen func(err error) bool
}

func (s Step[T]) accepts(entity T) bool {
	state := entity.CurrentState()
	m := entity.Machine()
	if m.IsTerminal(state) {
		return false
	}
	if len(s.From) > 0 {
		found := false
		for _, f := range s.From {
			if f == state {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return m.CanTransition(state, s.To) || (s.FailTo != "" && m.CanTransition(state, s.FailTo))
}

func (s Step[T]) recoverable(err error) bool {
	if s.FailTo == "" {
		return false
	}
	if s.FailWhen == nil {
		return true
	}
	return s.FailWhen(err)
}

// Engine applies steps to the entities of one family.
type Engine[T models.Entity] struct {
	entity  string
	store   Store[T]
	emitter Emitter
	now     func() time.Time
	logger  *zap.Logger
}

func NewEngine[T models.Entity](entity string, store Store[T], emitter Emitter, now func() time.Time, logger *zap.Logger) *Engine[T] {
	if now == nil {
		now = time.Now
	}
	return &Engine[T]{
		entity:  entity,
		store:   store,
		emitter: emitter,
		now:     now,
		logger:  logger.With(zap.String("entity", entity)),
	}
}

func (e *Engine[T]) Now() time.Time { return e.now().UTC() }

func (e *Engine[T]) Store() Store[T] { return e.store }

// Create persists a new entity in its initial state and emits its event.
// A duplicate id is a no-op and yields the zero T.
func (e *Engine[T]) Create(ctx context.Context, requestID string, entity T) (T, error) {
	var zero T
	if !entity.Machine().Knows(entity.CurrentState()) {
		return zero, errors.E(errors.Internal, fmt.Sprintf("unknown %s state %s", e.entity, entity.CurrentState()), nil)
	}
	created, err := e.store.Create(ctx, entity)
	if errors.IsErr(err, errors.ErrDuplicate) {
		e.logger.Debug("already registered, ignoring", zap.String("id", entity.EntityID()), zap.String("request_id", requestID))
		observe(e.entity, "create", resultNoop)
		return zero, nil
	}
	if err != nil {
		observe(e.entity, "create", resultFailed)
		return zero, err
	}
	if err := e.emitter.Emit(ctx, requestID, created.Project()); err != nil {
		observe(e.entity, "create", resultFailed)
		return zero, err
	}
	observe(e.entity, "create", resultApplied)
	e.logger.Info("registered", zap.String("id", created.EntityID()), zap.String("state", string(created.CurrentState())), zap.String("request_id", requestID))
	return created, nil
}

// Run loads the entity by id and applies step. An absent entity is a no-op.
func (e *Engine[T]) Run(ctx context.Context, requestID string, step Step[T], id string) (T, error) {
	var zero T
	entity, err := e.store.GetByID(ctx, id)
	if err != nil {
		return zero, err
	}
	if isNil(entity) {
		e.logger.Debug("entity not found, ignoring", zap.String("step", step.Name), zap.String("id", id))
		observe(e.entity, step.Name, resultNoop)
		return zero, nil
	}
	return e.Apply(ctx, requestID, step, entity)
}

// RunByExternalID is Run keyed by the counterparty reference.
func (e *Engine[T]) RunByExternalID(ctx context.Context, requestID string, step Step[T], externalID string) (T, error) {
	var zero T
	entity, err := e.store.GetByExternalID(ctx, externalID)
	if err != nil {
		return zero, err
	}
	if isNil(entity) {
		e.logger.Debug("entity not found, ignoring", zap.String("step", step.Name), zap.String("external_id", externalID))
		observe(e.entity, step.Name, resultNoop)
		return zero, nil
	}
	return e.Apply(ctx, requestID, step, entity)
}

// Apply runs step against a loaded entity. It returns the zero T when the
// guard rejects the entity or a concurrent writer moved it first.
func (e *Engine[T]) Apply(ctx context.Context, requestID string, step Step[T], entity T) (T, error) {
	var zero T
	from := entity.CurrentState()
	log := e.logger.With(
		zap.String("step", step.Name),
		zap.String("id", entity.EntityID()),
		zap.String("from", string(from)),
		zap.String("request_id", requestID),
	)

	if !step.accepts(entity) {
		log.Debug("guard rejected transition")
		observe(e.entity, step.Name, resultNoop)
		return zero, nil
	}

	to := step.To
	if step.Effect != nil {
		next, err := step.Effect(ctx, entity)
		switch {
		case errors.IsErr(err, ErrSkip):
			log.Debug("effect skipped transition")
			observe(e.entity, step.Name, resultNoop)
			return zero, nil
		case err != nil && step.recoverable(err):
			log.Warn("effect failed, recording failure", zap.Error(err))
			entity.Fail(models.Failure{Code: errors.CodeOf(err), Message: errors.MessageOf(err)})
			to = step.FailTo
		case err != nil:
			log.Error("effect failed", zap.Error(err))
			observe(e.entity, step.Name, resultFailed)
			return zero, err
		case next != "":
			to = next
		}
	}

	if !entity.Machine().CanTransition(from, to) {
		observe(e.entity, step.Name, resultFailed)
		return zero, errors.E(errors.Internal, fmt.Sprintf("illegal %s transition %s -> %s", e.entity, from, to), nil)
	}

	entity.Transition(to, e.Now())
	ok, err := e.store.Update(ctx, entity, from)
	if err != nil {
		log.Error("cannot persist transition", zap.Error(err))
		observe(e.entity, step.Name, resultFailed)
		return zero, err
	}
	if !ok {
		log.Info("lost race to a concurrent transition")
		observe(e.entity, step.Name, resultNoop)
		return zero, nil
	}

	if err := e.emitter.Emit(ctx, requestID, entity.Project()); err != nil {
		observe(e.entity, step.Name, resultFailed)
		return zero, err
	}
	observe(e.entity, step.Name, resultApplied)
	log.Info("transitioned", zap.String("to", string(to)))
	return entity, nil
}

// Fail moves the entity to its family's error state, when the family has one
// and the entity can still reach it. It reports whether a transition happened.
func (e *Engine[T]) Fail(ctx context.Context, requestID, id string, f models.Failure) (bool, error) {
	entity, err := e.store.GetByID(ctx, id)
	if err != nil || isNil(entity) {
		return false, err
	}
	errState, ok := entity.Machine().ErrorState()
	if !ok {
		return false, nil
	}
	step := Step[T]{
		Name: "fail",
		To:   errState,
		Effect: func(_ context.Context, entity T) (models.State, error) {
			entity.Fail(f)
			return "", nil
		},
	}
	moved, err := e.Apply(ctx, requestID, step, entity)
	return !isNil(moved), err
}

// Entity names the family this engine drives.
func (e *Engine[T]) Entity() string { return e.entity }

// isNil reports whether v is the zero T; stores return a nil pointer for
// missing rows.
func isNil[T models.Entity](v T) bool {
	var zero T
	return any(v) == any(zero)
}
