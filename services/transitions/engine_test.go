package transitions

import (
	// Go Internal Packages
	"context"
	"fmt"
	"testing"
	"time"

	// Local Packages
	errors "pix-stream/errors"
	models "pix-stream/models"
	memory "pix-stream/repositories/memory"
	emitter "pix-stream/services/emitter"
	testutil "pix-stream/testutil"

	// External Packages
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store  *memory.Payments
	pub    *testutil.Publisher
	clock  *testutil.Clock
	engine *Engine[*models.Payment]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.NewStore[models.Payment, *models.Payment](),
		pub:   &testutil.Publisher{},
		clock: testutil.NewClock(t0),
	}
	f.engine = NewEngine[*models.Payment](models.EntityPayment, f.store, emitter.New(f.pub, zap.NewNop()), f.clock.Now, zap.NewNop())
	return f
}

func (f *fixture) seed(t *testing.T, id string, state models.State) {
	t.Helper()
	p := &models.Payment{Amount: 1000}
	p.Init(id, state, t0)
	_, err := f.store.Create(context.Background(), p)
	require.NoError(t, err)
}

func (f *fixture) state(t *testing.T, id string) models.State {
	t.Helper()
	p, err := f.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.State
}

var confirm = Step[*models.Payment]{
	Name: "confirm",
	From: []models.State{models.PaymentWaiting},
	To:   models.PaymentConfirmed,
}

func TestApplyTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p-1", models.PaymentWaiting)
	ctx := context.Background()

	moved, err := f.engine.Run(ctx, "req-1", confirm, "p-1")
	require.NoError(t, err)
	require.NotNil(t, moved)

	again, err := f.engine.Run(ctx, "req-1", confirm, "p-1")
	require.NoError(t, err)
	assert.Nil(t, again)

	assert.Equal(t, models.PaymentConfirmed, f.state(t, "p-1"))
	assert.Len(t, f.pub.OnTopic("pix.payment.event.confirmed"), 1)
}

func TestTerminalStateIsNoop(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p-1", models.PaymentCompleted)

	called := false
	step := Step[*models.Payment]{
		Name: "revert",
		To:   models.PaymentReverted,
		Effect: func(context.Context, *models.Payment) (models.State, error) {
			called = true
			return "", nil
		},
	}
	moved, err := f.engine.Run(context.Background(), "req-1", step, "p-1")
	require.NoError(t, err)
	assert.Nil(t, moved)
	assert.False(t, called)
	assert.Equal(t, models.PaymentCompleted, f.state(t, "p-1"))
	assert.Empty(t, f.pub.Messages())
}

func TestAbsentEntityIsNoop(t *testing.T) {
	f := newFixture(t)
	moved, err := f.engine.Run(context.Background(), "req-1", confirm, "missing")
	require.NoError(t, err)
	assert.Nil(t, moved)

	moved, err = f.engine.RunByExternalID(context.Background(), "req-1", confirm, "E2E-missing")
	require.NoError(t, err)
	assert.Nil(t, moved)
	assert.Empty(t, f.pub.Messages())
}

func TestConcurrentWriterWinsOnce(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p-1", models.PaymentWaiting)
	ctx := context.Background()

	first, err := f.store.GetByID(ctx, "p-1")
	require.NoError(t, err)
	second, err := f.store.GetByID(ctx, "p-1")
	require.NoError(t, err)

	fail := Step[*models.Payment]{Name: "fail", From: []models.State{models.PaymentWaiting}, To: models.PaymentFailed}

	moved, err := f.engine.Apply(ctx, "req-1", confirm, first)
	require.NoError(t, err)
	require.NotNil(t, moved)

	lost, err := f.engine.Apply(ctx, "req-2", fail, second)
	require.NoError(t, err)
	assert.Nil(t, lost)

	assert.Equal(t, models.PaymentConfirmed, f.state(t, "p-1"))
	assert.Len(t, f.pub.Messages(), 1)
}

func TestEffectErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantErr   bool
		wantState models.State
		wantTopic string
	}{
		{
			name:      "transient error aborts the transition",
			err:       errors.GatewayErr("TIMEOUT", "gateway timed out", nil),
			wantErr:   true,
			wantState: models.PaymentPending,
		},
		{
			name:      "rejection is recorded as failure state",
			err:       errors.GatewayRejectedErr("AC03", "invalid beneficiary account"),
			wantState: models.PaymentFailed,
			wantTopic: "pix.payment.event.failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seed(t, "p-1", models.PaymentPending)

			step := Step[*models.Payment]{
				Name:     "send",
				From:     []models.State{models.PaymentPending},
				To:       models.PaymentWaiting,
				FailTo:   models.PaymentFailed,
				FailWhen: errors.IsRejected,
				Effect: func(context.Context, *models.Payment) (models.State, error) {
					return "", tt.err
				},
			}
			moved, err := f.engine.Run(context.Background(), "req-1", step, "p-1")
			assert.Equal(t, tt.wantState, f.state(t, "p-1"))
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, moved)
				assert.Empty(t, f.pub.Messages())
				return
			}
			require.NoError(t, err)
			require.NotNil(t, moved)
			require.NotNil(t, moved.Failure)
			assert.Equal(t, "AC03", moved.Failure.Code)
			assert.Len(t, f.pub.OnTopic(tt.wantTopic), 1)
		})
	}
}

func TestEffectMayChooseTarget(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p-1", models.PaymentPending)

	step := Step[*models.Payment]{
		Name: "send",
		To:   models.PaymentWaiting,
		Effect: func(_ context.Context, p *models.Payment) (models.State, error) {
			p.ExternalID = "E2E-1"
			return models.PaymentConfirmed, nil
		},
	}
	moved, err := f.engine.Run(context.Background(), "req-1", step, "p-1")
	require.NoError(t, err)
	require.NotNil(t, moved)
	assert.Equal(t, models.PaymentConfirmed, moved.State)
	assert.Equal(t, t0, moved.UpdatedAt)

	stored, err := f.store.GetByExternalID(context.Background(), "E2E-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestEffectIllegalTargetFails(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p-1", models.PaymentPending)

	step := Step[*models.Payment]{
		Name: "send",
		To:   models.PaymentWaiting,
		Effect: func(context.Context, *models.Payment) (models.State, error) {
			return models.PaymentCompleted, nil
		},
	}
	_, err := f.engine.Run(context.Background(), "req-1", step, "p-1")
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Internal, err))
	assert.Equal(t, models.PaymentPending, f.state(t, "p-1"))
}

func TestEffectSkip(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p-1", models.PaymentWaiting)

	step := Step[*models.Payment]{
		Name: "refresh",
		To:   models.PaymentConfirmed,
		Effect: func(context.Context, *models.Payment) (models.State, error) {
			return "", ErrSkip
		},
	}
	moved, err := f.engine.Run(context.Background(), "req-1", step, "p-1")
	require.NoError(t, err)
	assert.Nil(t, moved)
	assert.Equal(t, models.PaymentWaiting, f.state(t, "p-1"))
}

func TestPersistenceErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p-1", models.PaymentWaiting)
	ctx := context.Background()

	p, err := f.store.GetByID(ctx, "p-1")
	require.NoError(t, err)
	f.store.Err = fmt.Errorf("connection reset")

	_, err = f.engine.Apply(ctx, "req-1", confirm, p)
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Persistence, err))
	assert.Empty(t, f.pub.Messages())
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := &models.Payment{Amount: 500}
	p.Init("p-1", models.PaymentPending, t0)
	created, err := f.engine.Create(ctx, "req-1", p)
	require.NoError(t, err)
	require.NotNil(t, created)

	dup := &models.Payment{Amount: 900}
	dup.Init("p-1", models.PaymentPending, t0)
	again, err := f.engine.Create(ctx, "req-1", dup)
	require.NoError(t, err)
	assert.Nil(t, again)

	assert.Len(t, f.pub.OnTopic("pix.payment.event.pending"), 1)
	stored, err := f.store.GetByID(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), stored.Amount)
}

func TestFailMovesToErrorState(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p-1", models.PaymentWaiting)
	f.seed(t, "p-2", models.PaymentCompleted)
	ctx := context.Background()

	moved, err := f.engine.Fail(ctx, "req-1", "p-1", models.Failure{Code: "GATEWAY", Message: "boom"})
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, models.PaymentError, f.state(t, "p-1"))
	assert.Len(t, f.pub.OnTopic("pix.payment.event.error"), 1)

	moved, err = f.engine.Fail(ctx, "req-2", "p-2", models.Failure{Code: "GATEWAY"})
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, models.PaymentCompleted, f.state(t, "p-2"))
}

func TestFailWithoutErrorState(t *testing.T) {
	store := memory.NewStore[models.Infraction, *models.Infraction]()
	pub := &testutil.Publisher{}
	engine := NewEngine[*models.Infraction](models.EntityInfraction, store, emitter.New(pub, zap.NewNop()), nil, zap.NewNop())

	i := &models.Infraction{}
	i.Init("i-1", models.InfractionOpenPending, t0)
	_, err := store.Create(context.Background(), i)
	require.NoError(t, err)

	moved, err := engine.Fail(context.Background(), "req-1", "i-1", models.Failure{Code: "X"})
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Empty(t, pub.Messages())
}
