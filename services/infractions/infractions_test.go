package infractions

import (
	// Go Internal Packages
	"context"
	"testing"
	"time"

	// Local Packages
	errors "pix-stream/errors"
	gateways "pix-stream/gateways"
	models "pix-stream/models"
	memory "pix-stream/repositories/memory"
	emitter "pix-stream/services/emitter"
	testutil "pix-stream/testutil"

	// External Packages
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGateway struct {
	calls []string
	err   error
}

func (g *fakeGateway) Submit(_ context.Context, resource, op string, report gateways.Report) (gateways.Receipt, error) {
	g.calls = append(g.calls, resource+"/"+op)
	return gateways.Receipt{EndToEndID: "INF-" + report.ID, Status: gateways.StatusSettled}, g.err
}

func newService() (*Service, *memory.Infractions, *fakeGateway, *testutil.Publisher) {
	repo := memory.NewStore[models.Infraction, *models.Infraction]()
	gw := &fakeGateway{}
	pub := &testutil.Publisher{}
	now := testutil.NewClock(time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)).Now
	return NewService(repo, gw, emitter.New(pub, zap.NewNop()), now, zap.NewNop()), repo, gw, pub
}

func TestReceivedInfractionLifecycle(t *testing.T) {
	svc, _, gw, pub := newService()
	ctx := context.Background()

	i, err := svc.Receive(ctx, "req-1", models.ReceiveInfraction{ExternalID: "INF-EXT", TransactionID: "tx-1", Reason: "FRAUD"})
	require.NoError(t, err)
	require.NotNil(t, i)
	cmd := models.EntityCommand{ID: i.ID}

	steps := []func() (*models.Infraction, error){
		func() (*models.Infraction, error) { return svc.Accept(ctx, "req-2", i.ID) },
		func() (*models.Infraction, error) { return svc.Request(ctx, "req-3", models.OpOpen, cmd) },
		func() (*models.Infraction, error) { return svc.Confirm(ctx, "req-4", models.OpOpen, cmd) },
		func() (*models.Infraction, error) { return svc.Request(ctx, "req-5", models.OpAcknowledge, cmd) },
		func() (*models.Infraction, error) { return svc.Confirm(ctx, "req-6", models.OpAcknowledge, cmd) },
		func() (*models.Infraction, error) {
			return svc.Analyze(ctx, "req-7", models.EntityCommand{ID: i.ID, AnalysisResult: "AGREED", AnalysisDetails: "confirmed scam"})
		},
		func() (*models.Infraction, error) { return svc.Request(ctx, "req-8", models.OpClose, cmd) },
		func() (*models.Infraction, error) { return svc.Confirm(ctx, "req-9", models.OpClose, cmd) },
	}
	for n, step := range steps {
		got, err := step()
		require.NoError(t, err, "step %d", n)
		require.NotNil(t, got, "step %d", n)
		i = got
	}
	assert.Equal(t, models.InfractionClosedConfirmed, i.State)
	assert.Equal(t, "AGREED", i.AnalysisResult)
	assert.Equal(t, "INF-EXT", i.ExternalID)
	assert.Equal(t, []string{"infractions/open", "infractions/acknowledge", "infractions/close"}, gw.calls)
	assert.Len(t, pub.Messages(), 9)
}

func TestClosedInfractionIgnoresLateAcknowledge(t *testing.T) {
	svc, repo, gw, pub := newService()
	ctx := context.Background()

	i := &models.Infraction{TransactionID: "tx-1", Reason: "FRAUD"}
	i.Init("i-1", models.InfractionClosedConfirmed, time.Now())
	_, err := repo.Create(ctx, i)
	require.NoError(t, err)

	got, err := svc.Request(ctx, "req-1", models.OpAcknowledge, models.EntityCommand{ID: "i-1"})
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = svc.Confirm(ctx, "req-1", models.OpAcknowledge, models.EntityCommand{ID: "i-1"})
	require.NoError(t, err)
	assert.Nil(t, got)

	stored, err := repo.GetByID(ctx, "i-1")
	require.NoError(t, err)
	assert.Equal(t, models.InfractionClosedConfirmed, stored.State)
	assert.Empty(t, gw.calls)
	assert.Empty(t, pub.Messages())
}

func TestCancelCreatedInfraction(t *testing.T) {
	svc, _, _, pub := newService()
	ctx := context.Background()

	i, err := svc.Create(ctx, "req-1", models.CreateInfraction{ID: "i-1", TransactionID: "tx-1", Reason: "FRAUD"})
	require.NoError(t, err)
	assert.Equal(t, models.InfractionOpenPending, i.State)

	_, err = svc.Request(ctx, "req-2", models.OpCancel, models.EntityCommand{ID: "i-1"})
	require.NoError(t, err)
	i, err = svc.Confirm(ctx, "req-3", models.OpCancel, models.EntityCommand{ID: "i-1"})
	require.NoError(t, err)
	require.NotNil(t, i)
	assert.Equal(t, models.InfractionCancelConfirmed, i.State)
	assert.Equal(t, "INF-i-1", i.ExternalID)
	assert.Len(t, pub.OnTopic("pix.infraction.event.cancel_confirmed"), 1)
}

func TestConfirmKeepsStateOnGatewayError(t *testing.T) {
	svc, repo, gw, _ := newService()
	ctx := context.Background()
	gw.err = errors.GatewayErr("HTTP_503", "gateway unavailable", nil)

	_, err := svc.Create(ctx, "req-1", models.CreateInfraction{ID: "i-1", TransactionID: "tx-1", Reason: "FRAUD"})
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, "req-2", models.OpOpen, models.EntityCommand{ID: "i-1"})
	require.Error(t, err)

	stored, err := repo.GetByID(ctx, "i-1")
	require.NoError(t, err)
	assert.Equal(t, models.InfractionOpenPending, stored.State)
}

func TestUnknownOperation(t *testing.T) {
	svc, _, _, _ := newService()
	_, err := svc.Request(context.Background(), "req-1", "escalate", models.EntityCommand{ID: "i-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Invalid, err))
}
