package warning

import (
	// Go Internal Packages
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	// Local Packages
	gateways "pix-stream/gateways"
	models "pix-stream/models"
	memory "pix-stream/repositories/memory"
	cache "pix-stream/repositories/redis"
	deposits "pix-stream/services/deposits"
	emitter "pix-stream/services/emitter"
	testutil "pix-stream/testutil"

	// External Packages
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

type fakeGateway struct {
	receipt gateways.Receipt
}

func (g *fakeGateway) SendDevolution(context.Context, gateways.DevolutionOrder) (gateways.Receipt, error) {
	return g.receipt, nil
}

type fixture struct {
	deposits *deposits.Service
	warnings *memory.WarningDeposits
	wdevs    *memory.WarningDevolutions
	gateway  *fakeGateway
	pub      *testutil.Publisher
	svc      *Service
	rule     *Duplicate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pub := &testutil.Publisher{}
	em := emitter.New(pub, zap.NewNop())
	now := testutil.NewClock(t0).Now
	rule := NewDuplicate(newCache(t), 30*time.Minute)
	f := &fixture{
		rule:     rule,
		deposits: deposits.NewService(memory.NewStore[models.Deposit, *models.Deposit](), rule, em, now, zap.NewNop()),
		warnings: memory.NewStore[models.WarningDeposit, *models.WarningDeposit](),
		wdevs:    memory.NewStore[models.WarningDevolution, *models.WarningDevolution](),
		gateway:  &fakeGateway{receipt: gateways.Receipt{EndToEndID: "E2E-BACK", Status: gateways.StatusPending}},
		pub:      pub,
	}
	f.svc = NewService(f.warnings, f.wdevs, f.deposits, f.gateway, em, now, zap.NewNop())
	return f
}

func (f *fixture) receive(t *testing.T, externalID, document string, amount int64, at time.Time) *models.Deposit {
	t.Helper()
	d, err := f.deposits.Receive(context.Background(), "req-"+externalID, models.CreditNotification{
		ExternalID:  externalID,
		UserID:      "u-1",
		Amount:      amount,
		Payer:       models.Counterpart{Document: document, ISPB: "11111111"},
		Beneficiary: models.Counterpart{Document: "222", ISPB: "22222222"},
		CreatedAt:   at,
	})
	require.NoError(t, err)
	return d
}

func newCache(t *testing.T) *cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewCache(client)
}

func TestDuplicateDepositsWithinWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rule := f.rule

	first := f.receive(t, "E1", "12345678901", 10000, t0)
	second := f.receive(t, "E2", "12345678901", 10000, t0.Add(5*time.Second))
	third := f.receive(t, "E3", "12345678901", 10000, t0.Add(40*time.Minute))
	other := f.receive(t, "E4", "12345678901", 20000, t0.Add(6*time.Second))

	want := map[string]bool{first.ID: false, second.ID: true, third.ID: false, other.ID: false}
	for _, d := range []*models.Deposit{first, second, third, other} {
		w, err := f.svc.Screen(ctx, "req-screen", d.ID, rule)
		require.NoError(t, err)
		assert.Equal(t, want[d.ID], w != nil, d.ExternalID)
	}

	for id, held := range want {
		d, err := f.deposits.Get(ctx, id)
		require.NoError(t, err)
		if held {
			assert.Equal(t, models.DepositWarning, d.State)
			continue
		}
		assert.Equal(t, models.DepositPending, d.State)
	}
	assert.Equal(t, 1, f.warnings.Len())
}

func TestDuplicateIgnoresScreeningOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.receive(t, "E1", "12345678901", 10000, t0)
	second := f.receive(t, "E2", "12345678901", 10000, t0.Add(5*time.Second))

	w, err := f.svc.Screen(ctx, "req-2", second.ID, f.rule)
	require.NoError(t, err)
	assert.NotNil(t, w)

	w, err = f.svc.Screen(ctx, "req-1", first.ID, f.rule)
	require.NoError(t, err)
	assert.Nil(t, w)

	assert.Equal(t, 1, f.warnings.Len())
	held, err := f.deposits.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DepositWarning, held.State)
}

func TestDuplicateSkipsOwnCredit(t *testing.T) {
	ctx := context.Background()
	rule := NewDuplicate(newCache(t), 30*time.Minute)

	// a receive that lost the insert race left an entry under another id
	phantom := &models.Deposit{Amount: 10000, Payer: models.Counterpart{Document: "1"}}
	phantom.Init("d-phantom", models.DepositPending, t0)
	phantom.ExternalID = "E1"
	require.NoError(t, rule.Record(ctx, phantom))

	d := &models.Deposit{Amount: 10000, Payer: models.Counterpart{Document: "1"}}
	d.Init("d-1", models.DepositPending, t0.Add(time.Second))
	d.ExternalID = "E1"
	require.NoError(t, rule.Record(ctx, d))

	hit, err := rule.Evaluate(ctx, d)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestTwoRulesHoldDepositOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.receive(t, "E1", "666", 10000, t0)

	rules := []Evaluator{
		NewFixedIdentifier([]string{"666"}, nil),
		NewBlockList(memory.NewBlockList("666")),
	}
	var wg sync.WaitGroup
	errs := make([]error, len(rules))
	for i, rule := range rules {
		wg.Add(1)
		go func(i int, rule Evaluator) {
			defer wg.Done()
			_, errs[i] = f.svc.Screen(ctx, fmt.Sprintf("req-%d", i), d.ID, rule)
		}(i, rule)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	stored, err := f.deposits.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DepositWarning, stored.State)
	assert.Equal(t, 1, f.warnings.Len())
	assert.Len(t, f.pub.OnTopic("pix.deposit.event.warning"), 1)
	assert.Len(t, f.pub.OnTopic("pix.warning_deposit.event.pending"), 1)

	w, err := f.warnings.GetByID(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, w.Rules, 1)
}

func TestScreenIgnoresSettledDeposit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.receive(t, "E1", "666", 10000, t0)
	_, err := f.deposits.Confirm(ctx, "req-ledger", models.EntityCommand{ID: d.ID})
	require.NoError(t, err)

	w, err := f.svc.Screen(ctx, "req-1", d.ID, NewFixedIdentifier([]string{"666"}, nil))
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.Zero(t, f.warnings.Len())
}

func TestApproveReleasesDeposit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.receive(t, "E1", "666", 10000, t0)
	_, err := f.svc.Screen(ctx, "req-1", d.ID, NewFixedIdentifier([]string{"666"}, nil))
	require.NoError(t, err)

	w, err := f.svc.Approve(ctx, "req-2", models.EntityCommand{ID: d.ID})
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, models.WarningDepositApproved, w.State)

	stored, err := f.deposits.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DepositConfirmed, stored.State)

	// a rejection after approval changes nothing
	rejected, err := f.svc.Reject(ctx, "req-3", models.EntityCommand{ID: d.ID})
	require.NoError(t, err)
	assert.Nil(t, rejected)
	assert.Zero(t, f.wdevs.Len())
}

func TestRejectReturnsFunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.receive(t, "E1", "666", 10000, t0)
	_, err := f.svc.Screen(ctx, "req-1", d.ID, NewFixedIdentifier(nil, []string{"11111111"}))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		w, err := f.svc.Reject(ctx, "req-2", models.EntityCommand{ID: d.ID})
		require.NoError(t, err)
		require.NotNil(t, w)
	}

	stored, err := f.deposits.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DepositBlocked, stored.State)
	assert.Equal(t, 1, f.wdevs.Len())
	assert.Len(t, f.pub.OnTopic("pix.warning_devolution.event.pending"), 1)

	dv, err := f.svc.SendDevolution(ctx, "req-3", d.ID)
	require.NoError(t, err)
	require.NotNil(t, dv)
	assert.Equal(t, models.WarningDevolutionWaiting, dv.State)

	dv, err = f.svc.ConfirmDevolutionByExternalID(ctx, "req-4", "E2E-BACK")
	require.NoError(t, err)
	require.NotNil(t, dv)
	assert.Equal(t, models.WarningDevolutionConfirmed, dv.State)
}

type fakeProfiles map[string]int64

func (p fakeProfiles) DeclaredIncome(_ context.Context, userID string) (int64, bool, error) {
	income, ok := p[userID]
	return income, ok, nil
}

func TestIncomeRatio(t *testing.T) {
	rule, err := NewIncomeRatio(fakeProfiles{"u-1": 400000, "u-0": 0}, "0.5")
	require.NoError(t, err)

	tests := []struct {
		name   string
		userID string
		amount int64
		want   bool
	}{
		{"below half the income", "u-1", 150000, false},
		{"exactly half", "u-1", 200000, false},
		{"above half", "u-1", 200001, true},
		{"zero income", "u-0", 1, true},
		{"no declared income", "u-2", 99999999, false},
		{"no user", "", 99999999, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rule.Evaluate(context.Background(), &models.Deposit{UserID: tt.userID, Amount: tt.amount})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = NewIncomeRatio(fakeProfiles{}, "half")
	require.Error(t, err)
}
