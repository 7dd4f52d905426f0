package notifications

import (
	// Go Internal Packages
	"context"
	"encoding/json"
	"testing"
	"time"

	// Local Packages
	errors "pix-stream/errors"
	gateways "pix-stream/gateways"
	models "pix-stream/models"
	memory "pix-stream/repositories/memory"
	deposits "pix-stream/services/deposits"
	devolutions "pix-stream/services/devolutions"
	emitter "pix-stream/services/emitter"
	payments "pix-stream/services/payments"
	transfers "pix-stream/services/transfers"
	warning "pix-stream/services/warning"
	testutil "pix-stream/testutil"

	// External Packages
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

type gateway struct{}

func (gateway) SendPayment(context.Context, gateways.PaymentOrder) (gateways.Receipt, error) {
	return gateways.Receipt{EndToEndID: "E2E-PAY", Status: gateways.StatusPending}, nil
}

func (gateway) GetPayment(context.Context, string) (gateways.Receipt, error) {
	return gateways.Receipt{}, nil
}

func (gateway) SendDevolution(context.Context, gateways.DevolutionOrder) (gateways.Receipt, error) {
	return gateways.Receipt{EndToEndID: "E2E-WDV", Status: gateways.StatusPending}, nil
}

// flakyDeposits fails the next fails creates.
type flakyDeposits struct {
	*memory.Deposits
	fails int
}

func (s *flakyDeposits) Create(ctx context.Context, d *models.Deposit) (*models.Deposit, error) {
	if s.fails > 0 {
		s.fails--
		return nil, errors.E(errors.Persistence, "deposits unavailable", nil)
	}
	return s.Deposits.Create(ctx, d)
}

type fixture struct {
	pub           *testutil.Publisher
	notifications *memory.Notifications
	payments      *payments.Service
	paymentRepo   *memory.Payments
	deposits      *deposits.Service
	depositRepo   *memory.Deposits
	flaky         *flakyDeposits
	transferRepo  *memory.BankingTransfers
	warning       *warning.Service
	recorder      *Recorder
	handlers      map[string]Handler
}

func newFixture() *fixture {
	pub := &testutil.Publisher{}
	em := emitter.New(pub, zap.NewNop())
	now := testutil.NewClock(t0).Now
	log := zap.NewNop()

	f := &fixture{
		pub:           pub,
		notifications: memory.NewStore[models.Notification, *models.Notification](),
		paymentRepo:   memory.NewStore[models.Payment, *models.Payment](),
		depositRepo:   memory.NewStore[models.Deposit, *models.Deposit](),
		transferRepo:  memory.NewStore[models.BankingTransfer, *models.BankingTransfer](),
	}
	f.payments = payments.NewService(f.paymentRepo, gateway{}, em, now, log)
	f.flaky = &flakyDeposits{Deposits: f.depositRepo}
	f.deposits = deposits.NewService(f.flaky, nil, em, now, log)
	devs := devolutions.NewService(memory.NewDevolutions(), f.depositRepo, gateway{}, em, now, log)
	f.warning = warning.NewService(
		memory.NewStore[models.WarningDeposit, *models.WarningDeposit](),
		memory.NewStore[models.WarningDevolution, *models.WarningDevolution](),
		f.deposits, gateway{}, em, now, log,
	)
	f.recorder = NewRecorder(f.notifications, em, now, log)
	p := NewDefault(f.recorder, f.payments, f.deposits, devs, f.warning, transfers.NewService(f.transferRepo, em, now, log), log)
	f.handlers = p.Handlers()
	return f
}

func (f *fixture) handle(t *testing.T, family, requestID string, payload any) error {
	t.Helper()
	value, err := json.Marshal(payload)
	require.NoError(t, err)
	return f.handlers[family](context.Background(), requestID, value)
}

func creditPayload(externalID string) models.CreditNotification {
	return models.CreditNotification{
		ExternalID:  externalID,
		Amount:      10000,
		Payer:       models.Counterpart{Document: "111", ISPB: "11111111"},
		Beneficiary: models.Counterpart{Document: "222", ISPB: "22222222"},
		CreatedAt:   t0,
	}
}

func TestEveryFamilyHasAHandler(t *testing.T) {
	f := newFixture()
	for _, family := range models.NotifyFamilies {
		assert.Contains(t, f.handlers, family)
	}
	assert.Len(t, NewRecordOnly(f.recorder).Handlers(), len(models.NotifyFamilies))
}

func TestCreditCreatesDepositOnce(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.handle(t, models.FamilyCredit, "req-1", creditPayload("E1")))
	require.NoError(t, f.handle(t, models.FamilyCredit, "req-1", creditPayload("E1")))
	// a re-synchronized credit arrives under another request id
	require.NoError(t, f.handle(t, models.FamilyCredit, "sync:E1", creditPayload("E1")))

	assert.Equal(t, 1, f.depositRepo.Len())
	assert.Equal(t, 2, f.notifications.Len())
	assert.Len(t, f.pub.OnTopic("pix.deposit.event.pending"), 1)

	n, err := f.notifications.GetByID(context.Background(), models.NotificationID(models.FamilyCredit, "req-1"))
	require.NoError(t, err)
	assert.Equal(t, models.NotificationReady, n.State)
	d, err := f.depositRepo.GetByExternalID(context.Background(), "E1")
	require.NoError(t, err)
	assert.Equal(t, d.ID, n.ReferenceID)
}

func TestCreditRecoversOnRedelivery(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.flaky.fails = 1

	require.Error(t, f.handle(t, models.FamilyCredit, "req-1", creditPayload("E1")))
	n, err := f.notifications.GetByID(ctx, models.NotificationID(models.FamilyCredit, "req-1"))
	require.NoError(t, err)
	assert.Equal(t, models.NotificationReceived, n.State)
	assert.Zero(t, f.depositRepo.Len())

	require.NoError(t, f.handle(t, models.FamilyCredit, "req-1", creditPayload("E1")))
	assert.Equal(t, 1, f.depositRepo.Len())
	n, err = f.notifications.GetByID(ctx, models.NotificationID(models.FamilyCredit, "req-1"))
	require.NoError(t, err)
	assert.Equal(t, models.NotificationReady, n.State)
}

func TestFailedNotificationStillAppliesOnReplay(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.flaky.fails = 1

	require.Error(t, f.handle(t, models.FamilyCredit, "req-1", creditPayload("E1")))
	id := models.NotificationID(models.FamilyCredit, "req-1")
	moved, err := f.recorder.Engine().Fail(ctx, "req-1", id, models.Failure{Code: "PERSISTENCE", Message: "deposits unavailable"})
	require.NoError(t, err)
	require.True(t, moved)

	require.NoError(t, f.handle(t, models.FamilyCredit, "req-1", creditPayload("E1")))
	assert.Equal(t, 1, f.depositRepo.Len())
	n, err := f.notifications.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationError, n.State)
}

func TestInvalidNotificationIsRejected(t *testing.T) {
	f := newFixture()
	err := f.handle(t, models.FamilyCredit, "req-1", models.CreditNotification{ExternalID: "E1"})
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Invalid, err))
	assert.Zero(t, f.notifications.Len())
}

func TestDebitConfirmsPayment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.payments.Register(ctx, "req-0", models.RegisterPayment{
		ID: "p-1", UserID: "u", WalletID: "w", Amount: 500,
		Beneficiary: models.Counterpart{Document: "1", ISPB: "12345678"},
	})
	require.NoError(t, err)
	_, err = f.payments.Send(ctx, "req-0", "p-1")
	require.NoError(t, err)

	require.NoError(t, f.handle(t, models.FamilyDebit, "req-1", models.DebitNotification{ExternalID: "E2E-PAY", Amount: 500}))

	p, err := f.paymentRepo.GetByID(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentConfirmed, p.State)

	n, err := f.notifications.GetByID(ctx, models.NotificationID(models.FamilyDebit, "req-1"))
	require.NoError(t, err)
	assert.Equal(t, "p-1", n.ReferenceID)
}

func TestCompletionFallsBackToWarningDevolution(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.handle(t, models.FamilyCredit, "req-1", creditPayload("E1")))
	d, err := f.depositRepo.GetByExternalID(ctx, "E1")
	require.NoError(t, err)

	_, err = f.warning.Screen(ctx, "req-2", d.ID, warning.NewFixedIdentifier([]string{"111"}, nil))
	require.NoError(t, err)
	_, err = f.warning.Reject(ctx, "req-3", models.EntityCommand{ID: d.ID})
	require.NoError(t, err)
	_, err = f.warning.SendDevolution(ctx, "req-4", d.ID)
	require.NoError(t, err)

	require.NoError(t, f.handle(t, models.FamilyCompletion, "req-5", models.CompletionNotification{ExternalID: "E2E-WDV"}))
	assert.Len(t, f.pub.OnTopic("pix.warning_devolution.event.confirmed"), 1)
}

func TestBankingTransferRegisterAndConfirm(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	register := models.RegisterBankingTransfer{
		ExternalID:    "TED-1",
		TransactionID: "tx-1",
		Amount:        700,
		Payer:         models.Counterpart{Document: "1", ISPB: "12345678"},
		Beneficiary:   models.Counterpart{Document: "2", ISPB: "87654321"},
	}

	require.NoError(t, f.handle(t, models.FamilyRegisterBankingTransfer, "req-1", register))
	require.NoError(t, f.handle(t, models.FamilyRegisterBankingTransfer, "req-2", register))
	assert.Equal(t, 1, f.transferRepo.Len())

	require.NoError(t, f.handle(t, models.FamilyConfirmBankingTransfer, "req-3", models.ConfirmBankingTransfer{ExternalID: "TED-1"}))
	b, err := f.transferRepo.GetByExternalID(ctx, "TED-1")
	require.NoError(t, err)
	assert.Equal(t, models.BankingTransferConfirmed, b.State)
}

func TestClaimNotificationIsRecorded(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.handle(t, models.FamilyClaim, "req-1", models.ClaimNotification{ClaimID: "c-1", Key: "k", KeyType: "EMAIL", Status: "OPEN", ISPB: "12345678"}))

	events := f.pub.OnTopic("pix.notify.claim.ready")
	require.Len(t, events, 1)
	var ev models.Event
	require.NoError(t, json.Unmarshal(events[0].Value, &ev))
	assert.Equal(t, "c-1", ev.ReferenceID)
}

func TestRecordOnlyDrivesNothing(t *testing.T) {
	f := newFixture()
	handlers := NewRecordOnly(f.recorder).Handlers()
	value, err := json.Marshal(creditPayload("E1"))
	require.NoError(t, err)

	require.NoError(t, handlers[models.FamilyCredit](context.Background(), "req-1", value))
	assert.Zero(t, f.depositRepo.Len())
	assert.Equal(t, 1, f.notifications.Len())
}

func TestSelect(t *testing.T) {
	f := newFixture()
	recordOnly := NewRecordOnly(f.recorder)

	p, err := Select("record-only", recordOnly)
	require.NoError(t, err)
	assert.Equal(t, "record-only", p.Name())

	_, err = Select("fancy", recordOnly)
	require.Error(t, err)
}
