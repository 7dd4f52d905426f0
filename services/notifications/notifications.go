// Package notifications holds the business processors bound to the hub
// topics, one per notification family.
package notifications

import (
	// Go Internal Packages
	"context"
	"time"

	// Local Packages
	errors "pix-stream/errors"
	models "pix-stream/models"
	transitions "pix-stream/services/transitions"

	// External Packages
	"go.uber.org/zap"
)

// Handler processes one decoded hub message.
type Handler func(ctx context.Context, requestID string, value []byte) error

// Processor is a business processor selectable for the hub topics.
type Processor interface {
	Name() string
	Handlers() map[string]Handler
}

type Payments interface {
	ConfirmByExternalID(ctx context.Context, requestID, externalID string) (*models.Payment, error)
}

type Deposits interface {
	Receive(ctx context.Context, requestID string, n models.CreditNotification) (*models.Deposit, error)
}

type Devolutions interface {
	ConfirmByExternalID(ctx context.Context, requestID, externalID string) (*models.Devolution, error)
}

type WarningDevolutions interface {
	ConfirmDevolutionByExternalID(ctx context.Context, requestID, externalID string) (*models.WarningDevolution, error)
}

type Transfers interface {
	Register(ctx context.Context, requestID string, cmd models.RegisterBankingTransfer) (*models.BankingTransfer, error)
	ConfirmByExternalID(ctx context.Context, requestID, externalID string) (*models.BankingTransfer, error)
}

// Recorder keeps one Notification per (family, request id) and marks it
// READY once its family processor finished.
type Recorder struct {
	engine *transitions.Engine[*models.Notification]
}

func NewRecorder(repo transitions.Store[*models.Notification], emitter transitions.Emitter, now func() time.Time, logger *zap.Logger) *Recorder {
	return &Recorder{engine: transitions.NewEngine[*models.Notification](models.EntityNotification, repo, emitter, now, logger)}
}

func (r *Recorder) Engine() *transitions.Engine[*models.Notification] { return r.engine }

// open returns the RECEIVED notification for requestID, creating it when
// missing. It returns nil when the notification was already processed.
func (r *Recorder) open(ctx context.Context, family, requestID string, amount int64) (*models.Notification, error) {
	if requestID == "" {
		return nil, errors.EmptyParamErr(models.HeaderRequestID)
	}
	id := models.NotificationID(family, requestID)
	n, err := r.engine.Store().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		n = &models.Notification{Family: family, Amount: amount}
		n.Init(id, models.NotificationReceived, r.engine.Now())
		n.ExternalID = requestID
		created, err := r.engine.Create(ctx, requestID, n)
		if err != nil {
			return nil, err
		}
		if created == nil {
			if n, err = r.engine.Store().GetByID(ctx, id); err != nil || n == nil {
				return nil, err
			}
		}
	}
	// a notification failed to ERROR is still processed when replayed, the
	// entity steps are idempotent and ready becomes a no-op
	if n.State == models.NotificationReady {
		return nil, nil
	}
	return n, nil
}

func (r *Recorder) ready(ctx context.Context, requestID string, n *models.Notification, referenceID string) error {
	step := transitions.Step[*models.Notification]{
		Name: "ready",
		From: []models.State{models.NotificationReceived},
		To:   models.NotificationReady,
		Effect: func(_ context.Context, n *models.Notification) (models.State, error) {
			n.ReferenceID = referenceID
			return "", nil
		},
	}
	_, err := r.engine.Apply(ctx, requestID, step, n)
	return err
}

// record wraps a family processor: decode, open the notification, process,
// then mark it READY with the id of the entity it touched.
func record[T models.Validator](r *Recorder, family string, amount func(T) int64, process processFunc[T]) Handler {
	return func(ctx context.Context, requestID string, value []byte) error {
		payload, err := models.Decode[T](value)
		if err != nil {
			return err
		}
		n, err := r.open(ctx, family, requestID, amount(payload))
		if err != nil || n == nil {
			return err
		}
		ref, err := process(ctx, requestID, payload)
		if err != nil {
			return err
		}
		return r.ready(ctx, requestID, n, ref)
	}
}

type processFunc[T models.Validator] func(ctx context.Context, requestID string, payload T) (string, error)

// families is one processing function per notification family.
type families struct {
	claim            processFunc[models.ClaimNotification]
	credit           processFunc[models.CreditNotification]
	debit            processFunc[models.DebitNotification]
	completion       processFunc[models.CompletionNotification]
	registerTransfer processFunc[models.RegisterBankingTransfer]
	confirmTransfer  processFunc[models.ConfirmBankingTransfer]
}

func (r *Recorder) handlers(f families) map[string]Handler {
	return map[string]Handler{
		models.FamilyClaim:                   record(r, models.FamilyClaim, noAmount[models.ClaimNotification], f.claim),
		models.FamilyCredit:                  record(r, models.FamilyCredit, func(n models.CreditNotification) int64 { return n.Amount }, f.credit),
		models.FamilyDebit:                   record(r, models.FamilyDebit, func(n models.DebitNotification) int64 { return n.Amount }, f.debit),
		models.FamilyCompletion:              record(r, models.FamilyCompletion, noAmount[models.CompletionNotification], f.completion),
		models.FamilyRegisterBankingTransfer: record(r, models.FamilyRegisterBankingTransfer, func(n models.RegisterBankingTransfer) int64 { return n.Amount }, f.registerTransfer),
		models.FamilyConfirmBankingTransfer:  record(r, models.FamilyConfirmBankingTransfer, noAmount[models.ConfirmBankingTransfer], f.confirmTransfer),
	}
}

func noAmount[T any](T) int64 { return 0 }

func ignore[T any](context.Context, string, T) (string, error) { return "", nil }

// Default is the full business processor.
type Default struct {
	recorder           *Recorder
	payments           Payments
	deposits           Deposits
	devolutions        Devolutions
	warningDevolutions WarningDevolutions
	transfers          Transfers
	logger             *zap.Logger
}

func NewDefault(recorder *Recorder, payments Payments, deposits Deposits, devolutions Devolutions, warningDevolutions WarningDevolutions, transfers Transfers, logger *zap.Logger) *Default {
	return &Default{
		recorder:           recorder,
		payments:           payments,
		deposits:           deposits,
		devolutions:        devolutions,
		warningDevolutions: warningDevolutions,
		transfers:          transfers,
		logger:             logger,
	}
}

func (p *Default) Name() string { return "default" }

func (p *Default) Handlers() map[string]Handler {
	return p.recorder.handlers(families{
		claim:            p.claim,
		credit:           p.credit,
		debit:            p.debit,
		completion:       p.completion,
		registerTransfer: p.registerTransfer,
		confirmTransfer:  p.confirmTransfer,
	})
}

// claim has no entity of its own; the READY event is the signal consumers act on.
func (p *Default) claim(_ context.Context, requestID string, n models.ClaimNotification) (string, error) {
	p.logger.Info("claim notification", zap.String("claim_id", n.ClaimID), zap.String("status", n.Status), zap.String("request_id", requestID))
	return n.ClaimID, nil
}

func (p *Default) credit(ctx context.Context, requestID string, n models.CreditNotification) (string, error) {
	d, err := p.deposits.Receive(ctx, requestID, n)
	if err != nil || d == nil {
		return "", err
	}
	return d.ID, nil
}

func (p *Default) debit(ctx context.Context, requestID string, n models.DebitNotification) (string, error) {
	pay, err := p.payments.ConfirmByExternalID(ctx, requestID, n.ExternalID)
	if err != nil || pay == nil {
		return "", err
	}
	return pay.ID, nil
}

// completion confirms a regular devolution, or a warning devolution when no
// regular one moved.
func (p *Default) completion(ctx context.Context, requestID string, n models.CompletionNotification) (string, error) {
	d, err := p.devolutions.ConfirmByExternalID(ctx, requestID, n.ExternalID)
	if err != nil {
		return "", err
	}
	if d != nil {
		return d.ID, nil
	}
	w, err := p.warningDevolutions.ConfirmDevolutionByExternalID(ctx, requestID, n.ExternalID)
	if err != nil || w == nil {
		return "", err
	}
	return w.ID, nil
}

func (p *Default) registerTransfer(ctx context.Context, requestID string, n models.RegisterBankingTransfer) (string, error) {
	b, err := p.transfers.Register(ctx, requestID, n)
	if err != nil || b == nil {
		return "", err
	}
	return b.ID, nil
}

func (p *Default) confirmTransfer(ctx context.Context, requestID string, n models.ConfirmBankingTransfer) (string, error) {
	b, err := p.transfers.ConfirmByExternalID(ctx, requestID, n.ExternalID)
	if err != nil || b == nil {
		return "", err
	}
	return b.ID, nil
}

// RecordOnly validates and records notifications without driving any
// entity, for deployments where another service owns the business logic.
type RecordOnly struct {
	recorder *Recorder
}

func NewRecordOnly(recorder *Recorder) *RecordOnly {
	return &RecordOnly{recorder: recorder}
}

func (p *RecordOnly) Name() string { return "record-only" }

func (p *RecordOnly) Handlers() map[string]Handler {
	return p.recorder.handlers(families{
		claim:            ignore[models.ClaimNotification],
		credit:           ignore[models.CreditNotification],
		debit:            ignore[models.DebitNotification],
		completion:       ignore[models.CompletionNotification],
		registerTransfer: ignore[models.RegisterBankingTransfer],
		confirmTransfer:  ignore[models.ConfirmBankingTransfer],
	})
}

// Select returns the processor named by name.
func Select(name string, processors ...Processor) (Processor, error) {
	for _, p := range processors {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, errors.E(errors.Invalid, "unknown hub processor "+name, nil)
}
