package payments

import (
	// Go Internal Packages
	"context"
	"time"

	// Local Packages
	errors "pix-stream/errors"
	gateways "pix-stream/gateways"
	models "pix-stream/models"
	transitions "pix-stream/services/transitions"

	// External Packages
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Gateway interface {
	SendPayment(ctx context.Context, order gateways.PaymentOrder) (gateways.Receipt, error)
	GetPayment(ctx context.Context, endToEndID string) (gateways.Receipt, error)
}

type Repository interface {
	transitions.Store[*models.Payment]
	ListByState(ctx context.Context, state models.State, before time.Time, limit int) ([]*models.Payment, error)
}

type Service struct {
	engine  *transitions.Engine[*models.Payment]
	repo    Repository
	gateway Gateway
	logger  *zap.Logger
}

func NewService(repo Repository, gateway Gateway, emitter transitions.Emitter, now func() time.Time, logger *zap.Logger) *Service {
	return &Service{
		engine:  transitions.NewEngine[*models.Payment](models.EntityPayment, repo, emitter, now, logger),
		repo:    repo,
		gateway: gateway,
		logger:  logger,
	}
}

func (s *Service) Engine() *transitions.Engine[*models.Payment] { return s.engine }

// Register creates a PENDING payment. A command carrying an id that already
// exists is ignored.
func (s *Service) Register(ctx context.Context, requestID string, cmd models.RegisterPayment) (*models.Payment, error) {
	id := cmd.ID
	if id == "" {
		id = uuid.NewString()
	}
	p := &models.Payment{
		UserID:      cmd.UserID,
		WalletID:    cmd.WalletID,
		OperationID: cmd.OperationID,
		Amount:      cmd.Amount,
		Beneficiary: cmd.Beneficiary,
		PaymentDate: cmd.PaymentDate,
		Description: cmd.Description,
	}
	p.Init(id, models.PaymentPending, s.engine.Now())
	return s.engine.Create(ctx, requestID, p)
}

// Send hands a PENDING or due SCHEDULED payment to the scheme gateway. A
// payment dated after today is parked in SCHEDULED instead. Counterparty
// refusals end in FAILED; transient gateway errors are returned.
func (s *Service) Send(ctx context.Context, requestID, id string) (*models.Payment, error) {
	step := transitions.Step[*models.Payment]{
		Name:     models.OpSend,
		From:     []models.State{models.PaymentPending, models.PaymentScheduled},
		To:       models.PaymentWaiting,
		FailTo:   models.PaymentFailed,
		FailWhen: errors.IsRejected,
		Effect: func(ctx context.Context, p *models.Payment) (models.State, error) {
			if p.IsScheduledAfter(s.engine.Now()) {
				if p.State == models.PaymentScheduled {
					return "", transitions.ErrSkip
				}
				return models.PaymentScheduled, nil
			}
			receipt, err := s.gateway.SendPayment(ctx, gateways.PaymentOrder{
				ID:          p.ID,
				Amount:      p.Amount,
				Beneficiary: p.Beneficiary,
				Description: p.Description,
			})
			if err != nil {
				return "", err
			}
			return s.resolve(p, receipt)
		},
	}
	return s.engine.Run(ctx, requestID, step, id)
}

func (s *Service) resolve(p *models.Payment, r gateways.Receipt) (models.State, error) {
	if r.EndToEndID != "" {
		p.ExternalID = r.EndToEndID
	}
	switch {
	case r.Settled():
		return models.PaymentConfirmed, nil
	case r.Rejected():
		return "", errors.GatewayRejectedErr(r.Code, r.Message)
	}
	return models.PaymentWaiting, nil
}

// ConfirmByExternalID settles a WAITING payment once the debit notification
// for its end-to-end id arrives.
func (s *Service) ConfirmByExternalID(ctx context.Context, requestID, externalID string) (*models.Payment, error) {
	step := transitions.Step[*models.Payment]{
		Name: models.OpConfirm,
		From: []models.State{models.PaymentWaiting},
		To:   models.PaymentConfirmed,
	}
	return s.engine.RunByExternalID(ctx, requestID, step, externalID)
}

func (s *Service) Confirm(ctx context.Context, requestID string, cmd models.EntityCommand) (*models.Payment, error) {
	step := transitions.Step[*models.Payment]{
		Name: models.OpConfirm,
		From: []models.State{models.PaymentWaiting},
		To:   models.PaymentConfirmed,
	}
	return s.engine.Run(ctx, requestID, step, cmd.ID)
}

// Complete records that the ledger settled a CONFIRMED payment.
func (s *Service) Complete(ctx context.Context, requestID string, cmd models.EntityCommand) (*models.Payment, error) {
	step := transitions.Step[*models.Payment]{
		Name: models.OpComplete,
		From: []models.State{models.PaymentConfirmed},
		To:   models.PaymentCompleted,
		Effect: func(_ context.Context, p *models.Payment) (models.State, error) {
			if cmd.OperationID != "" {
				p.OperationID = cmd.OperationID
			}
			return "", nil
		},
	}
	return s.engine.Run(ctx, requestID, step, cmd.ID)
}

func (s *Service) Revert(ctx context.Context, requestID string, cmd models.EntityCommand) (*models.Payment, error) {
	step := transitions.Step[*models.Payment]{
		Name: models.OpRevert,
		From: []models.State{models.PaymentWaiting, models.PaymentConfirmed},
		To:   models.PaymentReverted,
		Effect: func(_ context.Context, p *models.Payment) (models.State, error) {
			if cmd.Failure != nil {
				p.Fail(*cmd.Failure)
			}
			return "", nil
		},
	}
	return s.engine.Run(ctx, requestID, step, cmd.ID)
}

func (s *Service) Cancel(ctx context.Context, requestID string, cmd models.EntityCommand) (*models.Payment, error) {
	step := transitions.Step[*models.Payment]{
		Name: models.OpCancel,
		From: []models.State{models.PaymentPending, models.PaymentScheduled},
		To:   models.PaymentCanceled,
	}
	return s.engine.Run(ctx, requestID, step, cmd.ID)
}

// Refresh asks the gateway for the outcome of a WAITING payment whose
// debit notification never arrived.
func (s *Service) Refresh(ctx context.Context, requestID string, p *models.Payment) (*models.Payment, error) {
	step := transitions.Step[*models.Payment]{
		Name:     "refresh",
		From:     []models.State{models.PaymentWaiting},
		To:       models.PaymentConfirmed,
		FailTo:   models.PaymentFailed,
		FailWhen: errors.IsRejected,
		Effect: func(ctx context.Context, p *models.Payment) (models.State, error) {
			if p.ExternalID == "" {
				return "", transitions.ErrSkip
			}
			receipt, err := s.gateway.GetPayment(ctx, p.ExternalID)
			if err != nil {
				return "", err
			}
			next, err := s.resolve(p, receipt)
			if err == nil && next == models.PaymentWaiting {
				return "", transitions.ErrSkip
			}
			return next, err
		},
	}
	return s.engine.Apply(ctx, requestID, step, p)
}

// Update reconciles payments stuck in WAITING for longer than staleAfter and
// sends SCHEDULED payments whose date has come. It returns how many payments
// moved.
func (s *Service) Update(ctx context.Context, staleAfter time.Duration, limit int) (int, error) {
	now := s.engine.Now()
	moved := 0

	waiting, err := s.repo.ListByState(ctx, models.PaymentWaiting, now.Add(-staleAfter), limit)
	if err != nil {
		return moved, err
	}
	for _, p := range waiting {
		next, err := s.Refresh(ctx, "update:"+p.ID, p)
		if err != nil {
			s.logger.Warn("cannot refresh payment", zap.String("id", p.ID), zap.Error(err))
			continue
		}
		if next != nil {
			moved++
		}
	}

	scheduled, err := s.repo.ListByState(ctx, models.PaymentScheduled, now, limit)
	if err != nil {
		return moved, err
	}
	for _, p := range scheduled {
		if p.IsScheduledAfter(now) {
			continue
		}
		next, err := s.Send(ctx, "update:"+p.ID, p.ID)
		if err != nil {
			s.logger.Warn("cannot send scheduled payment", zap.String("id", p.ID), zap.Error(err))
			continue
		}
		if next != nil {
			moved++
		}
	}
	return moved, nil
}
