package devolutions

import (
	// Go Internal Packages
	"context"
	"fmt"
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
	SendDevolution(ctx context.Context, order gateways.DevolutionOrder) (gateways.Receipt, error)
}

type Repository interface {
	transitions.Store[*models.Devolution]
	ListByDepositID(ctx context.Context, depositID string) ([]*models.Devolution, error)
}

type DepositReader interface {
	GetByID(ctx context.Context, id string) (*models.Deposit, error)
}

type Service struct {
	engine   *transitions.Engine[*models.Devolution]
	repo     Repository
	deposits DepositReader
	gateway  Gateway
	logger   *zap.Logger
}

func NewService(repo Repository, deposits DepositReader, gateway Gateway, emitter transitions.Emitter, now func() time.Time, logger *zap.Logger) *Service {
	return &Service{
		engine:   transitions.NewEngine[*models.Devolution](models.EntityDevolution, repo, emitter, now, logger),
		repo:     repo,
		deposits: deposits,
		gateway:  gateway,
		logger:   logger,
	}
}

func (s *Service) Engine() *transitions.Engine[*models.Devolution] { return s.engine }

// Create registers a PENDING devolution of a CONFIRMED deposit. The amounts
// of the deposit's devolutions that did not fail may not exceed the deposit.
func (s *Service) Create(ctx context.Context, requestID string, cmd models.CreateDevolution) (*models.Devolution, error) {
	deposit, err := s.deposits.GetByID(ctx, cmd.DepositID)
	if err != nil {
		return nil, err
	}
	if deposit == nil || deposit.State != models.DepositConfirmed {
		s.logger.Info("deposit cannot be returned, ignoring", zap.String("deposit_id", cmd.DepositID), zap.String("request_id", requestID))
		return nil, nil
	}

	previous, err := s.repo.ListByDepositID(ctx, deposit.ID)
	if err != nil {
		return nil, err
	}
	returned := int64(0)
	for _, d := range previous {
		if d.ID == cmd.ID {
			return nil, nil
		}
		if d.State != models.DevolutionFailed && d.State != models.DevolutionError {
			returned += d.Amount
		}
	}
	if returned+cmd.Amount > deposit.Amount {
		ve := errors.ValidationErrs()
		ve.Add("amount", fmt.Sprintf("exceeds the %d cents left to return", deposit.Amount-returned))
		return nil, errors.ValidationFailedErr(ve.Err())
	}

	id := cmd.ID
	if id == "" {
		id = uuid.NewString()
	}
	d := &models.Devolution{
		DepositID:   deposit.ID,
		UserID:      deposit.UserID,
		WalletID:    deposit.WalletID,
		OperationID: cmd.OperationID,
		Amount:      cmd.Amount,
		Payer:       deposit.Payer,
		Description: cmd.Description,
	}
	d.Init(id, models.DevolutionPending, s.engine.Now())
	return s.engine.Create(ctx, requestID, d)
}

// Send hands a PENDING devolution to the gateway.
func (s *Service) Send(ctx context.Context, requestID, id string) (*models.Devolution, error) {
	step := transitions.Step[*models.Devolution]{
		Name:     models.OpSend,
		From:     []models.State{models.DevolutionPending},
		To:       models.DevolutionWaiting,
		FailTo:   models.DevolutionFailed,
		FailWhen: errors.IsRejected,
		Effect: func(ctx context.Context, d *models.Devolution) (models.State, error) {
			deposit, err := s.deposits.GetByID(ctx, d.DepositID)
			if err != nil {
				return "", err
			}
			if deposit == nil {
				return "", errors.NotFoundErr("deposit", d.DepositID)
			}
			receipt, err := s.gateway.SendDevolution(ctx, gateways.DevolutionOrder{
				ID:                 d.ID,
				OriginalEndToEndID: deposit.ExternalID,
				Amount:             d.Amount,
				Payer:              d.Payer,
				Reason:             d.Description,
			})
			if err != nil {
				return "", err
			}
			return Resolve(&d.Base, receipt)
		},
	}
	return s.engine.Run(ctx, requestID, step, id)
}

// Resolve maps a gateway receipt onto the next devolution state.
func Resolve(b *models.Base, r gateways.Receipt) (models.State, error) {
	if r.EndToEndID != "" {
		b.ExternalID = r.EndToEndID
	}
	switch {
	case r.Settled():
		return models.DevolutionConfirmed, nil
	case r.Rejected():
		return "", errors.GatewayRejectedErr(r.Code, r.Message)
	}
	return models.DevolutionWaiting, nil
}

// ConfirmByExternalID settles a WAITING devolution on its completion
// notification.
func (s *Service) ConfirmByExternalID(ctx context.Context, requestID, externalID string) (*models.Devolution, error) {
	step := transitions.Step[*models.Devolution]{
		Name: models.OpConfirm,
		From: []models.State{models.DevolutionWaiting},
		To:   models.DevolutionConfirmed,
	}
	return s.engine.RunByExternalID(ctx, requestID, step, externalID)
}
