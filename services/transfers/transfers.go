package transfers

import (
	// Go Internal Packages
	"context"
	"time"

	// Local Packages
	models "pix-stream/models"
	transitions "pix-stream/services/transitions"

	// External Packages
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service bridges traditional banking transfers announced by the gateway.
type Service struct {
	engine *transitions.Engine[*models.BankingTransfer]
	repo   transitions.Store[*models.BankingTransfer]
}

func NewService(repo transitions.Store[*models.BankingTransfer], emitter transitions.Emitter, now func() time.Time, logger *zap.Logger) *Service {
	return &Service{
		engine: transitions.NewEngine[*models.BankingTransfer](models.EntityBankingTransfer, repo, emitter, now, logger),
		repo:   repo,
	}
}

func (s *Service) Engine() *transitions.Engine[*models.BankingTransfer] { return s.engine }

// Register records a REGISTERED transfer, returning the existing one when the
// external id was already seen.
func (s *Service) Register(ctx context.Context, requestID string, cmd models.RegisterBankingTransfer) (*models.BankingTransfer, error) {
	existing, err := s.repo.GetByExternalID(ctx, cmd.ExternalID)
	if err != nil || existing != nil {
		return existing, err
	}
	b := &models.BankingTransfer{
		TransactionID: cmd.TransactionID,
		OperationID:   cmd.OperationID,
		Amount:        cmd.Amount,
		Payer:         cmd.Payer,
		Beneficiary:   cmd.Beneficiary,
	}
	b.Init(uuid.NewString(), models.BankingTransferRegistered, s.engine.Now())
	b.ExternalID = cmd.ExternalID
	created, err := s.engine.Create(ctx, requestID, b)
	if err != nil || created != nil {
		return created, err
	}
	return s.repo.GetByExternalID(ctx, cmd.ExternalID)
}

func (s *Service) ConfirmByExternalID(ctx context.Context, requestID, externalID string) (*models.BankingTransfer, error) {
	step := transitions.Step[*models.BankingTransfer]{
		Name: models.OpConfirm,
		From: []models.State{models.BankingTransferRegistered},
		To:   models.BankingTransferConfirmed,
	}
	return s.engine.RunByExternalID(ctx, requestID, step, externalID)
}
