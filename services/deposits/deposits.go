package deposits

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

// History remembers received deposits for the duplicate screening rule.
type History interface {
	Record(ctx context.Context, d *models.Deposit) error
}

type Service struct {
	engine  *transitions.Engine[*models.Deposit]
	repo    transitions.Store[*models.Deposit]
	history History
	logger  *zap.Logger
}

// NewService builds the deposit use cases. history may be nil.
func NewService(repo transitions.Store[*models.Deposit], history History, emitter transitions.Emitter, now func() time.Time, logger *zap.Logger) *Service {
	return &Service{
		engine:  transitions.NewEngine[*models.Deposit](models.EntityDeposit, repo, emitter, now, logger),
		repo:    repo,
		history: history,
		logger:  logger,
	}
}

func (s *Service) Engine() *transitions.Engine[*models.Deposit] { return s.engine }

func (s *Service) Get(ctx context.Context, id string) (*models.Deposit, error) {
	return s.repo.GetByID(ctx, id)
}

// Receive registers the deposit announced by a credit notification. The
// end-to-end id deduplicates redelivered and re-synchronized credits; the
// existing deposit is returned in that case.
func (s *Service) Receive(ctx context.Context, requestID string, n models.CreditNotification) (*models.Deposit, error) {
	existing, err := s.repo.GetByExternalID(ctx, n.ExternalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.logger.Debug("credit already registered", zap.String("external_id", n.ExternalID), zap.String("id", existing.ID))
		return existing, nil
	}

	d := &models.Deposit{
		UserID:      n.UserID,
		WalletID:    n.WalletID,
		Amount:      n.Amount,
		Payer:       n.Payer,
		Beneficiary: n.Beneficiary,
	}
	at := n.CreatedAt
	if at.IsZero() {
		at = s.engine.Now()
	}
	d.Init(uuid.NewString(), models.DepositPending, at.UTC())
	d.ExternalID = n.ExternalID

	// recorded before the pending event exists, so every screening sees it
	if s.history != nil {
		if err := s.history.Record(ctx, d); err != nil {
			return nil, err
		}
	}

	created, err := s.engine.Create(ctx, requestID, d)
	if err != nil {
		return nil, err
	}
	if created == nil {
		// lost a race against a concurrent insert of the same credit
		return s.repo.GetByExternalID(ctx, n.ExternalID)
	}
	return created, nil
}

// Confirm releases a PENDING deposit no rule held, once the ledger credited it.
func (s *Service) Confirm(ctx context.Context, requestID string, cmd models.EntityCommand) (*models.Deposit, error) {
	step := transitions.Step[*models.Deposit]{
		Name: models.OpConfirm,
		From: []models.State{models.DepositPending},
		To:   models.DepositConfirmed,
		Effect: func(_ context.Context, d *models.Deposit) (models.State, error) {
			if cmd.OperationID != "" {
				d.OperationID = cmd.OperationID
			}
			return "", nil
		},
	}
	return s.engine.Run(ctx, requestID, step, cmd.ID)
}

// Hold moves a PENDING deposit to WARNING. Only the first caller wins.
func (s *Service) Hold(ctx context.Context, requestID string, d *models.Deposit) (*models.Deposit, error) {
	step := transitions.Step[*models.Deposit]{
		Name: "hold",
		From: []models.State{models.DepositPending},
		To:   models.DepositWarning,
	}
	return s.engine.Apply(ctx, requestID, step, d)
}

// Release confirms a held deposit after its warning was approved.
func (s *Service) Release(ctx context.Context, requestID, id string) (*models.Deposit, error) {
	step := transitions.Step[*models.Deposit]{
		Name: models.OpApprove,
		From: []models.State{models.DepositWarning},
		To:   models.DepositConfirmed,
	}
	return s.engine.Run(ctx, requestID, step, id)
}

// Block ends a held deposit after its warning was rejected.
func (s *Service) Block(ctx context.Context, requestID, id string) (*models.Deposit, error) {
	step := transitions.Step[*models.Deposit]{
		Name: models.OpReject,
		From: []models.State{models.DepositWarning},
		To:   models.DepositBlocked,
	}
	return s.engine.Run(ctx, requestID, step, id)
}
