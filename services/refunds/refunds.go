package refunds

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

const resource = "refunds"

type Gateway interface {
	Submit(ctx context.Context, resource, op string, report gateways.Report) (gateways.Receipt, error)
}

type Repository interface {
	transitions.Store[*models.Refund]
	GetByInfractionIDAndState(ctx context.Context, infractionID string, states ...models.State) (*models.Refund, error)
}

// openStates are the states in which a refund still blocks a new one for
// the same infraction.
var openStates = []models.State{
	models.RefundReceivePending,
	models.RefundReceived,
	models.RefundClosedPending,
	models.RefundCancelPending,
}

type Service struct {
	engine  *transitions.Engine[*models.Refund]
	repo    Repository
	gateway Gateway
	logger  *zap.Logger
}

func NewService(repo Repository, gateway Gateway, emitter transitions.Emitter, now func() time.Time, logger *zap.Logger) *Service {
	return &Service{
		engine:  transitions.NewEngine[*models.Refund](models.EntityRefund, repo, emitter, now, logger),
		repo:    repo,
		gateway: gateway,
		logger:  logger,
	}
}

func (s *Service) Engine() *transitions.Engine[*models.Refund] { return s.engine }

// Receive registers a refund request. A redelivered request, or a second
// request while the infraction already has an open refund, is ignored.
func (s *Service) Receive(ctx context.Context, requestID string, cmd models.ReceiveRefund) (*models.Refund, error) {
	existing, err := s.repo.GetByExternalID(ctx, cmd.ExternalID)
	if err != nil || existing != nil {
		return nil, err
	}
	if cmd.InfractionID != "" {
		open, err := s.repo.GetByInfractionIDAndState(ctx, cmd.InfractionID, openStates...)
		if err != nil {
			return nil, err
		}
		if open != nil {
			s.logger.Info("infraction already has an open refund, ignoring",
				zap.String("infraction_id", cmd.InfractionID),
				zap.String("refund_id", open.ID),
				zap.String("request_id", requestID),
			)
			return nil, nil
		}
	}

	r := &models.Refund{
		InfractionID:  cmd.InfractionID,
		TransactionID: cmd.TransactionID,
		OperationID:   cmd.OperationID,
		Amount:        cmd.Amount,
		Reason:        cmd.Reason,
	}
	r.Init(uuid.NewString(), models.RefundReceivePending, s.engine.Now())
	r.ExternalID = cmd.ExternalID
	return s.engine.Create(ctx, requestID, r)
}

func (s *Service) Accept(ctx context.Context, requestID, id string) (*models.Refund, error) {
	step := transitions.Step[*models.Refund]{
		Name: models.OpReceive,
		From: []models.State{models.RefundReceivePending},
		To:   models.RefundReceived,
	}
	return s.engine.Run(ctx, requestID, step, id)
}

// Close requests closing a received refund with the analysis outcome.
func (s *Service) Close(ctx context.Context, requestID string, cmd models.EntityCommand) (*models.Refund, error) {
	step := transitions.Step[*models.Refund]{
		Name: models.OpClose,
		From: []models.State{models.RefundReceived},
		To:   models.RefundClosedPending,
		Effect: func(_ context.Context, r *models.Refund) (models.State, error) {
			if cmd.AnalysisResult == "" {
				return "", errors.EmptyParamErr("analysisResult")
			}
			r.AnalysisResult = cmd.AnalysisResult
			if cmd.OperationID != "" {
				r.OperationID = cmd.OperationID
			}
			return "", nil
		},
	}
	return s.engine.Run(ctx, requestID, step, cmd.ID)
}

func (s *Service) Cancel(ctx context.Context, requestID string, cmd models.EntityCommand) (*models.Refund, error) {
	step := transitions.Step[*models.Refund]{
		Name: models.OpCancel,
		From: []models.State{models.RefundReceived},
		To:   models.RefundCancelPending,
	}
	return s.engine.Run(ctx, requestID, step, cmd.ID)
}

// Confirm submits a CLOSED_PENDING or CANCEL_PENDING refund to the gateway.
// A refusal moves the refund to ERROR.
func (s *Service) Confirm(ctx context.Context, requestID string, cmd models.EntityCommand) (*models.Refund, error) {
	step := transitions.Step[*models.Refund]{
		Name:     models.OpConfirm,
		From:     []models.State{models.RefundClosedPending, models.RefundCancelPending},
		To:       models.RefundClosedConfirmed,
		FailTo:   models.RefundError,
		FailWhen: errors.IsRejected,
		Effect: func(ctx context.Context, r *models.Refund) (models.State, error) {
			op, next := models.OpClose, models.RefundClosedConfirmed
			if r.State == models.RefundCancelPending {
				op, next = models.OpCancel, models.RefundCancelConfirmed
			}
			receipt, err := s.gateway.Submit(ctx, resource, op, gateways.Report{
				ID:             r.ID,
				ExternalID:     r.ExternalID,
				TransactionID:  r.TransactionID,
				Amount:         r.Amount,
				Reason:         r.Reason,
				AnalysisResult: r.AnalysisResult,
			})
			if err != nil {
				return "", err
			}
			if receipt.Rejected() {
				return "", errors.GatewayRejectedErr(receipt.Code, receipt.Message)
			}
			return next, nil
		},
	}
	return s.engine.Run(ctx, requestID, step, cmd.ID)
}
