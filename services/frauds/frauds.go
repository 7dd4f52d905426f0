package frauds

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

const resource = "fraud-detections"

type Gateway interface {
	Submit(ctx context.Context, resource, op string, report gateways.Report) (gateways.Receipt, error)
}

// BlockList receives the documents of confirmed fraud markers so deposit
// screening holds their future credits, and releases them on cancel.
type BlockList interface {
	Add(ctx context.Context, document, reason string) error
	Remove(ctx context.Context, document string) error
}

type Service struct {
	engine    *transitions.Engine[*models.FraudDetection]
	gateway   Gateway
	blocklist BlockList
	logger    *zap.Logger
}

func NewService(repo transitions.Store[*models.FraudDetection], gateway Gateway, blocklist BlockList, emitter transitions.Emitter, now func() time.Time, logger *zap.Logger) *Service {
	return &Service{
		engine:    transitions.NewEngine[*models.FraudDetection](models.EntityFraudDetection, repo, emitter, now, logger),
		gateway:   gateway,
		blocklist: blocklist,
		logger:    logger,
	}
}

func (s *Service) Engine() *transitions.Engine[*models.FraudDetection] { return s.engine }

func (s *Service) Register(ctx context.Context, requestID string, cmd models.RegisterFraudDetection) (*models.FraudDetection, error) {
	id := cmd.ID
	if id == "" {
		id = uuid.NewString()
	}
	f := &models.FraudDetection{Document: cmd.Document, FraudType: cmd.FraudType, Key: cmd.Key}
	f.Init(id, models.FraudRegisterPending, s.engine.Now())
	return s.engine.Create(ctx, requestID, f)
}

// ConfirmRegister registers the marker with the scheme and blocks the
// document locally.
func (s *Service) ConfirmRegister(ctx context.Context, requestID, id string) (*models.FraudDetection, error) {
	step := transitions.Step[*models.FraudDetection]{
		Name:     models.OpRegister,
		From:     []models.State{models.FraudRegisterPending},
		To:       models.FraudRegistered,
		FailTo:   models.FraudError,
		FailWhen: errors.IsRejected,
		Effect: func(ctx context.Context, f *models.FraudDetection) (models.State, error) {
			receipt, err := s.submit(ctx, models.OpRegister, f)
			if err != nil {
				return "", err
			}
			f.ExternalID = receipt.EndToEndID
			if err := s.blocklist.Add(ctx, f.Document, f.FraudType); err != nil {
				return "", err
			}
			return "", nil
		},
	}
	return s.engine.Run(ctx, requestID, step, id)
}

func (s *Service) Cancel(ctx context.Context, requestID string, cmd models.EntityCommand) (*models.FraudDetection, error) {
	step := transitions.Step[*models.FraudDetection]{
		Name: models.OpCancel,
		From: []models.State{models.FraudRegistered},
		To:   models.FraudCancelPending,
	}
	return s.engine.Run(ctx, requestID, step, cmd.ID)
}

// ConfirmCancel withdraws the marker from the scheme and unblocks the
// document.
func (s *Service) ConfirmCancel(ctx context.Context, requestID, id string) (*models.FraudDetection, error) {
	step := transitions.Step[*models.FraudDetection]{
		Name:     models.OpCancel + "_confirm",
		From:     []models.State{models.FraudCancelPending},
		To:       models.FraudCanceled,
		FailTo:   models.FraudError,
		FailWhen: errors.IsRejected,
		Effect: func(ctx context.Context, f *models.FraudDetection) (models.State, error) {
			if _, err := s.submit(ctx, models.OpCancel, f); err != nil {
				return "", err
			}
			if err := s.blocklist.Remove(ctx, f.Document); err != nil {
				return "", err
			}
			return "", nil
		},
	}
	return s.engine.Run(ctx, requestID, step, id)
}

func (s *Service) submit(ctx context.Context, op string, f *models.FraudDetection) (gateways.Receipt, error) {
	receipt, err := s.gateway.Submit(ctx, resource, op, gateways.Report{
		ID:         f.ID,
		ExternalID: f.ExternalID,
		Document:   f.Document,
		Key:        f.Key,
		Reason:     f.FraudType,
	})
	if err != nil {
		return receipt, err
	}
	if receipt.Rejected() {
		return receipt, errors.GatewayRejectedErr(receipt.Code, receipt.Message)
	}
	return receipt, nil
}
