package infractions

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

const resource = "infractions"

type Gateway interface {
	Submit(ctx context.Context, resource, op string, report gateways.Report) (gateways.Receipt, error)
}

// phase is a local _PENDING write later acknowledged by the counterparty.
type phase struct {
	from      []models.State
	pending   models.State
	confirmed models.State
}

var phases = map[string]phase{
	models.OpOpen: {
		from:      []models.State{models.InfractionReceived},
		pending:   models.InfractionOpenPending,
		confirmed: models.InfractionOpenConfirmed,
	},
	models.OpAcknowledge: {
		from:      []models.State{models.InfractionOpenConfirmed},
		pending:   models.InfractionAcknowledgedPending,
		confirmed: models.InfractionAcknowledgedConfirmed,
	},
	models.OpClose: {
		from:      []models.State{models.InfractionInAnalysisConfirmed},
		pending:   models.InfractionClosedPending,
		confirmed: models.InfractionClosedConfirmed,
	},
	models.OpCancel: {
		from:      []models.State{models.InfractionOpenPending, models.InfractionOpenConfirmed},
		pending:   models.InfractionCancelPending,
		confirmed: models.InfractionCancelConfirmed,
	},
}

// Ops lists the two-phase operations, each with a request and a confirm topic.
var Ops = []string{models.OpOpen, models.OpAcknowledge, models.OpClose, models.OpCancel}

// PendingState is the state a requested operation waits in for confirmation.
func PendingState(op string) models.State {
	return phases[op].pending
}

type Service struct {
	engine  *transitions.Engine[*models.Infraction]
	repo    transitions.Store[*models.Infraction]
	gateway Gateway
	logger  *zap.Logger
}

func NewService(repo transitions.Store[*models.Infraction], gateway Gateway, emitter transitions.Emitter, now func() time.Time, logger *zap.Logger) *Service {
	return &Service{
		engine:  transitions.NewEngine[*models.Infraction](models.EntityInfraction, repo, emitter, now, logger),
		repo:    repo,
		gateway: gateway,
		logger:  logger,
	}
}

func (s *Service) Engine() *transitions.Engine[*models.Infraction] { return s.engine }

// Receive registers an infraction raised by the counterparty.
func (s *Service) Receive(ctx context.Context, requestID string, cmd models.ReceiveInfraction) (*models.Infraction, error) {
	existing, err := s.repo.GetByExternalID(ctx, cmd.ExternalID)
	if err != nil || existing != nil {
		return nil, err
	}
	i := &models.Infraction{
		TransactionID: cmd.TransactionID,
		Reason:        cmd.Reason,
		Description:   cmd.Description,
	}
	i.Init(uuid.NewString(), models.InfractionReceivePending, s.engine.Now())
	i.ExternalID = cmd.ExternalID
	return s.engine.Create(ctx, requestID, i)
}

// Accept acknowledges locally that a received infraction was recorded.
func (s *Service) Accept(ctx context.Context, requestID, id string) (*models.Infraction, error) {
	step := transitions.Step[*models.Infraction]{
		Name: models.OpReceive,
		From: []models.State{models.InfractionReceivePending},
		To:   models.InfractionReceived,
	}
	return s.engine.Run(ctx, requestID, step, id)
}

// Create opens an infraction on our side; it starts at OPEN_PENDING.
func (s *Service) Create(ctx context.Context, requestID string, cmd models.CreateInfraction) (*models.Infraction, error) {
	id := cmd.ID
	if id == "" {
		id = uuid.NewString()
	}
	i := &models.Infraction{
		TransactionID: cmd.TransactionID,
		OperationID:   cmd.OperationID,
		Reason:        cmd.Reason,
		Description:   cmd.Description,
	}
	i.Init(id, models.InfractionOpenPending, s.engine.Now())
	return s.engine.Create(ctx, requestID, i)
}

// Request writes the _PENDING state of a two-phase operation.
func (s *Service) Request(ctx context.Context, requestID, op string, cmd models.EntityCommand) (*models.Infraction, error) {
	ph, ok := phases[op]
	if !ok {
		return nil, errors.E(errors.Invalid, "unknown infraction operation "+op, nil)
	}
	step := transitions.Step[*models.Infraction]{
		Name: op,
		From: ph.from,
		To:   ph.pending,
	}
	return s.engine.Run(ctx, requestID, step, cmd.ID)
}

// Confirm submits a _PENDING operation to the gateway and records the
// counterparty acknowledgement.
func (s *Service) Confirm(ctx context.Context, requestID, op string, cmd models.EntityCommand) (*models.Infraction, error) {
	ph, ok := phases[op]
	if !ok {
		return nil, errors.E(errors.Invalid, "unknown infraction operation "+op, nil)
	}
	step := transitions.Step[*models.Infraction]{
		Name: op + "_confirm",
		From: []models.State{ph.pending},
		To:   ph.confirmed,
		Effect: func(ctx context.Context, i *models.Infraction) (models.State, error) {
			receipt, err := s.gateway.Submit(ctx, resource, op, report(i))
			if err != nil {
				return "", err
			}
			if receipt.Rejected() {
				return "", errors.GatewayRejectedErr(receipt.Code, receipt.Message)
			}
			if i.ExternalID == "" {
				i.ExternalID = receipt.EndToEndID
			}
			return "", nil
		},
	}
	return s.engine.Run(ctx, requestID, step, cmd.ID)
}

// Analyze records the analysis outcome of an acknowledged infraction.
func (s *Service) Analyze(ctx context.Context, requestID string, cmd models.EntityCommand) (*models.Infraction, error) {
	step := transitions.Step[*models.Infraction]{
		Name: models.OpAnalyze,
		From: []models.State{models.InfractionAcknowledgedConfirmed},
		To:   models.InfractionInAnalysisConfirmed,
		Effect: func(_ context.Context, i *models.Infraction) (models.State, error) {
			if cmd.AnalysisResult == "" {
				return "", errors.EmptyParamErr("analysisResult")
			}
			i.AnalysisResult = cmd.AnalysisResult
			i.AnalysisDetails = cmd.AnalysisDetails
			return "", nil
		},
	}
	return s.engine.Run(ctx, requestID, step, cmd.ID)
}

func report(i *models.Infraction) gateways.Report {
	return gateways.Report{
		ID:              i.ID,
		ExternalID:      i.ExternalID,
		TransactionID:   i.TransactionID,
		Reason:          i.Reason,
		AnalysisResult:  i.AnalysisResult,
		AnalysisDetails: i.AnalysisDetails,
	}
}
