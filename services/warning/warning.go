package warning

import (
	// Go Internal Packages
	"context"
	"time"

	// Local Packages
	errors "pix-stream/errors"
	gateways "pix-stream/gateways"
	models "pix-stream/models"
	devolutions "pix-stream/services/devolutions"
	transitions "pix-stream/services/transitions"

	// External Packages
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var votes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pix_stream",
	Name:      "screening_votes_total",
	Help:      "Deposit screening outcomes, by rule and vote.",
}, []string{"rule", "vote"})

type Deposits interface {
	Get(ctx context.Context, id string) (*models.Deposit, error)
	Hold(ctx context.Context, requestID string, d *models.Deposit) (*models.Deposit, error)
	Release(ctx context.Context, requestID, id string) (*models.Deposit, error)
	Block(ctx context.Context, requestID, id string) (*models.Deposit, error)
}

// Service screens incoming deposits and runs the compliance review of the
// ones it holds.
type Service struct {
	warnings    *transitions.Engine[*models.WarningDeposit]
	devolutions *transitions.Engine[*models.WarningDevolution]
	deposits    Deposits
	gateway     devolutions.Gateway
	logger      *zap.Logger
}

func NewService(
	warnings transitions.Store[*models.WarningDeposit],
	warningDevolutions transitions.Store[*models.WarningDevolution],
	deposits Deposits,
	gateway devolutions.Gateway,
	emitter transitions.Emitter,
	now func() time.Time,
	logger *zap.Logger,
) *Service {
	return &Service{
		warnings:    transitions.NewEngine[*models.WarningDeposit](models.EntityWarningDeposit, warnings, emitter, now, logger),
		devolutions: transitions.NewEngine[*models.WarningDevolution](models.EntityWarningDevolution, warningDevolutions, emitter, now, logger),
		deposits:    deposits,
		gateway:     gateway,
		logger:      logger,
	}
}

func (s *Service) Warnings() *transitions.Engine[*models.WarningDeposit] { return s.warnings }

func (s *Service) Devolutions() *transitions.Engine[*models.WarningDevolution] { return s.devolutions }

// Screen runs one evaluator against a pending deposit. Evaluators run
// independently; the first one to hold the deposit moves it to WARNING and
// the warning deposit, keyed by the deposit id, is created at most once.
func (s *Service) Screen(ctx context.Context, requestID, depositID string, rule Evaluator) (*models.WarningDeposit, error) {
	d, err := s.deposits.Get(ctx, depositID)
	if err != nil {
		return nil, err
	}
	if d == nil || (d.State != models.DepositPending && d.State != models.DepositWarning) {
		return nil, nil
	}

	hit, err := rule.Evaluate(ctx, d)
	if err != nil {
		return nil, err
	}
	if !hit {
		votes.WithLabelValues(rule.Name(), "pass").Inc()
		return nil, nil
	}
	votes.WithLabelValues(rule.Name(), "hold").Inc()
	s.logger.Info("deposit flagged", zap.String("rule", rule.Name()), zap.String("deposit_id", d.ID), zap.String("request_id", requestID))

	if d.State == models.DepositPending {
		if _, err := s.deposits.Hold(ctx, requestID, d); err != nil {
			return nil, err
		}
		// another rule may have won, or the deposit was confirmed meanwhile
		if d, err = s.deposits.Get(ctx, depositID); err != nil {
			return nil, err
		}
		if d == nil || d.State != models.DepositWarning {
			return nil, nil
		}
	}

	w := &models.WarningDeposit{
		DepositID: d.ID,
		UserID:    d.UserID,
		Amount:    d.Amount,
		Rules:     []string{rule.Name()},
	}
	w.Init(d.ID, models.WarningDepositPending, s.warnings.Now())
	return s.warnings.Create(ctx, requestID, w)
}

// Approve releases the held deposit.
func (s *Service) Approve(ctx context.Context, requestID string, cmd models.EntityCommand) (*models.WarningDeposit, error) {
	w, err := s.review(ctx, requestID, cmd.ID, models.OpApprove, models.WarningDepositApproved)
	if err != nil || w == nil {
		return nil, err
	}
	if _, err := s.deposits.Release(ctx, requestID, w.DepositID); err != nil {
		return nil, err
	}
	return w, nil
}

// Reject blocks the held deposit and returns the funds to the payer through
// a warning devolution.
func (s *Service) Reject(ctx context.Context, requestID string, cmd models.EntityCommand) (*models.WarningDeposit, error) {
	w, err := s.review(ctx, requestID, cmd.ID, models.OpReject, models.WarningDepositRejected)
	if err != nil || w == nil {
		return nil, err
	}
	if _, err := s.deposits.Block(ctx, requestID, w.DepositID); err != nil {
		return nil, err
	}

	d, err := s.deposits.Get(ctx, w.DepositID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, errors.NotFoundErr("deposit", w.DepositID)
	}
	dv := &models.WarningDevolution{
		WarningDepositID: w.ID,
		DepositID:        d.ID,
		Amount:           d.Amount,
		Payer:            d.Payer,
	}
	dv.Init(w.ID, models.WarningDevolutionPending, s.devolutions.Now())
	if _, err := s.devolutions.Create(ctx, requestID, dv); err != nil {
		return nil, err
	}
	return w, nil
}

// review decides a PENDING warning. A warning already in the target state is
// returned too, so a redelivered decision finishes its follow-ups.
func (s *Service) review(ctx context.Context, requestID, id, op string, to models.State) (*models.WarningDeposit, error) {
	step := transitions.Step[*models.WarningDeposit]{
		Name: op,
		From: []models.State{models.WarningDepositPending},
		To:   to,
	}
	w, err := s.warnings.Run(ctx, requestID, step, id)
	if err != nil || w != nil {
		return w, err
	}
	w, err = s.warnings.Store().GetByID(ctx, id)
	if err != nil || w == nil || w.State != to {
		return nil, err
	}
	return w, nil
}

// SendDevolution hands a PENDING warning devolution to the gateway.
func (s *Service) SendDevolution(ctx context.Context, requestID, id string) (*models.WarningDevolution, error) {
	step := transitions.Step[*models.WarningDevolution]{
		Name:     models.OpSend,
		From:     []models.State{models.WarningDevolutionPending},
		To:       models.WarningDevolutionWaiting,
		FailTo:   models.WarningDevolutionFailed,
		FailWhen: errors.IsRejected,
		Effect: func(ctx context.Context, dv *models.WarningDevolution) (models.State, error) {
			d, err := s.deposits.Get(ctx, dv.DepositID)
			if err != nil {
				return "", err
			}
			if d == nil {
				return "", errors.NotFoundErr("deposit", dv.DepositID)
			}
			receipt, err := s.gateway.SendDevolution(ctx, gateways.DevolutionOrder{
				ID:                 dv.ID,
				OriginalEndToEndID: d.ExternalID,
				Amount:             dv.Amount,
				Payer:              dv.Payer,
				Reason:             "warning rejected",
			})
			if err != nil {
				return "", err
			}
			return devolutions.Resolve(&dv.Base, receipt)
		},
	}
	return s.devolutions.Run(ctx, requestID, step, id)
}

func (s *Service) ConfirmDevolutionByExternalID(ctx context.Context, requestID, externalID string) (*models.WarningDevolution, error) {
	step := transitions.Step[*models.WarningDevolution]{
		Name: models.OpConfirm,
		From: []models.State{models.WarningDevolutionWaiting},
		To:   models.WarningDevolutionConfirmed,
	}
	return s.devolutions.RunByExternalID(ctx, requestID, step, externalID)
}
