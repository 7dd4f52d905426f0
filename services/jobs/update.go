package jobs

import (
	// Go Internal Packages
	"context"
	"time"

	// External Packages
	"go.uber.org/zap"
)

const updateBatch = 500

type PaymentUpdater interface {
	Update(ctx context.Context, staleAfter time.Duration, limit int) (int, error)
}

// Update re-queries payments stuck in WAITING and sends due scheduled ones.
type Update struct {
	payments   PaymentUpdater
	staleAfter time.Duration
	logger     *zap.Logger
}

func NewUpdate(payments PaymentUpdater, staleAfter time.Duration, logger *zap.Logger) *Update {
	return &Update{payments: payments, staleAfter: staleAfter, logger: logger.With(zap.String("job", "update"))}
}

func (u *Update) Name() string { return "update" }

func (u *Update) Run(ctx context.Context) error {
	n, err := u.payments.Update(ctx, u.staleAfter, updateBatch)
	if err != nil {
		return err
	}
	u.logger.Info("payments updated", zap.Int("count", n))
	return nil
}
