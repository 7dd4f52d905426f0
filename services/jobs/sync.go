package jobs

import (
	// Go Internal Packages
	"context"
	"time"

	// Local Packages
	gateways "pix-stream/gateways"
	models "pix-stream/models"

	// External Packages
	"go.uber.org/zap"
)

const (
	defaultPageSize = 100
	cursorKey       = "pix-stream:statement:cursor"
	// statementPrefix marks request ids of credits republished from the
	// statement, so their notifications never clash with gateway ones.
	statementPrefix = "statement:"
)

type StatementSource interface {
	Statement(ctx context.Context, cursor string, limit int) (gateways.StatementPage, error)
}

type CursorStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type Sender interface {
	Send(ctx context.Context, topic, key, requestID string, payload any) error
}

// KnownDeposits finds a deposit by end-to-end id.
type KnownDeposits interface {
	GetByExternalID(ctx context.Context, externalID string) (*models.Deposit, error)
}

// Sync pages the scheme statement from the stored cursor and republishes
// every credit with no deposit yet to the credit ingress topic.
type Sync struct {
	source   StatementSource
	cursors  CursorStore
	sender   Sender
	deposits KnownDeposits
	pageSize int
	logger   *zap.Logger
}

func NewSync(source StatementSource, cursors CursorStore, sender Sender, deposits KnownDeposits, logger *zap.Logger) *Sync {
	return &Sync{
		source:   source,
		cursors:  cursors,
		sender:   sender,
		deposits: deposits,
		pageSize: defaultPageSize,
		logger:   logger.With(zap.String("job", "sync")),
	}
}

func (s *Sync) Name() string { return "sync" }

func (s *Sync) Run(ctx context.Context) error {
	cursor, _, err := s.cursors.Get(ctx, cursorKey)
	if err != nil {
		return err
	}

	var seen, published int
	for {
		page, err := s.source.Statement(ctx, cursor, s.pageSize)
		if err != nil {
			return err
		}
		for _, credit := range page.Entries {
			seen++
			known, err := s.deposits.GetByExternalID(ctx, credit.ExternalID)
			if err != nil {
				return err
			}
			if known != nil {
				continue
			}
			topic := models.NotifyTopic(models.FamilyCredit)
			if err := s.sender.Send(ctx, topic, credit.ExternalID, statementPrefix+credit.ExternalID, credit); err != nil {
				return err
			}
			published++
		}
		// the last page is fetched again next run, so late entries on it are not missed
		if page.Next == "" || page.Next == cursor {
			break
		}
		cursor = page.Next
		if err := s.cursors.Set(ctx, cursorKey, cursor, 0); err != nil {
			return err
		}
	}

	s.logger.Info("statement synchronized", zap.Int("seen", seen), zap.Int("published", published))
	return nil
}
