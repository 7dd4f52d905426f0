package memory

import (
	// Go Internal Packages
	"context"
	"sync"

	// Local Packages
	errors "pix-stream/errors"
	models "pix-stream/models"
)

type (
	Payments           = Store[models.Payment, *models.Payment]
	Deposits           = Store[models.Deposit, *models.Deposit]
	Infractions        = Store[models.Infraction, *models.Infraction]
	FraudDetections    = Store[models.FraudDetection, *models.FraudDetection]
	WarningDeposits    = Store[models.WarningDeposit, *models.WarningDeposit]
	WarningDevolutions = Store[models.WarningDevolution, *models.WarningDevolution]
	BankingTransfers   = Store[models.BankingTransfer, *models.BankingTransfer]
	Notifications      = Store[models.Notification, *models.Notification]
)

type Devolutions struct {
	*Store[models.Devolution, *models.Devolution]
}

func NewDevolutions() *Devolutions {
	return &Devolutions{NewStore[models.Devolution, *models.Devolution]()}
}

func (s *Devolutions) ListByDepositID(ctx context.Context, depositID string) ([]*models.Devolution, error) {
	return s.Find(ctx, func(d *models.Devolution) bool { return d.DepositID == depositID })
}

type Refunds struct {
	*Store[models.Refund, *models.Refund]
}

func NewRefunds() *Refunds {
	return &Refunds{NewStore[models.Refund, *models.Refund]()}
}

func (s *Refunds) GetByInfractionIDAndState(ctx context.Context, infractionID string, states ...models.State) (*models.Refund, error) {
	return s.FindOne(ctx, func(r *models.Refund) bool {
		if r.InfractionID != infractionID {
			return false
		}
		for _, st := range states {
			if r.State == st {
				return true
			}
		}
		return false
	})
}

// FailedTransitions is the write-once dead-letter record store.
type FailedTransitions struct {
	mu    sync.Mutex
	items map[string]models.FailedTransition
}

func NewFailedTransitions() *FailedTransitions {
	return &FailedTransitions{items: make(map[string]models.FailedTransition)}
}

func (s *FailedTransitions) Create(_ context.Context, f models.FailedTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[f.ID]; ok {
		return errors.ErrDuplicate
	}
	s.items[f.ID] = f
	return nil
}

func (s *FailedTransitions) GetByID(_ context.Context, id string) (*models.FailedTransition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (s *FailedTransitions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

type BlockList struct {
	mu        sync.RWMutex
	documents map[string]string
}

func NewBlockList(documents ...string) *BlockList {
	b := &BlockList{documents: make(map[string]string)}
	for _, d := range documents {
		b.documents[d] = "seeded"
	}
	return b
}

func (b *BlockList) Add(_ context.Context, document, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.documents[document] = reason
	return nil
}

func (b *BlockList) Remove(_ context.Context, document string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.documents, document)
	return nil
}

func (b *BlockList) Contains(_ context.Context, document string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.documents[document]
	return ok, nil
}
