package models

import (
	// Go Internal Packages
	"time"
)

const (
	PaymentPending   State = "PENDING"
	PaymentScheduled State = "SCHEDULED"
	PaymentWaiting   State = "WAITING"
	PaymentConfirmed State = "CONFIRMED"
	PaymentCompleted State = "COMPLETED"
	PaymentFailed    State = "FAILED"
	PaymentCanceled  State = "CANCELED"
	PaymentError     State = "ERROR"
	PaymentReverted  State = "REVERTED"
)

var PaymentMachine = NewMachine(EntityPayment, map[State][]State{
	PaymentPending:   {PaymentScheduled, PaymentWaiting, PaymentConfirmed, PaymentCanceled, PaymentFailed, PaymentError},
	PaymentScheduled: {PaymentWaiting, PaymentConfirmed, PaymentCanceled, PaymentFailed, PaymentError},
	PaymentWaiting:   {PaymentConfirmed, PaymentFailed, PaymentError, PaymentReverted},
	PaymentConfirmed: {PaymentCompleted, PaymentFailed, PaymentError, PaymentReverted},
}, PaymentError)

// Payment is an outgoing Pix transfer.
type Payment struct {
	Base        `bson:",inline"`
	UserID      string      `json:"userId" bson:"user_id"`
	WalletID    string      `json:"walletId" bson:"wallet_id"`
	OperationID string      `json:"operationId,omitempty" bson:"operation_id,omitempty"`
	Amount      int64       `json:"amount" bson:"amount"`
	Beneficiary Counterpart `json:"beneficiary" bson:"beneficiary"`
	PaymentDate *time.Time  `json:"paymentDate,omitempty" bson:"payment_date,omitempty"`
	Description string      `json:"description,omitempty" bson:"description,omitempty"`
}

func (p *Payment) Machine() *Machine { return PaymentMachine }

func (p *Payment) Project() Event {
	beneficiary := p.Beneficiary
	return Event{
		ID:          p.ID,
		Entity:      EntityPayment,
		State:       p.State,
		ExternalID:  p.ExternalID,
		UserID:      p.UserID,
		WalletID:    p.WalletID,
		OperationID: p.OperationID,
		Amount:      p.Amount,
		Counterpart: &beneficiary,
		Failure:     p.Failure,
		OccurredAt:  p.UpdatedAt,
	}
}

// IsScheduledAfter reports whether the payment date lies after now's calendar day.
func (p *Payment) IsScheduledAfter(now time.Time) bool {
	if p.PaymentDate == nil {
		return false
	}
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return p.PaymentDate.UTC().After(today.Add(24*time.Hour - time.Nanosecond))
}
