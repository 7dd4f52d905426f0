package models

import (
	// Go Internal Packages
	"time"
)

const (
	NotificationReceived State = "RECEIVED"
	NotificationReady    State = "READY"
	NotificationError    State = "ERROR"
)

var NotificationMachine = NewMachine(EntityNotification, map[State][]State{
	NotificationReceived: {NotificationReady, NotificationError},
}, NotificationError)

// Notification bridges one gateway notification to the entity it drives.
// ExternalID holds the request id of the ingress message and ID is derived
// from family and request id, so a redelivered notification maps to one row.
type Notification struct {
	Base        `bson:",inline"`
	Family      string `json:"family" bson:"family"`
	ReferenceID string `json:"referenceId,omitempty" bson:"reference_id,omitempty"`
	Amount      int64  `json:"amount,omitempty" bson:"amount,omitempty"`
}

func NotificationID(family, requestID string) string {
	return family + ":" + requestID
}

func (n *Notification) Machine() *Machine { return NotificationMachine }

func (n *Notification) Project() Event {
	return Event{
		ID:          n.ID,
		Entity:      EntityNotification,
		Family:      n.Family,
		State:       n.State,
		ExternalID:  n.ExternalID,
		ReferenceID: n.ReferenceID,
		Amount:      n.Amount,
		Failure:     n.Failure,
		OccurredAt:  n.UpdatedAt,
	}
}

const (
	BankingTransferRegistered State = "REGISTERED"
	BankingTransferConfirmed  State = "CONFIRMED"
	BankingTransferError      State = "ERROR"
)

var BankingTransferMachine = NewMachine(EntityBankingTransfer, map[State][]State{
	BankingTransferRegistered: {BankingTransferConfirmed, BankingTransferError},
}, BankingTransferError)

// BankingTransfer is the bridge record of a traditional (TED) transfer.
type BankingTransfer struct {
	Base          `bson:",inline"`
	TransactionID string      `json:"transactionId" bson:"transaction_id"`
	OperationID   string      `json:"operationId,omitempty" bson:"operation_id,omitempty"`
	Amount        int64       `json:"amount" bson:"amount"`
	Payer         Counterpart `json:"payer" bson:"payer"`
	Beneficiary   Counterpart `json:"beneficiary" bson:"beneficiary"`
}

func (b *BankingTransfer) Machine() *Machine { return BankingTransferMachine }

func (b *BankingTransfer) Project() Event {
	beneficiary := b.Beneficiary
	return Event{
		ID:          b.ID,
		Entity:      EntityBankingTransfer,
		State:       b.State,
		ExternalID:  b.ExternalID,
		ReferenceID: b.TransactionID,
		OperationID: b.OperationID,
		Amount:      b.Amount,
		Counterpart: &beneficiary,
		Failure:     b.Failure,
		OccurredAt:  b.UpdatedAt,
	}
}

// FailedTransition is the write-once record left by the dead-letter handler.
// ID is the correlation id of the failed message.
type FailedTransition struct {
	ID        string    `json:"id" bson:"_id"`
	Entity    string    `json:"entity" bson:"entity"`
	EntityID  string    `json:"entityId,omitempty" bson:"entity_id,omitempty"`
	Topic     string    `json:"topic" bson:"topic"`
	Code      string    `json:"code" bson:"code"`
	Message   string    `json:"message" bson:"message"`
	Payload   []byte    `json:"payload" bson:"payload"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}
