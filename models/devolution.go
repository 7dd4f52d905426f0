package models

const (
	DevolutionPending   State = "PENDING"
	DevolutionWaiting   State = "WAITING"
	DevolutionConfirmed State = "CONFIRMED"
	DevolutionFailed    State = "FAILED"
	DevolutionError     State = "ERROR"
)

var devolutionGraph = map[State][]State{
	DevolutionPending: {DevolutionWaiting, DevolutionConfirmed, DevolutionFailed, DevolutionError},
	DevolutionWaiting: {DevolutionConfirmed, DevolutionFailed, DevolutionError},
}

var DevolutionMachine = NewMachine(EntityDevolution, devolutionGraph, DevolutionError)

// Devolution returns (part of) a deposit to its payer.
type Devolution struct {
	Base        `bson:",inline"`
	DepositID   string      `json:"depositId" bson:"deposit_id"`
	UserID      string      `json:"userId,omitempty" bson:"user_id,omitempty"`
	WalletID    string      `json:"walletId,omitempty" bson:"wallet_id,omitempty"`
	OperationID string      `json:"operationId,omitempty" bson:"operation_id,omitempty"`
	Amount      int64       `json:"amount" bson:"amount"`
	Payer       Counterpart `json:"payer" bson:"payer"`
	Description string      `json:"description,omitempty" bson:"description,omitempty"`
}

func (d *Devolution) Machine() *Machine { return DevolutionMachine }

func (d *Devolution) Project() Event {
	payer := d.Payer
	return Event{
		ID:          d.ID,
		Entity:      EntityDevolution,
		State:       d.State,
		ExternalID:  d.ExternalID,
		ReferenceID: d.DepositID,
		UserID:      d.UserID,
		WalletID:    d.WalletID,
		OperationID: d.OperationID,
		Amount:      d.Amount,
		Counterpart: &payer,
		Failure:     d.Failure,
		OccurredAt:  d.UpdatedAt,
	}
}
