package models

const (
	WarningDepositPending  State = "PENDING"
	WarningDepositApproved State = "APPROVED"
	WarningDepositRejected State = "REJECTED"
)

var WarningDepositMachine = NewMachine(EntityWarningDeposit, map[State][]State{
	WarningDepositPending: {WarningDepositApproved, WarningDepositRejected},
}, "")

// WarningDeposit holds a screened deposit for compliance review. Its id is
// the id of the deposit it holds, so at most one exists per deposit.
type WarningDeposit struct {
	Base      `bson:",inline"`
	DepositID string   `json:"depositId" bson:"deposit_id"`
	UserID    string   `json:"userId,omitempty" bson:"user_id,omitempty"`
	Amount    int64    `json:"amount" bson:"amount"`
	Rules     []string `json:"rules" bson:"rules"`
}

func (w *WarningDeposit) Machine() *Machine { return WarningDepositMachine }

func (w *WarningDeposit) Project() Event {
	return Event{
		ID:          w.ID,
		Entity:      EntityWarningDeposit,
		State:       w.State,
		ReferenceID: w.DepositID,
		UserID:      w.UserID,
		Amount:      w.Amount,
		OccurredAt:  w.UpdatedAt,
	}
}

const (
	WarningDevolutionPending   State = "PENDING"
	WarningDevolutionWaiting   State = "WAITING"
	WarningDevolutionConfirmed State = "CONFIRMED"
	WarningDevolutionFailed    State = "FAILED"
	WarningDevolutionError     State = "ERROR"
)

var WarningDevolutionMachine = NewMachine(EntityWarningDevolution, devolutionGraph, WarningDevolutionError)

// WarningDevolution returns a rejected warning deposit to its payer.
type WarningDevolution struct {
	Base             `bson:",inline"`
	WarningDepositID string      `json:"warningDepositId" bson:"warning_deposit_id"`
	DepositID        string      `json:"depositId" bson:"deposit_id"`
	Amount           int64       `json:"amount" bson:"amount"`
	Payer            Counterpart `json:"payer" bson:"payer"`
}

func (w *WarningDevolution) Machine() *Machine { return WarningDevolutionMachine }

func (w *WarningDevolution) Project() Event {
	payer := w.Payer
	return Event{
		ID:          w.ID,
		Entity:      EntityWarningDevolution,
		State:       w.State,
		ExternalID:  w.ExternalID,
		ReferenceID: w.WarningDepositID,
		Amount:      w.Amount,
		Counterpart: &payer,
		Failure:     w.Failure,
		OccurredAt:  w.UpdatedAt,
	}
}
