package models

const (
	DepositPending   State = "PENDING"
	DepositWarning   State = "WARNING"
	DepositConfirmed State = "CONFIRMED"
	DepositBlocked   State = "BLOCKED"
	DepositError     State = "ERROR"
)

var DepositMachine = NewMachine(EntityDeposit, map[State][]State{
	DepositPending: {DepositWarning, DepositConfirmed, DepositError},
	DepositWarning: {DepositConfirmed, DepositBlocked, DepositError},
}, DepositError)

// Deposit is an incoming Pix credit.
type Deposit struct {
	Base        `bson:",inline"`
	UserID      string      `json:"userId,omitempty" bson:"user_id,omitempty"`
	WalletID    string      `json:"walletId,omitempty" bson:"wallet_id,omitempty"`
	OperationID string      `json:"operationId,omitempty" bson:"operation_id,omitempty"`
	Amount      int64       `json:"amount" bson:"amount"`
	Payer       Counterpart `json:"payer" bson:"payer"`
	Beneficiary Counterpart `json:"beneficiary" bson:"beneficiary"`
}

func (d *Deposit) Machine() *Machine { return DepositMachine }

func (d *Deposit) Project() Event {
	payer := d.Payer
	return Event{
		ID:          d.ID,
		Entity:      EntityDeposit,
		State:       d.State,
		ExternalID:  d.ExternalID,
		UserID:      d.UserID,
		WalletID:    d.WalletID,
		OperationID: d.OperationID,
		Amount:      d.Amount,
		Counterpart: &payer,
		Failure:     d.Failure,
		OccurredAt:  d.UpdatedAt,
	}
}
