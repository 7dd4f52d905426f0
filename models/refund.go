package models

const (
	RefundReceivePending  State = "RECEIVE_PENDING"
	RefundReceived        State = "RECEIVED"
	RefundClosedPending   State = "CLOSED_PENDING"
	RefundClosedConfirmed State = "CLOSED_CONFIRMED"
	RefundCancelPending   State = "CANCEL_PENDING"
	RefundCancelConfirmed State = "CANCEL_CONFIRMED"
	RefundError           State = "ERROR"
)

var RefundMachine = NewMachine(EntityRefund, map[State][]State{
	RefundReceivePending: {RefundReceived, RefundError},
	RefundReceived:       {RefundClosedPending, RefundCancelPending, RefundError},
	RefundClosedPending:  {RefundClosedConfirmed, RefundError},
	RefundCancelPending:  {RefundCancelConfirmed, RefundError},
}, RefundError)

// Refund is a special return request, optionally raised by an infraction.
type Refund struct {
	Base           `bson:",inline"`
	InfractionID   string `json:"infractionId,omitempty" bson:"infraction_id,omitempty"`
	TransactionID  string `json:"transactionId" bson:"transaction_id"`
	OperationID    string `json:"operationId,omitempty" bson:"operation_id,omitempty"`
	Amount         int64  `json:"amount" bson:"amount"`
	Reason         string `json:"reason" bson:"reason"`
	AnalysisResult string `json:"analysisResult,omitempty" bson:"analysis_result,omitempty"`
}

func (r *Refund) Machine() *Machine { return RefundMachine }

func (r *Refund) Project() Event {
	return Event{
		ID:          r.ID,
		Entity:      EntityRefund,
		State:       r.State,
		ExternalID:  r.ExternalID,
		ReferenceID: r.InfractionID,
		OperationID: r.OperationID,
		Amount:      r.Amount,
		Failure:     r.Failure,
		OccurredAt:  r.UpdatedAt,
	}
}
