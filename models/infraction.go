package models

const (
	InfractionReceivePending        State = "RECEIVE_PENDING"
	InfractionReceived              State = "RECEIVED"
	InfractionOpenPending           State = "OPEN_PENDING"
	InfractionOpenConfirmed         State = "OPEN_CONFIRMED"
	InfractionAcknowledgedPending   State = "ACKNOWLEDGED_PENDING"
	InfractionAcknowledgedConfirmed State = "ACKNOWLEDGED_CONFIRMED"
	InfractionInAnalysisConfirmed   State = "IN_ANALYSIS_CONFIRMED"
	InfractionClosedPending         State = "CLOSED_PENDING"
	InfractionClosedConfirmed       State = "CLOSED_CONFIRMED"
	InfractionCancelPending         State = "CANCEL_PENDING"
	InfractionCancelConfirmed       State = "CANCEL_CONFIRMED"
)

// Each _PENDING -> _CONFIRMED pair is a local write acknowledged later by the
// counterparty through the gateway.
var InfractionMachine = NewMachine(EntityInfraction, map[State][]State{
	InfractionReceivePending:        {InfractionReceived},
	InfractionReceived:              {InfractionOpenPending},
	InfractionOpenPending:           {InfractionOpenConfirmed, InfractionCancelPending},
	InfractionOpenConfirmed:         {InfractionAcknowledgedPending, InfractionCancelPending},
	InfractionAcknowledgedPending:   {InfractionAcknowledgedConfirmed},
	InfractionAcknowledgedConfirmed: {InfractionInAnalysisConfirmed},
	InfractionInAnalysisConfirmed:   {InfractionClosedPending},
	InfractionClosedPending:         {InfractionClosedConfirmed},
	InfractionCancelPending:         {InfractionCancelConfirmed},
}, "")

type Infraction struct {
	Base            `bson:",inline"`
	TransactionID   string `json:"transactionId" bson:"transaction_id"`
	OperationID     string `json:"operationId,omitempty" bson:"operation_id,omitempty"`
	Reason          string `json:"reason" bson:"reason"`
	Description     string `json:"description,omitempty" bson:"description,omitempty"`
	AnalysisResult  string `json:"analysisResult,omitempty" bson:"analysis_result,omitempty"`
	AnalysisDetails string `json:"analysisDetails,omitempty" bson:"analysis_details,omitempty"`
}

func (i *Infraction) Machine() *Machine { return InfractionMachine }

func (i *Infraction) Project() Event {
	return Event{
		ID:          i.ID,
		Entity:      EntityInfraction,
		State:       i.State,
		ExternalID:  i.ExternalID,
		ReferenceID: i.TransactionID,
		OperationID: i.OperationID,
		OccurredAt:  i.UpdatedAt,
	}
}
