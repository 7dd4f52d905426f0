package models

const (
	FraudRegisterPending State = "REGISTER_PENDING"
	FraudRegistered      State = "REGISTERED"
	FraudCancelPending   State = "CANCEL_PENDING"
	FraudCanceled        State = "CANCELED"
	FraudError           State = "ERROR"
)

var FraudDetectionMachine = NewMachine(EntityFraudDetection, map[State][]State{
	FraudRegisterPending: {FraudRegistered, FraudError},
	FraudRegistered:      {FraudCancelPending},
	FraudCancelPending:   {FraudCanceled, FraudError},
}, FraudError)

// FraudDetection is a fraud marker registered with the scheme operator.
type FraudDetection struct {
	Base      `bson:",inline"`
	Document  string `json:"document" bson:"document"`
	FraudType string `json:"fraudType" bson:"fraud_type"`
	Key       string `json:"key,omitempty" bson:"key,omitempty"`
}

func (f *FraudDetection) Machine() *Machine { return FraudDetectionMachine }

func (f *FraudDetection) Project() Event {
	return Event{
		ID:          f.ID,
		Entity:      EntityFraudDetection,
		State:       f.State,
		ExternalID:  f.ExternalID,
		Counterpart: &Counterpart{Document: f.Document},
		Failure:     f.Failure,
		OccurredAt:  f.UpdatedAt,
	}
}
