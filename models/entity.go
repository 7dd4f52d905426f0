package models

import (
	// Go Internal Packages
	"time"

	// Local Packages
	errors "pix-stream/errors"
)

// Failure is attached when a transition resolves to a failure state.
type Failure struct {
	Code    string `json:"code" bson:"code"`
	Message string `json:"message" bson:"message"`
}

// Counterpart identifies the other side of a movement.
type Counterpart struct {
	Document string `json:"document" bson:"document"`
	Name     string `json:"name,omitempty" bson:"name,omitempty"`
	ISPB     string `json:"ispb" bson:"ispb"`
	Branch   string `json:"branch,omitempty" bson:"branch,omitempty"`
	Account  string `json:"account,omitempty" bson:"account,omitempty"`
}

// Base holds the fields shared by every transactional entity.
type Base struct {
	ID         string    `json:"id" bson:"_id"`
	ExternalID string    `json:"externalId,omitempty" bson:"external_id,omitempty"`
	State      State     `json:"state" bson:"state"`
	CreatedAt  time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updated_at"`
	Failure    *Failure  `json:"failure,omitempty" bson:"failure,omitempty"`
}

func (b *Base) EntityID() string { return b.ID }

func (b *Base) ExternalRef() string { return b.ExternalID }

func (b *Base) CurrentState() State { return b.State }

func (b *Base) LastUpdate() time.Time { return b.UpdatedAt }

func (b *Base) FailureInfo() *Failure { return b.Failure }

// Init stamps a freshly registered entity.
func (b *Base) Init(id string, s State, at time.Time) {
	b.ID = id
	b.State = s
	b.CreatedAt = at
	b.UpdatedAt = at
}

func (b *Base) Transition(to State, at time.Time) {
	b.State = to
	b.UpdatedAt = at
}

func (b *Base) Fail(f Failure) {
	b.Failure = &f
}

// Entity is what the transition engine needs from a family record.
type Entity interface {
	EntityID() string
	ExternalRef() string
	CurrentState() State
	LastUpdate() time.Time
	FailureInfo() *Failure
	Transition(to State, at time.Time)
	Fail(f Failure)
	Machine() *Machine
	Project() Event
}

// Event is the minimal outbound projection of an entity after a transition.
type Event struct {
	ID          string       `json:"id"`
	Entity      string       `json:"entity"`
	Family      string       `json:"family,omitempty"`
	State       State        `json:"state"`
	ExternalID  string       `json:"externalId,omitempty"`
	ReferenceID string       `json:"referenceId,omitempty"`
	UserID      string       `json:"userId,omitempty"`
	WalletID    string       `json:"walletId,omitempty"`
	OperationID string       `json:"operationId,omitempty"`
	Amount      int64        `json:"amount,omitempty"`
	Counterpart *Counterpart `json:"counterpart,omitempty"`
	Failure     *Failure     `json:"failure,omitempty"`
	OccurredAt  time.Time    `json:"occurredAt"`
}

// Topic is the domain-event topic for the state the event reports.
func (e Event) Topic() string {
	if e.Entity == EntityNotification && e.Family != "" {
		return NotificationEventTopic(e.Family, e.State)
	}
	return EventTopic(e.Entity, e.State)
}

// Validate lets consumers of domain events decode them like any payload.
func (e Event) Validate() error {
	ve := errors.ValidationErrs()
	checkRequired(ve, "id", e.ID)
	return ve.Err()
}
