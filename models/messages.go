package models

import (
	// Go Internal Packages
	"encoding/json"
	"regexp"
	"strings"
	"time"

	// Local Packages
	errors "pix-stream/errors"
)

var (
	ispbPattern   = regexp.MustCompile(`^\d{8}$`)
	branchPattern = regexp.MustCompile(`^\d{4}$`)
)

// Validator is implemented by every ingress payload.
type Validator interface {
	Validate() error
}

// Decode unmarshals and validates an ingress payload into a plain value.
func Decode[T Validator](value []byte) (T, error) {
	var v T
	if err := json.Unmarshal(value, &v); err != nil {
		return v, errors.InvalidBodyErr(err)
	}
	if err := v.Validate(); err != nil {
		return v, errors.ValidationFailedErr(err)
	}
	return v, nil
}

func checkCounterpart(ve *errors.ValidationErrors, field string, c Counterpart) {
	if strings.TrimSpace(c.Document) == "" {
		ve.Add(field+".document", "cannot be empty")
	}
	if !ispbPattern.MatchString(c.ISPB) {
		ve.Add(field+".ispb", "must have 8 digits")
	}
	if c.Branch != "" && !branchPattern.MatchString(c.Branch) {
		ve.Add(field+".branch", "must have 4 digits")
	}
}

func checkAmount(ve *errors.ValidationErrors, amount int64) {
	if amount <= 0 {
		ve.Add("amount", "must be a positive number of cents")
	}
}

func checkRequired(ve *errors.ValidationErrors, field, value string) {
	if strings.TrimSpace(value) == "" {
		ve.Add(field, "cannot be empty")
	}
}

// EntityCommand drives a transition of an already registered entity.
type EntityCommand struct {
	ID              string   `json:"id"`
	OperationID     string   `json:"operationId,omitempty"`
	AnalysisResult  string   `json:"analysisResult,omitempty"`
	AnalysisDetails string   `json:"analysisDetails,omitempty"`
	Failure         *Failure `json:"failure,omitempty"`
}

func (c EntityCommand) Validate() error {
	ve := errors.ValidationErrs()
	checkRequired(ve, "id", c.ID)
	return ve.Err()
}

type RegisterPayment struct {
	ID          string      `json:"id,omitempty"`
	UserID      string      `json:"userId"`
	WalletID    string      `json:"walletId"`
	OperationID string      `json:"operationId,omitempty"`
	Amount      int64       `json:"amount"`
	Beneficiary Counterpart `json:"beneficiary"`
	PaymentDate *time.Time  `json:"paymentDate,omitempty"`
	Description string      `json:"description,omitempty"`
}

func (r RegisterPayment) Validate() error {
	ve := errors.ValidationErrs()
	checkRequired(ve, "userId", r.UserID)
	checkRequired(ve, "walletId", r.WalletID)
	checkAmount(ve, r.Amount)
	checkCounterpart(ve, "beneficiary", r.Beneficiary)
	return ve.Err()
}

type CreateDevolution struct {
	ID          string `json:"id,omitempty"`
	DepositID   string `json:"depositId"`
	OperationID string `json:"operationId,omitempty"`
	Amount      int64  `json:"amount"`
	Description string `json:"description,omitempty"`
}

func (c CreateDevolution) Validate() error {
	ve := errors.ValidationErrs()
	checkRequired(ve, "depositId", c.DepositID)
	checkAmount(ve, c.Amount)
	return ve.Err()
}

// CreateInfraction opens an infraction locally (starts at OPEN_PENDING).
type CreateInfraction struct {
	ID            string `json:"id,omitempty"`
	TransactionID string `json:"transactionId"`
	OperationID   string `json:"operationId,omitempty"`
	Reason        string `json:"reason"`
	Description   string `json:"description,omitempty"`
}

func (c CreateInfraction) Validate() error {
	ve := errors.ValidationErrs()
	checkRequired(ve, "transactionId", c.TransactionID)
	checkRequired(ve, "reason", c.Reason)
	return ve.Err()
}

// ReceiveInfraction registers an infraction raised by the counterparty.
type ReceiveInfraction struct {
	ExternalID    string `json:"externalId"`
	TransactionID string `json:"transactionId"`
	Reason        string `json:"reason"`
	Description   string `json:"description,omitempty"`
}

func (r ReceiveInfraction) Validate() error {
	ve := errors.ValidationErrs()
	checkRequired(ve, "externalId", r.ExternalID)
	checkRequired(ve, "transactionId", r.TransactionID)
	checkRequired(ve, "reason", r.Reason)
	return ve.Err()
}

type ReceiveRefund struct {
	ExternalID    string `json:"externalId"`
	InfractionID  string `json:"infractionId,omitempty"`
	TransactionID string `json:"transactionId"`
	OperationID   string `json:"operationId,omitempty"`
	Amount        int64  `json:"amount"`
	Reason        string `json:"reason"`
}

func (r ReceiveRefund) Validate() error {
	ve := errors.ValidationErrs()
	checkRequired(ve, "externalId", r.ExternalID)
	checkRequired(ve, "transactionId", r.TransactionID)
	checkRequired(ve, "reason", r.Reason)
	checkAmount(ve, r.Amount)
	return ve.Err()
}

type RegisterFraudDetection struct {
	ID        string `json:"id,omitempty"`
	Document  string `json:"document"`
	FraudType string `json:"fraudType"`
	Key       string `json:"key,omitempty"`
}

func (r RegisterFraudDetection) Validate() error {
	ve := errors.ValidationErrs()
	checkRequired(ve, "document", r.Document)
	checkRequired(ve, "fraudType", r.FraudType)
	return ve.Err()
}

// ClaimNotification reports a change on a key portability/ownership claim.
type ClaimNotification struct {
	ClaimID string `json:"claimId"`
	Key     string `json:"key"`
	KeyType string `json:"keyType"`
	Status  string `json:"status"`
	ISPB    string `json:"ispb"`
}

func (n ClaimNotification) Validate() error {
	ve := errors.ValidationErrs()
	checkRequired(ve, "claimId", n.ClaimID)
	checkRequired(ve, "status", n.Status)
	if !ispbPattern.MatchString(n.ISPB) {
		ve.Add("ispb", "must have 8 digits")
	}
	return ve.Err()
}

type CreditNotification struct {
	ExternalID  string      `json:"externalId"`
	UserID      string      `json:"userId,omitempty"`
	WalletID    string      `json:"walletId,omitempty"`
	Amount      int64       `json:"amount"`
	Payer       Counterpart `json:"payer"`
	Beneficiary Counterpart `json:"beneficiary"`
	CreatedAt   time.Time   `json:"createdAt"`
}

func (n CreditNotification) Validate() error {
	ve := errors.ValidationErrs()
	checkRequired(ve, "externalId", n.ExternalID)
	checkAmount(ve, n.Amount)
	checkCounterpart(ve, "payer", n.Payer)
	checkCounterpart(ve, "beneficiary", n.Beneficiary)
	return ve.Err()
}

// DebitNotification confirms a sent payment; CompletionNotification confirms
// a sent devolution. Both correlate by the end-to-end id.
type DebitNotification struct {
	ExternalID string `json:"externalId"`
	Amount     int64  `json:"amount"`
}

func (n DebitNotification) Validate() error {
	ve := errors.ValidationErrs()
	checkRequired(ve, "externalId", n.ExternalID)
	checkAmount(ve, n.Amount)
	return ve.Err()
}

type CompletionNotification struct {
	ExternalID string `json:"externalId"`
}

func (n CompletionNotification) Validate() error {
	ve := errors.ValidationErrs()
	checkRequired(ve, "externalId", n.ExternalID)
	return ve.Err()
}

type RegisterBankingTransfer struct {
	ExternalID    string      `json:"externalId"`
	TransactionID string      `json:"transactionId"`
	OperationID   string      `json:"operationId,omitempty"`
	Amount        int64       `json:"amount"`
	Payer         Counterpart `json:"payer"`
	Beneficiary   Counterpart `json:"beneficiary"`
}

func (r RegisterBankingTransfer) Validate() error {
	ve := errors.ValidationErrs()
	checkRequired(ve, "externalId", r.ExternalID)
	checkRequired(ve, "transactionId", r.TransactionID)
	checkAmount(ve, r.Amount)
	checkCounterpart(ve, "payer", r.Payer)
	checkCounterpart(ve, "beneficiary", r.Beneficiary)
	return ve.Err()
}

type ConfirmBankingTransfer struct {
	ExternalID string `json:"externalId"`
}

func (c ConfirmBankingTransfer) Validate() error {
	ve := errors.ValidationErrs()
	checkRequired(ve, "externalId", c.ExternalID)
	return ve.Err()
}
