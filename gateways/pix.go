package gateways

import (
	// Go Internal Packages
	"context"
	"net/url"
	"strconv"
	"time"

	// Local Packages
	errors "pix-stream/errors"
	models "pix-stream/models"
)

// Receipt statuses reported by the scheme gateway.
const (
	StatusPending  = "PENDING"
	StatusSettled  = "SETTLED"
	StatusRejected = "REJECTED"
)

type Receipt struct {
	EndToEndID string `json:"endToEndId"`
	Status     string `json:"status"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
}

func (r Receipt) Settled() bool { return r.Status == StatusSettled }

func (r Receipt) Rejected() bool { return r.Status == StatusRejected }

type PaymentOrder struct {
	ID          string             `json:"id"`
	Amount      int64              `json:"amount"`
	Beneficiary models.Counterpart `json:"beneficiary"`
	Description string             `json:"description,omitempty"`
}

type DevolutionOrder struct {
	ID                 string             `json:"id"`
	OriginalEndToEndID string             `json:"originalEndToEndId"`
	Amount             int64              `json:"amount"`
	Payer              models.Counterpart `json:"payer"`
	Reason             string             `json:"reason,omitempty"`
}

// Report is the body of an infraction, refund or fraud detection operation.
type Report struct {
	ID              string `json:"id"`
	ExternalID      string `json:"externalId,omitempty"`
	TransactionID   string `json:"transactionId,omitempty"`
	Reason          string `json:"reason,omitempty"`
	Document        string `json:"document,omitempty"`
	Key             string `json:"key,omitempty"`
	Amount          int64  `json:"amount,omitempty"`
	AnalysisResult  string `json:"analysisResult,omitempty"`
	AnalysisDetails string `json:"analysisDetails,omitempty"`
}

type StatementPage struct {
	Entries []models.CreditNotification `json:"entries"`
	Next    string                      `json:"next"`
}

// Pix is the payment scheme gateway.
type Pix struct {
	*Client
}

func NewPix(baseURL string, timeout time.Duration) *Pix {
	return &Pix{NewClient(baseURL, timeout)}
}

func (p *Pix) SendPayment(ctx context.Context, order PaymentOrder) (Receipt, error) {
	var r Receipt
	err := p.do(ctx, "POST", "/payments", order, &r)
	return r, err
}

func (p *Pix) GetPayment(ctx context.Context, endToEndID string) (Receipt, error) {
	var r Receipt
	err := p.do(ctx, "GET", "/payments/"+url.PathEscape(endToEndID), nil, &r)
	return r, err
}

func (p *Pix) SendDevolution(ctx context.Context, order DevolutionOrder) (Receipt, error) {
	var r Receipt
	err := p.do(ctx, "POST", "/devolutions", order, &r)
	return r, err
}

// Submit posts a report operation (open, acknowledge, close, cancel,
// register) for a resource (infractions, refunds, fraud-detections).
func (p *Pix) Submit(ctx context.Context, resource, op string, report Report) (Receipt, error) {
	var r Receipt
	err := p.do(ctx, "POST", "/"+resource+"/"+op, report, &r)
	return r, err
}

func (p *Pix) Statement(ctx context.Context, cursor string, limit int) (StatementPage, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	q.Set("limit", strconv.Itoa(limit))

	var page StatementPage
	err := p.do(ctx, "GET", "/statement?"+q.Encode(), nil, &page)
	return page, err
}

// Profile is the customer profile service.
type Profile struct {
	*Client
}

func NewProfile(baseURL string, timeout time.Duration) *Profile {
	return &Profile{NewClient(baseURL, timeout)}
}

// DeclaredIncome returns the monthly income the user declared, in cents.
// found is false when the user has not declared one.
func (p *Profile) DeclaredIncome(ctx context.Context, userID string) (income int64, found bool, err error) {
	var body struct {
		Income int64 `json:"income"`
	}
	err = p.do(ctx, "GET", "/users/"+url.PathEscape(userID)+"/income", nil, &body)
	if errors.Is(errors.NotFound, err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return body.Income, true, nil
}
