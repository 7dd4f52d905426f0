package warning

import (
	// Go Internal Packages
	"context"
	"fmt"
	"strings"
	"time"

	// Local Packages
	models "pix-stream/models"

	// External Packages
	"github.com/shopspring/decimal"
)

// Evaluator is one screening rule. Evaluate reports whether the deposit
// must be held for review.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, d *models.Deposit) (bool, error)
}

const (
	RuleDuplicate       = "duplicate"
	RuleIncomeRatio     = "income_ratio"
	RuleFixedIdentifier = "fixed_identifier"
	RuleBlockList       = "block_list"
)

type HistoryCache interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Search(ctx context.Context, pattern string) ([]string, error)
}

// Duplicate holds a deposit when the same payer sent the same amount within
// window before it. Deposits enter the history when they are received, so
// the outcome does not depend on the order deposits are screened in.
type Duplicate struct {
	cache  HistoryCache
	window time.Duration
}

func NewDuplicate(cache HistoryCache, window time.Duration) *Duplicate {
	return &Duplicate{cache: cache, window: window}
}

func (e *Duplicate) Name() string { return RuleDuplicate }

func historyPrefix(d *models.Deposit) string {
	return fmt.Sprintf("deposit:history:%s:%d:", d.Payer.Document, d.Amount)
}

// Record adds d to the history. Entries outlive the window so a deposit
// screened late still sees the ones received just before it.
func (e *Duplicate) Record(ctx context.Context, d *models.Deposit) error {
	value := strings.Join([]string{d.ID, d.ExternalID, d.CreatedAt.UTC().Format(time.RFC3339Nano)}, "|")
	return e.cache.Set(ctx, historyPrefix(d)+d.ID, value, 2*e.window)
}

func (e *Duplicate) Evaluate(ctx context.Context, d *models.Deposit) (bool, error) {
	entries, err := e.cache.Search(ctx, historyPrefix(d)+"*")
	if err != nil {
		return false, err
	}

	for _, entry := range entries {
		h, ok := parseHistory(entry)
		// an entry sharing the end-to-end id is this credit, recorded by a
		// receive that lost the insert race
		if !ok || h.id == d.ID || (h.externalID != "" && h.externalID == d.ExternalID) {
			continue
		}
		earlier := h.at.Before(d.CreatedAt) || (h.at.Equal(d.CreatedAt) && h.id < d.ID)
		if earlier && d.CreatedAt.Sub(h.at) <= e.window {
			return true, nil
		}
	}
	return false, nil
}

type historyEntry struct {
	id         string
	externalID string
	at         time.Time
}

func parseHistory(entry string) (historyEntry, bool) {
	parts := strings.SplitN(entry, "|", 3)
	if len(parts) != 3 {
		return historyEntry{}, false
	}
	at, err := time.Parse(time.RFC3339Nano, parts[2])
	if err != nil {
		return historyEntry{}, false
	}
	return historyEntry{id: parts[0], externalID: parts[1], at: at}, true
}

type ProfileGateway interface {
	DeclaredIncome(ctx context.Context, userID string) (int64, bool, error)
}

// IncomeRatio holds a deposit larger than ratio times the beneficiary's
// declared monthly income.
type IncomeRatio struct {
	profiles ProfileGateway
	ratio    decimal.Decimal
}

func NewIncomeRatio(profiles ProfileGateway, ratio string) (*IncomeRatio, error) {
	r, err := decimal.NewFromString(ratio)
	if err != nil {
		return nil, fmt.Errorf("invalid income ratio %q: %w", ratio, err)
	}
	return &IncomeRatio{profiles: profiles, ratio: r}, nil
}

func (e *IncomeRatio) Name() string { return RuleIncomeRatio }

func (e *IncomeRatio) Evaluate(ctx context.Context, d *models.Deposit) (bool, error) {
	if d.UserID == "" {
		return false, nil
	}
	income, found, err := e.profiles.DeclaredIncome(ctx, d.UserID)
	if err != nil || !found {
		return false, err
	}
	limit := decimal.NewFromInt(income).Mul(e.ratio)
	return decimal.NewFromInt(d.Amount).GreaterThan(limit), nil
}

// FixedIdentifier holds deposits from configured payer documents or
// institutions.
type FixedIdentifier struct {
	documents map[string]struct{}
	ispbs     map[string]struct{}
}

func NewFixedIdentifier(documents, ispbs []string) *FixedIdentifier {
	e := &FixedIdentifier{documents: map[string]struct{}{}, ispbs: map[string]struct{}{}}
	for _, d := range documents {
		e.documents[d] = struct{}{}
	}
	for _, i := range ispbs {
		e.ispbs[i] = struct{}{}
	}
	return e
}

func (e *FixedIdentifier) Name() string { return RuleFixedIdentifier }

func (e *FixedIdentifier) Evaluate(_ context.Context, d *models.Deposit) (bool, error) {
	_, doc := e.documents[d.Payer.Document]
	_, ispb := e.ispbs[d.Payer.ISPB]
	return doc || ispb, nil
}

type BlockListReader interface {
	Contains(ctx context.Context, document string) (bool, error)
}

// BlockList holds deposits from payers with a registered fraud marker.
type BlockList struct {
	list BlockListReader
}

func NewBlockList(list BlockListReader) *BlockList {
	return &BlockList{list: list}
}

func (e *BlockList) Name() string { return RuleBlockList }

func (e *BlockList) Evaluate(ctx context.Context, d *models.Deposit) (bool, error) {
	return e.list.Contains(ctx, d.Payer.Document)
}
