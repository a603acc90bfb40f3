package graph

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/debtledger/backend/internal/domain"
)

// DebtProjector keeps one OWES relationship per active shared debt, drawn
// from the borrower to the lender. Amounts are stored as fixed-point strings.
type DebtProjector struct {
	client Client
}

// NewDebtProjector returns a projector writing through client.
func NewDebtProjector(client Client) *DebtProjector {
	return &DebtProjector{client: client}
}

const ensureSchemaCypher = `
CREATE CONSTRAINT user_id_unique IF NOT EXISTS
FOR (u:User) REQUIRE u.id IS UNIQUE
`

const upsertOwesCypher = `
MERGE (b:User {id: $borrowerId})
MERGE (l:User {id: $lenderId})
WITH b, l
OPTIONAL MATCH ()-[old:OWES {debtId: $debtId}]->()
DELETE old
WITH b, l
CREATE (b)-[o:OWES {debtId: $debtId}]->(l)
SET o.amount = $amount,
    o.remaining = $remaining,
    o.currency = $currency,
    o.status = $status,
    o.deadline = $deadline,
    o.updatedAt = $updatedAt
`

const removeOwesCypher = `
MATCH ()-[o:OWES {debtId: $debtId}]->()
DELETE o
`

const resetCypher = `
MATCH ()-[o:OWES]->()
DELETE o
`

const exposureCypher = `
MATCH (b:User)-[o:OWES]->(l:User)
WHERE b.id = $userId OR l.id = $userId
RETURN b.id AS borrowerId, l.id AS lenderId, o.currency AS currency, o.remaining AS remaining
`

// EnsureSchema creates the uniqueness constraint on user nodes.
func (p *DebtProjector) EnsureSchema(ctx context.Context) error {
	if _, err := p.client.ExecuteWrite(ctx, ensureSchemaCypher, nil); err != nil {
		return fmt.Errorf("ensure graph schema: %w", err)
	}
	return nil
}

// ProjectDebt writes the debt's edge, or removes it when the debt no longer
// represents an outstanding shared obligation.
func (p *DebtProjector) ProjectDebt(ctx context.Context, debt domain.Debt, remaining decimal.Decimal) error {
	if !projectable(debt, remaining) {
		return p.RemoveDebt(ctx, debt.ID)
	}
	params := map[string]any{
		"debtId":     debt.ID,
		"borrowerId": debt.BorrowerID,
		"lenderId":   debt.LenderID,
		"amount":     domain.FormatMoney(debt.Amount),
		"remaining":  domain.FormatMoney(remaining),
		"currency":   debt.Currency,
		"status":     string(debt.Status),
		"deadline":   debt.Deadline.Format(domain.DateLayout),
		"updatedAt":  debt.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if _, err := p.client.ExecuteWrite(ctx, upsertOwesCypher, params); err != nil {
		return fmt.Errorf("project debt %s: %w", debt.ID, err)
	}
	return nil
}

// RemoveDebt drops the debt's edge if it exists.
func (p *DebtProjector) RemoveDebt(ctx context.Context, debtID string) error {
	if _, err := p.client.ExecuteWrite(ctx, removeOwesCypher, map[string]any{"debtId": debtID}); err != nil {
		return fmt.Errorf("remove debt %s: %w", debtID, err)
	}
	return nil
}

// Reset removes every OWES edge. Used before a full rebuild.
func (p *DebtProjector) Reset(ctx context.Context) error {
	if _, err := p.client.ExecuteWrite(ctx, resetCypher, nil); err != nil {
		return fmt.Errorf("reset graph: %w", err)
	}
	return nil
}

// Exposure aggregates the user's edges. Sums are done here in decimal so
// the graph never does float arithmetic on money.
func (p *DebtProjector) Exposure(ctx context.Context, userID string) (domain.Exposure, error) {
	res, err := p.client.ExecuteRead(ctx, exposureCypher, map[string]any{"userId": userID})
	if err != nil {
		return domain.Exposure{}, fmt.Errorf("read exposure for %s: %w", userID, err)
	}

	type key struct{ user, currency string }
	currencies := map[string]*domain.CurrencyExposure{}
	parties := map[key]*domain.CounterpartyExposure{}

	for _, rec := range res.Records {
		borrower := toString(rec["borrowerId"])
		lender := toString(rec["lenderId"])
		currency := toString(rec["currency"])
		remaining, err := decimal.NewFromString(toString(rec["remaining"]))
		if err != nil {
			return domain.Exposure{}, fmt.Errorf("parse remaining on edge %s->%s: %w", borrower, lender, err)
		}

		cur, ok := currencies[currency]
		if !ok {
			cur = &domain.CurrencyExposure{Currency: currency}
			currencies[currency] = cur
		}
		other := lender
		if lender == userID {
			other = borrower
		}
		k := key{other, currency}
		party, ok := parties[k]
		if !ok {
			party = &domain.CounterpartyExposure{UserID: other, Currency: currency}
			parties[k] = party
		}

		if borrower == userID {
			cur.Owes = cur.Owes.Add(remaining)
			party.Owes = party.Owes.Add(remaining)
		} else {
			cur.Owed = cur.Owed.Add(remaining)
			party.Owed = party.Owed.Add(remaining)
		}
	}

	out := domain.Exposure{
		UserID:         userID,
		Currencies:     make([]domain.CurrencyExposure, 0, len(currencies)),
		Counterparties: make([]domain.CounterpartyExposure, 0, len(parties)),
	}
	for _, c := range currencies {
		c.Net = c.Owed.Sub(c.Owes)
		out.Currencies = append(out.Currencies, *c)
	}
	for _, c := range parties {
		c.Net = c.Owed.Sub(c.Owes)
		out.Counterparties = append(out.Counterparties, *c)
	}
	sort.Slice(out.Currencies, func(i, j int) bool {
		return out.Currencies[i].Currency < out.Currencies[j].Currency
	})
	sort.Slice(out.Counterparties, func(i, j int) bool {
		a, b := out.Counterparties[i], out.Counterparties[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		return a.Currency < b.Currency
	})
	return out, nil
}

func projectable(debt domain.Debt, remaining decimal.Decimal) bool {
	return debt.Mode == domain.ModeMutual &&
		debt.Status == domain.DebtActive &&
		debt.BorrowerID != "" &&
		remaining.Sign() > 0
}

func toString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
