// Package generator produces synthetic users and debts for local demos.
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/debtledger/backend/internal/domain"
)

// Dataset contains the generated users and debts. Debts reference users by
// their index in Users since ids are assigned at registration.
type Dataset struct {
	Users []UserSeed `json:"users"`
	Debts []DebtSeed `json:"debts"`
}

// UserSeed is one user to register.
type UserSeed struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// DebtSeed is one debt to record. Counterparty is -1 for personal debts.
type DebtSeed struct {
	Creator          int                    `json:"creator"`
	Counterparty     int                    `json:"counterparty"`
	CounterpartyName string                 `json:"counterparty_name,omitempty"`
	Mode             domain.Mode            `json:"mode"`
	CreatorRole      domain.Role            `json:"creator_role"`
	Amount           decimal.Decimal        `json:"amount"`
	Currency         string                 `json:"currency"`
	Deadline         string                 `json:"deadline"`
	Description      string                 `json:"description,omitempty"`
	InstallmentType  domain.InstallmentType `json:"installment_type"`
	Witness          int                    `json:"witness"`
	Confirm          bool                   `json:"confirm"`
}

// Generator produces synthetic ledger data.
type Generator struct {
	cfg           Config
	rand          *rand.Rand
	nameFragments nameFragments
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.NumUsers < 2 {
		cfg.NumUsers = def.NumUsers
	}
	if cfg.NumDebts <= 0 {
		cfg.NumDebts = def.NumDebts
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &Generator{
		cfg:           cfg,
		rand:          rand.New(rand.NewSource(cfg.Seed)),
		nameFragments: defaultNameFragments(),
	}
}

// Generate synthesises users and debts with deadlines after today. It
// respects context cancellation.
func (g *Generator) Generate(ctx context.Context, today time.Time) (Dataset, error) {
	today = domain.DateOf(today)
	users := make([]UserSeed, g.cfg.NumUsers)
	for i := range users {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		first, last := g.randomName()
		users[i] = UserSeed{
			DisplayName: first + " " + last,
			Email:       g.randomEmail(first, last, i),
		}
	}

	debts := make([]DebtSeed, g.cfg.NumDebts)
	for i := range debts {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		creator := g.rand.Intn(len(users))
		d := DebtSeed{
			Creator:         creator,
			Counterparty:    -1,
			Witness:         -1,
			CreatorRole:     g.randomRole(),
			Amount:          g.randomAmount(),
			Currency:        g.randomCurrency(),
			Deadline:        today.AddDate(0, 1+g.rand.Intn(18), g.rand.Intn(28)).Format(domain.DateLayout),
			Description:     g.randomNote(),
			InstallmentType: g.randomInstallmentType(),
		}
		if g.rand.Float64() < g.cfg.PersonalChance {
			d.Mode = domain.ModePersonal
			first, _ := g.randomName()
			d.CounterpartyName = first
		} else {
			d.Mode = domain.ModeMutual
			d.Counterparty = g.otherThan(len(users), creator)
			d.Confirm = g.rand.Float64() < g.cfg.ConfirmChance
		}
		if g.rand.Float64() < g.cfg.WitnessChance && len(users) > 2 {
			d.Witness = g.otherThan(len(users), creator, d.Counterparty)
		}
		debts[i] = d
	}

	return Dataset{Users: users, Debts: debts}, nil
}

// otherThan draws an index in [0,n) outside exclude. n must exceed the
// number of distinct excluded indexes.
func (g *Generator) otherThan(n int, exclude ...int) int {
	for {
		idx := g.rand.Intn(n)
		taken := false
		for _, e := range exclude {
			if e == idx {
				taken = true
				break
			}
		}
		if !taken {
			return idx
		}
	}
}

func (g *Generator) randomName() (string, string) {
	return g.nameFragments.first[g.rand.Intn(len(g.nameFragments.first))],
		g.nameFragments.last[g.rand.Intn(len(g.nameFragments.last))]
}

func (g *Generator) randomEmail(first, last string, n int) string {
	domain := g.nameFragments.domains[g.rand.Intn(len(g.nameFragments.domains))]
	return fmt.Sprintf("%s.%s%d@%s", first, last, n, domain)
}

// randomAmount returns a whole-cent amount between 5.00 and 2500.00.
func (g *Generator) randomAmount() decimal.Decimal {
	cents := int64(500 + g.rand.Intn(249501))
	return decimal.New(cents, -2)
}

func (g *Generator) randomRole() domain.Role {
	if g.rand.Intn(2) == 0 {
		return domain.RoleLender
	}
	return domain.RoleBorrower
}

func (g *Generator) randomCurrency() string {
	currencies := []string{"USD", "USD", "USD", "EUR", "INR", "GBP"}
	return currencies[g.rand.Intn(len(currencies))]
}

func (g *Generator) randomInstallmentType() domain.InstallmentType {
	types := []domain.InstallmentType{
		domain.InstallmentLumpSum,
		domain.InstallmentMonthly,
		domain.InstallmentMonthly,
		domain.InstallmentBiWeekly,
		domain.InstallmentQuarterly,
		domain.InstallmentYearly,
		domain.InstallmentCustomSplit,
	}
	return types[g.rand.Intn(len(types))]
}

func (g *Generator) randomNote() string {
	notes := []string{"Concert tickets", "Rent share", "Dinner", "Car repair", "Laptop", "Trip deposit", ""}
	return notes[g.rand.Intn(len(notes))]
}

type nameFragments struct {
	first   []string
	last    []string
	domains []string
}

func defaultNameFragments() nameFragments {
	return nameFragments{
		first:   []string{"Jane", "John", "Alex", "Priya", "Liu", "Maria", "Omar", "Sofia", "Noah", "Emma", "Lucas", "Mia", "Ava", "Ethan", "Zara"},
		last:    []string{"Doe", "Smith", "Chen", "Patel", "Garcia", "Khan", "Kim", "Ivanov", "Nguyen", "Silva", "Brown", "Lee"},
		domains: []string{"example.com", "mail.com", "example.org"},
	}
}
