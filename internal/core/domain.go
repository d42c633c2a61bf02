package core

import (
	"errors"
	"strings"
	"time"
)

// Owner scopes every expense and budget row to one user or anonymous
// browser session. It is matched by string equality only, never as a
// foreign key.
type Owner string

// DefaultOwner is the implicit owner used in single-user (personal) mode.
const DefaultOwner Owner = "default"

// DateLayout is the canonical storage format for expense dates. Month
// bucketing truncates the first 7 characters, so every stored date must
// use this layout.
const DateLayout = "2006-01-02"

// MonthLayout is the YYYY-MM key used for budgets and monthly totals.
const MonthLayout = "2006-01"

type (
	// Expense is the canonical expense record. Amount is always in base
	// currency regardless of the currency the user entered it in.
	Expense struct {
		ID        int64
		Date      string // YYYY-MM-DD
		Name      string
		Amount    float64
		Category  string
		DueDate   string // optional, may be empty
		Owner     Owner
		CreatedAt time.Time
	}

	// Budget is one spending limit per (month, owner), in base currency.
	Budget struct {
		Month  string // YYYY-MM
		Amount float64
		Owner  Owner
	}

	// BudgetStatus is the derived view of a month's budget against its
	// actual spend.
	BudgetStatus struct {
		Budget     float64 `json:"budget"`
		Spent      float64 `json:"spent"`
		Remaining  float64 `json:"remaining"`
		Percentage float64 `json:"percentage"`
		Month      string  `json:"month"`
	}

	// Report aggregates an owner's full expense history.
	Report struct {
		Total          float64
		CategoryTotals map[string]float64
		MonthlyTotals  map[string]float64
		Expenses       []Expense
	}

	// User is a login account. Only relevant in corporate mode.
	User struct {
		ID       int64
		Username string
		Role     string
	}
)

var (
	ErrNotFound       = errors.New("not found")
	ErrEmptyName      = errors.New("empty expense name")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidMonth   = errors.New("invalid month")
	ErrNegativeAmount = errors.New("negative amount")
	ErrUsernameTaken  = errors.New("username already taken")
)

// Validate checks the invariants the store relies on. The amount is
// assumed to be in base currency already.
func (e Expense) Validate() error {
	if _, err := time.Parse(DateLayout, e.Date); err != nil {
		return ErrInvalidDate
	}
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if e.Amount < 0 {
		return ErrNegativeAmount
	}
	if e.DueDate != "" {
		if _, err := time.Parse(DateLayout, e.DueDate); err != nil {
			return ErrInvalidDate
		}
	}
	return nil
}

// MonthOf derives the YYYY-MM bucket of a stored date.
func MonthOf(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// CurrentMonth returns the YYYY-MM key for the given clock time.
func CurrentMonth(now time.Time) string {
	return now.Format(MonthLayout)
}

// ValidMonth reports whether s is a well-formed YYYY-MM key.
func ValidMonth(s string) bool {
	_, err := time.Parse(MonthLayout, s)
	return err == nil
}
