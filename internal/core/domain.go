package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// InvoicePaymentCategoryID marks transactions that settle a card invoice.
// It never exists as a stored category and is left out of expense totals.
const InvoicePaymentCategoryID int64 = -1

const (
	AccountChecking   AccountKind = "checking"
	AccountSavings    AccountKind = "savings"
	AccountInvestment AccountKind = "investment"
	AccountCash       AccountKind = "cash"
	AccountDebt       AccountKind = "debt"
	AccountCredit     AccountKind = "credit"

	KindIncome  Kind = "income"
	KindExpense Kind = "expense"

	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

type (
	AccountKind string
	Kind        string
	Status      string

	Account struct {
		ID             int64           `json:"id"`
		Name           string          `json:"name"`
		Kind           AccountKind     `json:"kind"`
		OpeningBalance decimal.Decimal `json:"opening_balance"`
	}

	Card struct {
		ID         int64           `json:"id"`
		Name       string          `json:"name"`
		Limit      decimal.Decimal `json:"limit"`
		ClosingDay int             `json:"closing_day"`
		DueDay     int             `json:"due_day"`
	}

	Category struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Kind Kind   `json:"kind"`
		Icon string `json:"icon,omitempty"`
	}

	// Installment positions a transaction inside its installment group.
	Installment struct {
		Index int `json:"index"`
		Count int `json:"count"`
	}

	Transaction struct {
		ID          int64           `json:"id"`
		Description string          `json:"description"`
		Kind        Kind            `json:"kind"`
		Amount      decimal.Decimal `json:"amount"`
		Date        time.Time       `json:"date"`
		DueDate     time.Time       `json:"due_date"`
		Status      Status          `json:"status"`
		CategoryID  *int64          `json:"category_id,omitempty"`
		AccountID   *int64          `json:"account_id,omitempty"`
		CardID      *int64          `json:"card_id,omitempty"`
		GroupID     string          `json:"group_id,omitempty"`
		Installment *Installment    `json:"installment,omitempty"`
	}

	Goal struct {
		ID          int64           `json:"id"`
		Description string          `json:"description"`
		Target      decimal.Decimal `json:"target"`
		Current     decimal.Decimal `json:"current"`
		TargetDate  time.Time       `json:"target_date"`
	}
)

var (
	ErrInvalidDay         = errors.New("day must be between 1 and 31")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidCount       = errors.New("installment count must be at least 1")
	ErrEmptyName          = errors.New("name cannot be empty")
	ErrEmptyDescription   = errors.New("description cannot be empty")
	ErrInvalidKind        = errors.New("invalid kind")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidAccountKind = errors.New("invalid account kind")
	ErrZeroDate           = errors.New("date cannot be zero")
)

var installmentSuffixPattern = regexp.MustCompile(`\s\(\d+/\d+\)$`)

func (k Kind) Valid() bool { return k == KindIncome || k == KindExpense }

func (s Status) Valid() bool { return s == StatusPending || s == StatusPaid }

func (k AccountKind) Valid() bool {
	switch k {
	case AccountChecking, AccountSavings, AccountInvestment, AccountCash, AccountDebt, AccountCredit:
		return true
	}
	return false
}

// Suffix renders the " (i/N)" marker appended to installment descriptions.
func (i Installment) Suffix() string {
	return fmt.Sprintf(" (%d/%d)", i.Index, i.Count)
}

// BaseDescription returns the description without its installment marker.
// Records that carry an explicit installment only lose their own exact
// suffix; legacy records fall back to stripping any trailing "(n/m)".
func (t Transaction) BaseDescription() string {
	if t.Installment != nil {
		return strings.TrimSuffix(t.Description, t.Installment.Suffix())
	}
	return installmentSuffixPattern.ReplaceAllString(t.Description, "")
}

// IsInvoicePayment reports whether t settles a card invoice.
func (t Transaction) IsInvoicePayment() bool {
	return t.CategoryID != nil && *t.CategoryID == InvoicePaymentCategoryID
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return NewValidationError("name", ErrEmptyName)
	}
	if !a.Kind.Valid() {
		return NewValidationError("kind", ErrInvalidAccountKind)
	}
	return nil
}

func (c Card) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("name", ErrEmptyName)
	}
	if c.Limit.IsNegative() {
		return NewValidationError("limit", ErrInvalidAmount)
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return NewValidationError("closing_day", ErrInvalidDay)
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return NewValidationError("due_day", ErrInvalidDay)
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("name", ErrEmptyName)
	}
	if !c.Kind.Valid() {
		return NewValidationError("kind", ErrInvalidKind)
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return NewValidationError("description", ErrEmptyDescription)
	}
	if utf8.RuneCountInString(t.Description) > 200 {
		return NewValidationError("description", errors.New("description too long (max 200 characters)"))
	}
	if !t.Kind.Valid() {
		return NewValidationError("kind", ErrInvalidKind)
	}
	if !t.Amount.IsPositive() {
		return NewValidationError("amount", ErrInvalidAmount)
	}
	if !t.Status.Valid() {
		return NewValidationError("status", ErrInvalidStatus)
	}
	if t.Date.IsZero() {
		return NewValidationError("date", ErrZeroDate)
	}
	if t.DueDate.IsZero() {
		return NewValidationError("due_date", ErrZeroDate)
	}
	if t.Installment != nil && (t.Installment.Count < 1 || t.Installment.Index < 1 || t.Installment.Index > t.Installment.Count) {
		return NewValidationError("installment", ErrInvalidCount)
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Description) == "" {
		return NewValidationError("description", ErrEmptyDescription)
	}
	if !g.Target.IsPositive() {
		return NewValidationError("target", ErrInvalidAmount)
	}
	if g.Current.IsNegative() {
		return NewValidationError("current", ErrInvalidAmount)
	}
	if g.TargetDate.IsZero() {
		return NewValidationError("target_date", ErrZeroDate)
	}
	return nil
}
