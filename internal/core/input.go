package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format accepted and produced by inputs.
const DateLayout = "2006-01-02"

// Date is a calendar day read from user input, at midnight local time.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month, day in the local zone.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.Local)}
}

// ParseDate parses "2006-01-02" or an RFC 3339 timestamp. Timestamps are
// moved to the local zone so their calendar day matches the stored one.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(DateLayout, s, time.Local); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t.In(time.Local)}, nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type (
	AccountInput struct {
		Name           string          `json:"name" validate:"required,max=100"`
		Kind           AccountKind     `json:"kind" validate:"required,oneof=checking savings investment cash debt credit"`
		OpeningBalance decimal.Decimal `json:"opening_balance"`
	}

	CardInput struct {
		Name       string          `json:"name" validate:"required,max=100"`
		Limit      decimal.Decimal `json:"limit" validate:"gte=0"`
		ClosingDay int             `json:"closing_day" validate:"required,min=1,max=31"`
		DueDay     int             `json:"due_day" validate:"required,min=1,max=31"`
	}

	CategoryInput struct {
		Name string `json:"name" validate:"required,max=100"`
		Kind Kind   `json:"kind" validate:"required,oneof=income expense"`
		Icon string `json:"icon" validate:"max=50"`
	}

	GoalInput struct {
		Description string          `json:"description" validate:"required,max=200"`
		Target      decimal.Decimal `json:"target" validate:"gt=0"`
		TargetDate  Date            `json:"target_date" validate:"required"`
	}

	ProgressInput struct {
		Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	}

	// EntryInput registers an already settled income or expense.
	EntryInput struct {
		Kind        Kind            `json:"kind" validate:"required,oneof=income expense"`
		Description string          `json:"description" validate:"required,max=200"`
		Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
		Date        Date            `json:"date" validate:"required"`
		CategoryID  int64           `json:"category_id" validate:"required,gt=0"`
		AccountID   int64           `json:"account_id" validate:"required,gt=0"`
	}

	// PurchaseInput registers a card purchase split in installments.
	PurchaseInput struct {
		Description  string          `json:"description" validate:"required,max=180"`
		Total        decimal.Decimal `json:"total" validate:"gt=0"`
		Installments int             `json:"installments" validate:"required,min=1,max=360"`
		Date         Date            `json:"date" validate:"required"`
		CategoryID   int64           `json:"category_id" validate:"required,gt=0"`
		CardID       int64           `json:"card_id" validate:"required,gt=0"`
	}

	PayInvoiceInput struct {
		CardID    int64 `json:"card_id" validate:"required,gt=0"`
		AccountID int64 `json:"account_id" validate:"required,gt=0"`
		PaidOn    Date  `json:"paid_on" validate:"required"`
	}
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(Date); ok {
			return d.Time
		}
		return nil
	}, Date{})
	return v
}

// ValidateInput checks the struct tags of an input and reports the first
// failing field as a ValidationError.
func ValidateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return NewValidationError(fe.Field(), errors.New(describeTag(fe)))
	}
	return NewValidationError("", err)
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed on " + fe.Tag()
	}
}

func (in AccountInput) Account(id int64) Account {
	return Account{ID: id, Name: strings.TrimSpace(in.Name), Kind: in.Kind, OpeningBalance: RoundMoney(in.OpeningBalance)}
}

func (in CardInput) Card(id int64) Card {
	return Card{ID: id, Name: strings.TrimSpace(in.Name), Limit: RoundMoney(in.Limit), ClosingDay: in.ClosingDay, DueDay: in.DueDay}
}

func (in CategoryInput) Category(id int64) Category {
	return Category{ID: id, Name: strings.TrimSpace(in.Name), Kind: in.Kind, Icon: strings.TrimSpace(in.Icon)}
}

// Goal builds the goal record; current progress is carried over from the
// stored goal on updates.
func (in GoalInput) Goal(id int64, current decimal.Decimal) Goal {
	return Goal{
		ID:          id,
		Description: strings.TrimSpace(in.Description),
		Target:      RoundMoney(in.Target),
		Current:     current,
		TargetDate:  in.TargetDate.Time,
	}
}
