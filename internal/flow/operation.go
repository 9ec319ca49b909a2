// Package flow drives the multi-step "choose an operation, fill in its
// details, submit" interaction as an explicit state machine.
package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fingestor/internal/core"
)

// ErrInvalidTransition is returned for any transition the current state
// does not allow.
var ErrInvalidTransition = errors.New("invalid operation transition")

type State int

const (
	ChoosingOperationType State = iota
	ConfiguringDetails
	Submitting
	Done
)

func (s State) String() string {
	switch s {
	case ChoosingOperationType:
		return "choosing_operation_type"
	case ConfiguringDetails:
		return "configuring_details"
	case Submitting:
		return "submitting"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Type is the kind of operation being configured.
type Type string

const (
	TypeEntry          Type = "entry"
	TypeCardPurchase   Type = "card_purchase"
	TypeInvoicePayment Type = "invoice_payment"
)

func (t Type) Valid() bool {
	switch t {
	case TypeEntry, TypeCardPurchase, TypeInvoicePayment:
		return true
	}
	return false
}

// Details carries the input of the chosen operation type. Only the field
// matching the type is read.
type Details struct {
	Entry    *core.EntryInput      `json:"entry,omitempty"`
	Purchase *core.PurchaseInput   `json:"purchase,omitempty"`
	Payment  *core.PayInvoiceInput `json:"payment,omitempty"`
}

// Submitter executes a configured operation.
type Submitter interface {
	CreateEntry(ctx context.Context, in core.EntryInput) (core.Transaction, error)
	RegisterPurchase(ctx context.Context, in core.PurchaseInput) ([]core.Transaction, error)
	PayInvoice(ctx context.Context, in core.PayInvoiceInput) (core.Transaction, error)
}

// Operation is a single short-lived operation flow. It is safe for
// concurrent use; a second Submit while one is in flight is rejected.
type Operation struct {
	mu      sync.Mutex
	state   State
	typ     Type
	details Details
	result  any
	err     error
}

func New() *Operation {
	return &Operation{state: ChoosingOperationType}
}

// View is a point-in-time copy of an operation.
type View struct {
	State  State  `json:"state"`
	Type   Type   `json:"type,omitempty"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (o *Operation) View() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	v := View{State: o.state, Type: o.typ, Result: o.result}
	if o.err != nil {
		v.Error = o.err.Error()
	}
	return v
}

func (o *Operation) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Err is the error of the last failed Configure or Submit.
func (o *Operation) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

func (o *Operation) transitionError(action string) error {
	return fmt.Errorf("%s from %s: %w", action, o.state, ErrInvalidTransition)
}

// Choose picks the operation type.
func (o *Operation) Choose(t Type) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != ChoosingOperationType {
		return o.transitionError("choose")
	}
	if !t.Valid() {
		return core.NewValidationError("type", fmt.Errorf("unknown operation type %q", t))
	}
	o.typ = t
	o.state = ConfiguringDetails
	return nil
}

// Configure validates and stores the details for the chosen type. It may
// be called again to replace them.
func (o *Operation) Configure(d Details) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != ConfiguringDetails {
		return o.transitionError("configure")
	}
	if err := validateDetails(o.typ, d); err != nil {
		o.err = err
		return err
	}
	o.details = d
	o.err = nil
	return nil
}

func validateDetails(t Type, d Details) error {
	var in any
	switch t {
	case TypeEntry:
		if d.Entry != nil {
			in = *d.Entry
		}
	case TypeCardPurchase:
		if d.Purchase != nil {
			in = *d.Purchase
		}
	case TypeInvoicePayment:
		if d.Payment != nil {
			in = *d.Payment
		}
	}
	if in == nil {
		return core.NewValidationError(string(t), errors.New("details are required"))
	}
	return core.ValidateInput(in)
}

func (o *Operation) configured() bool {
	switch o.typ {
	case TypeEntry:
		return o.details.Entry != nil
	case TypeCardPurchase:
		return o.details.Purchase != nil
	case TypeInvoicePayment:
		return o.details.Payment != nil
	}
	return false
}

// Submit runs the configured operation. On success the flow is Done and
// the result is returned; on failure it goes back to ConfiguringDetails
// keeping the error.
func (o *Operation) Submit(ctx context.Context, s Submitter) (any, error) {
	o.mu.Lock()
	if o.state != ConfiguringDetails || !o.configured() {
		err := o.transitionError("submit")
		o.mu.Unlock()
		return nil, err
	}
	o.state = Submitting
	typ, details := o.typ, o.details
	o.mu.Unlock()

	result, err := submit(ctx, s, typ, details)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.err = err
		// A flow cancelled while submitting stays Done.
		if o.state == Submitting {
			o.state = ConfiguringDetails
		}
		return nil, err
	}
	o.err = nil
	o.result = result
	o.state = Done
	return result, nil
}

func submit(ctx context.Context, s Submitter, t Type, d Details) (any, error) {
	switch t {
	case TypeEntry:
		return s.CreateEntry(ctx, *d.Entry)
	case TypeCardPurchase:
		return s.RegisterPurchase(ctx, *d.Purchase)
	case TypeInvoicePayment:
		return s.PayInvoice(ctx, *d.Payment)
	default:
		return nil, fmt.Errorf("submit %q: %w", t, ErrInvalidTransition)
	}
}

// Cancel abandons the flow from any state but Done.
func (o *Operation) Cancel() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == Done {
		return o.transitionError("cancel")
	}
	o.state = Done
	return nil
}
