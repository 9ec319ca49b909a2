package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fingestor/internal/amqp"
	"fingestor/internal/billing"
	"fingestor/internal/core"
	"fingestor/internal/storage"
)

// InvoicePaymentPrefix starts the description of every invoice payment.
const InvoicePaymentPrefix = "Pagamento Fatura "

// CardSummary is one card with its invoice windows and totals.
type CardSummary struct {
	Card             core.Card              `json:"card"`
	Windows          billing.Windows        `json:"windows"`
	Invoice          billing.InvoiceSummary `json:"invoice"`
	CommittedPercent float64                `json:"committed_percent"`
}

// PayableInvoice is a closed invoice waiting for payment.
type PayableInvoice struct {
	CardID         int64           `json:"card_id"`
	CardName       string          `json:"card_name"`
	Amount         decimal.Decimal `json:"amount"`
	DueDate        time.Time       `json:"due_date"`
	TransactionIDs []int64         `json:"transaction_ids"`
}

func cardTransactions(cardID int64, txs []core.Transaction) []core.Transaction {
	var out []core.Transaction
	for _, t := range txs {
		if t.CardID != nil && *t.CardID == cardID {
			out = append(out, t)
		}
	}
	return out
}

// SummarizeCard resolves the card's windows as of now and aggregates its
// transactions.
func SummarizeCard(card core.Card, txs []core.Transaction, now time.Time) CardSummary {
	w := billing.ResolveWindows(now, card.ClosingDay, card.DueDay)
	inv := billing.Aggregate(cardTransactions(card.ID, txs), w, card.Limit)
	return CardSummary{
		Card:             card,
		Windows:          w,
		Invoice:          inv,
		CommittedPercent: inv.CommittedPercent(),
	}
}

func (s *FinanceService) CardSummaries(ctx context.Context) ([]CardSummary, error) {
	cards, err := s.store.ListCards(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{})
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]CardSummary, len(cards))
	for i, c := range cards {
		out[i] = SummarizeCard(c, txs, now)
	}
	return out, nil
}

func (s *FinanceService) CardSummary(ctx context.Context, id int64) (CardSummary, error) {
	card, err := s.store.GetCard(ctx, id)
	if err != nil {
		return CardSummary{}, err
	}
	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{CardID: id})
	if err != nil {
		return CardSummary{}, err
	}
	return SummarizeCard(card, txs, s.now()), nil
}

// PayableInvoices lists the cards whose closed invoice still has pending
// transactions.
func (s *FinanceService) PayableInvoices(ctx context.Context) ([]PayableInvoice, error) {
	summaries, err := s.CardSummaries(ctx)
	if err != nil {
		return nil, err
	}

	out := []PayableInvoice{}
	for _, cs := range summaries {
		if !cs.Invoice.Payable() {
			continue
		}
		out = append(out, PayableInvoice{
			CardID:         cs.Card.ID,
			CardName:       cs.Card.Name,
			Amount:         cs.Invoice.ClosedTotal,
			DueDate:        cs.Windows.NextDue,
			TransactionIDs: cs.Invoice.ClosedTransactionIDs,
		})
	}
	return out, nil
}

// PayInvoice settles a card's closed invoice from a non-credit account.
// The payment record and the settled transactions are written together.
func (s *FinanceService) PayInvoice(ctx context.Context, in core.PayInvoiceInput) (core.Transaction, error) {
	if err := core.ValidateInput(in); err != nil {
		return core.Transaction{}, err
	}

	card, err := s.store.GetCard(ctx, in.CardID)
	if err != nil {
		return core.Transaction{}, missingReference("card_id", in.CardID, err)
	}
	account, err := s.store.GetAccount(ctx, in.AccountID)
	if err != nil {
		return core.Transaction{}, missingReference("account_id", in.AccountID, err)
	}
	if account.Kind == core.AccountCredit {
		return core.Transaction{}, core.NewValidationError("account_id",
			errors.New("a credit account cannot pay an invoice"))
	}

	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{CardID: card.ID, Status: core.StatusPending})
	if err != nil {
		return core.Transaction{}, err
	}
	inv := SummarizeCard(card, txs, s.now()).Invoice
	if !inv.Payable() {
		return core.Transaction{}, core.NewValidationError("card_id",
			fmt.Errorf("card %q has no closed invoice to pay", card.Name))
	}

	categoryID, accountID := core.InvoicePaymentCategoryID, account.ID
	payment := core.Transaction{
		Description: InvoicePaymentPrefix + card.Name,
		Kind:        core.KindExpense,
		Amount:      inv.ClosedTotal,
		Date:        in.PaidOn.Time,
		DueDate:     in.PaidOn.Time,
		Status:      core.StatusPaid,
		CategoryID:  &categoryID,
		AccountID:   &accountID,
	}

	saved, err := s.store.PayInvoice(ctx, payment, inv.ClosedTransactionIDs)
	if err != nil {
		return core.Transaction{}, err
	}

	s.publish(ctx, amqp.ActionUpsert, append([]int64{saved.ID}, inv.ClosedTransactionIDs...)...)
	return saved, nil
}
