package http

import (
	"net/http"

	"fingestor/internal/core"
	applog "fingestor/internal/log"
)

func transactionIDs(txs ...core.Transaction) []int64 {
	ids := make([]int64, len(txs))
	for i, t := range txs {
		ids[i] = t.ID
	}
	return ids
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q, err := ParseTransactionQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := s.svc.ListTransactions(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleCreateEntry records a settled income or expense.
func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var in core.EntryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Description = sanitizeInput(in.Description)

	t, err := s.svc.CreateEntry(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.recordWrite(r, applog.OpCreate, t.ID)
	writeJSON(w, http.StatusCreated, t)
}

// handleRegisterPurchase splits a card purchase into its installments.
func (s *Server) handleRegisterPurchase(w http.ResponseWriter, r *http.Request) {
	var in core.PurchaseInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Description = sanitizeInput(in.Description)

	txs, err := s.svc.RegisterPurchase(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.recordWrite(r, applog.OpCreate, transactionIDs(txs...)...)
	writeJSON(w, http.StatusCreated, txs)
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.svc.MarkPaid(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.recordWrite(r, applog.OpPay, t.ID)
	writeJSON(w, http.StatusOK, t)
}

// handleDeleteTransaction removes a transaction, or the rest of its
// installment group, and reports how many records went away.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.svc.DeleteTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.metrics.transactionsWritten(applog.OpDelete, n)
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (s *Server) handlePayableInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.svc.PayableInvoices(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

// handlePayInvoice settles a card's closed invoice from an account.
func (s *Server) handlePayInvoice(w http.ResponseWriter, r *http.Request) {
	var in core.PayInvoiceInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	payment, err := s.svc.PayInvoice(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.recordWrite(r, applog.OpPay, payment.ID)
	writeJSON(w, http.StatusCreated, payment)
}

func (s *Server) recordWrite(r *http.Request, operation string, ids ...int64) {
	s.metrics.transactionsWritten(operation, len(ids))
	s.requestLog.TransactionsWritten(r.Context(), operation, ids...)
}
