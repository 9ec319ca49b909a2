package http

import (
	"net/http"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := s.svc.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (s *Server) handleCashFlow(w http.ResponseWriter, r *http.Request) {
	listHandler(s.svc.CashFlow)(w, r)
}

func (s *Server) handleExpensesByCategory(w http.ResponseWriter, r *http.Request) {
	listHandler(s.svc.ExpensesByCategory)(w, r)
}

func (s *Server) handleDebts(w http.ResponseWriter, r *http.Request) {
	listHandler(s.svc.DebtProjection)(w, r)
}
