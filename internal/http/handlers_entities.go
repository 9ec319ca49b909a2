package http

import (
	"context"
	"net/http"
)

// The CRUD endpoints of accounts, cards, categories and goals differ only
// in the service call, so they share these adapters.

func listHandler[T any](list func(context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := list(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		if items == nil {
			items = []T{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func getHandler[T any](get func(context.Context, int64) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		item, err := get(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func createHandler[In, Out any](create func(context.Context, In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		created, err := create(r.Context(), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func updateHandler[In, Out any](update func(context.Context, int64, In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var in In
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		updated, err := update(r.Context(), id, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func deleteHandler(del func(context.Context, int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := del(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"deleted": id})
	}
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	listHandler(s.svc.Accounts)(w, r)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	getHandler(s.svc.GetAccount)(w, r)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	createHandler(s.svc.CreateAccount)(w, r)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	updateHandler(s.svc.UpdateAccount)(w, r)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	deleteHandler(s.svc.DeleteAccount)(w, r)
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	listHandler(s.svc.ListCards)(w, r)
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	getHandler(s.svc.GetCard)(w, r)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	createHandler(s.svc.CreateCard)(w, r)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	updateHandler(s.svc.UpdateCard)(w, r)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	deleteHandler(s.svc.DeleteCard)(w, r)
}

func (s *Server) handleCardSummaries(w http.ResponseWriter, r *http.Request) {
	listHandler(s.svc.CardSummaries)(w, r)
}

func (s *Server) handleCardSummary(w http.ResponseWriter, r *http.Request) {
	getHandler(s.svc.CardSummary)(w, r)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	listHandler(s.svc.ListCategories)(w, r)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	getHandler(s.svc.GetCategory)(w, r)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	createHandler(s.svc.CreateCategory)(w, r)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	updateHandler(s.svc.UpdateCategory)(w, r)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	deleteHandler(s.svc.DeleteCategory)(w, r)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	listHandler(s.svc.ListGoals)(w, r)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	getHandler(s.svc.GetGoal)(w, r)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	createHandler(s.svc.CreateGoal)(w, r)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	updateHandler(s.svc.UpdateGoal)(w, r)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	deleteHandler(s.svc.DeleteGoal)(w, r)
}

// handleAddGoalProgress adds to a goal's current amount.
func (s *Server) handleAddGoalProgress(w http.ResponseWriter, r *http.Request) {
	updateHandler(s.svc.AddProgress)(w, r)
}
