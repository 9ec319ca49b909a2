package http

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fingestor/internal/core"
	"fingestor/internal/flow"
	applog "fingestor/internal/log"
)

// operationTTL bounds how long an abandoned flow is kept.
const operationTTL = time.Hour

var errOperationNotFound = errors.New("operation not found")

type trackedOperation struct {
	op      *flow.Operation
	started time.Time
}

// operations holds the flows in progress, keyed by a random id.
type operations struct {
	mu    sync.Mutex
	items map[string]trackedOperation
	now   func() time.Time
}

func newOperations() *operations {
	return &operations{items: make(map[string]trackedOperation), now: time.Now}
}

func (o *operations) start() (string, *flow.Operation) {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	for id, t := range o.items {
		if now.Sub(t.started) > operationTTL {
			delete(o.items, id)
		}
	}

	id := uuid.NewString()
	op := flow.New()
	o.items[id] = trackedOperation{op: op, started: now}
	return id, op
}

func (o *operations) get(id string) (*flow.Operation, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	t, ok := o.items[id]
	return t.op, ok
}

// finish forgets a flow that reached Done.
func (o *operations) finish(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.items, id)
}

type operationView struct {
	ID string `json:"id"`
	flow.View
}

type startOperationRequest struct {
	Type    flow.Type     `json:"type"`
	Details *flow.Details `json:"details,omitempty"`
}

// handleStartOperation opens a flow of the given type, optionally
// configuring it in the same request.
func (s *Server) handleStartOperation(w http.ResponseWriter, r *http.Request) {
	var req startOperationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	id, op := s.ops.start()
	if err := op.Choose(req.Type); err != nil {
		s.ops.finish(id)
		writeError(w, r, err)
		return
	}
	if req.Details != nil {
		if err := op.Configure(*req.Details); err != nil {
			writeError(w, r, err)
			return
		}
	}

	applog.FromContext(r.Context()).WithComponent(applog.ComponentHTTP).DebugContext(r.Context(), "Operation started",
		applog.FieldOperation, applog.OpOperations, "operation_id", id, "type", req.Type)
	writeJSON(w, http.StatusCreated, operationView{ID: id, View: op.View()})
}

func (s *Server) operation(w http.ResponseWriter, r *http.Request) (string, *flow.Operation, bool) {
	id := chi.URLParam(r, "opID")
	op, ok := s.ops.get(id)
	if !ok {
		write(w, http.StatusNotFound, Response{Error: errOperationNotFound.Error()})
		return "", nil, false
	}
	return id, op, true
}

func (s *Server) handleGetOperation(w http.ResponseWriter, r *http.Request) {
	id, op, ok := s.operation(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, operationView{ID: id, View: op.View()})
}

// handleConfigureOperation replaces the details of the flow.
func (s *Server) handleConfigureOperation(w http.ResponseWriter, r *http.Request) {
	id, op, ok := s.operation(w, r)
	if !ok {
		return
	}
	var details flow.Details
	if err := decodeJSON(w, r, &details); err != nil {
		writeError(w, r, err)
		return
	}
	if err := op.Configure(details); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, operationView{ID: id, View: op.View()})
}

// handleSubmitOperation runs the configured operation. A failed submit
// leaves the flow open for corrections.
func (s *Server) handleSubmitOperation(w http.ResponseWriter, r *http.Request) {
	id, op, ok := s.operation(w, r)
	if !ok {
		return
	}
	result, err := op.Submit(r.Context(), s.svc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.ops.finish(id)

	switch v := result.(type) {
	case core.Transaction:
		s.recordWrite(r, applog.OpCreate, v.ID)
	case []core.Transaction:
		s.recordWrite(r, applog.OpCreate, transactionIDs(v...)...)
	}
	writeJSON(w, http.StatusOK, operationView{ID: id, View: op.View()})
}

func (s *Server) handleCancelOperation(w http.ResponseWriter, r *http.Request) {
	id, op, ok := s.operation(w, r)
	if !ok {
		return
	}
	if err := op.Cancel(); err != nil {
		writeError(w, r, err)
		return
	}
	s.ops.finish(id)
	writeJSON(w, http.StatusOK, operationView{ID: id, View: op.View()})
}
