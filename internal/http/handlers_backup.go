package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	applog "fingestor/internal/log"
)

// handleExport streams the backup document as a download. It is rendered
// into memory first so a failure can still be reported in the envelope.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.svc.Export(r.Context(), &buf); err != nil {
		writeError(w, r, err)
		return
	}

	filename := fmt.Sprintf("fingestor-backup-%s.json", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentBackup).WarnContext(r.Context(), "Backup download interrupted",
			applog.FieldError, err, applog.FieldOperation, applog.OpExport)
	}
}

// handleImport replaces every collection with the uploaded document.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBackupBytes)
	counts, err := s.svc.Import(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"restored": counts})
}
