// Package http exposes the finance tracker as a JSON API.
//
// This file implements utilities for parsing and validating request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"fingestor/internal/core"
	"fingestor/internal/services"
)

// maxBodyBytes bounds JSON request bodies. Backups have their own limit.
const (
	maxBodyBytes   = 1 << 20
	maxBackupBytes = 32 << 20
)

// decodeJSON reads a single JSON object into dst, rejecting unknown fields
// and trailing data. Failures are ValidationErrors on the body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return core.NewValidationError("body", errors.New("request body is empty"))
		}
		return core.NewValidationError("body", fmt.Errorf("invalid JSON: %w", err))
	}
	if dec.More() {
		return core.NewValidationError("body", errors.New("request body must hold a single JSON object"))
	}
	return nil
}

// parseID reads a positive integer path parameter.
func parseID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError(name, fmt.Errorf("%q is not a valid id", raw))
	}
	return id, nil
}

// parseOptionalID reads a positive integer query parameter; absent means 0.
func parseOptionalID(query url.Values, name string) (int64, error) {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError(name, fmt.Errorf("%q is not a valid id", raw))
	}
	return id, nil
}

// ParseTransactionQuery reads the list filters and ordering:
// status, card_id, account_id, sort (description|amount|due_date|status)
// and order (asc|desc).
func ParseTransactionQuery(query url.Values) (services.TransactionQuery, error) {
	var q services.TransactionQuery

	if s := strings.TrimSpace(query.Get("status")); s != "" {
		q.Status = core.Status(strings.ToLower(s))
	}

	var err error
	if q.CardID, err = parseOptionalID(query, "card_id"); err != nil {
		return q, err
	}
	if q.AccountID, err = parseOptionalID(query, "account_id"); err != nil {
		return q, err
	}

	if s := strings.TrimSpace(query.Get("sort")); s != "" {
		q.SortBy = services.SortKey(strings.ToLower(s))
	}
	switch strings.ToLower(strings.TrimSpace(query.Get("order"))) {
	case "", "desc":
	case "asc":
		q.Ascending = true
	default:
		return q, core.NewValidationError("order", fmt.Errorf("%q is not asc or desc", query.Get("order")))
	}
	return q, nil
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
