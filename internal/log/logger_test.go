package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewHandler(t *testing.T) {
	for _, format := range []string{"", FormatText, FormatJSON, FormatPretty} {
		if _, err := NewHandler(format, slog.LevelInfo, &bytes.Buffer{}); err != nil {
			t.Errorf("NewHandler(%q): %v", format, err)
		}
	}
	if _, err := NewHandler("xml", slog.LevelInfo, &bytes.Buffer{}); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestLogger_JSONComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: FormatJSON, Output: &buf}).WithComponent(ComponentStorage)

	logger.InfoContext(context.Background(), "Transactions written", FieldCount, 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry[FieldComponent] != ComponentStorage {
		t.Errorf("component = %v, want %s", entry[FieldComponent], ComponentStorage)
	}
	if entry[FieldCount] != float64(3) {
		t.Errorf("count = %v, want 3", entry[FieldCount])
	}
}

func TestLogger_UnknownFormatFallsBackToText(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "xml", Output: &buf})
	logger.InfoContext(context.Background(), "hello")

	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithTransactions(4, 5).
		WithError(errors.New("boom")).
		WithError(nil).
		WithErrorType(ErrorTypeDatabase).
		WithOperation(OpPay)

	if f[FieldCount] != 2 {
		t.Errorf("count = %v", f[FieldCount])
	}
	if f[FieldError] != "boom" || f[FieldErrorType] != ErrorTypeDatabase {
		t.Errorf("error fields = %v / %v", f[FieldError], f[FieldErrorType])
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Errorf("ToSlice length mismatch")
	}

	if single := NewFields().WithTransactions(9); single[FieldTransactionID] != int64(9) {
		t.Errorf("single id = %v", single[FieldTransactionID])
	}
	if none := NewFields().WithTransactions(); none[FieldTransactionID] != nil || none[FieldCount] != 0 {
		t.Errorf("no ids = %v", none)
	}
}

func TestLogFields_WithRequest(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		route    string
		agent    string
		wantKeys []string
		skipKeys []string
	}{
		{
			name:     "everything",
			target:   "/api/v1/transactions?status=pending",
			route:    "/api/v1/transactions/",
			agent:    "curl/8.0",
			wantKeys: []string{FieldMethod, FieldPath, FieldRoute, FieldQuery, FieldUserAgent},
		},
		{
			name:     "bare request",
			target:   "/nowhere",
			wantKeys: []string{FieldMethod, FieldPath},
			skipKeys: []string{FieldRoute, FieldQuery, FieldUserAgent},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			r.Header.Set("User-Agent", tt.agent)
			f := NewFields().WithRequest(r, tt.route).WithStatus(204, 1500*time.Microsecond)

			for _, key := range tt.wantKeys {
				if _, ok := f[key]; !ok {
					t.Errorf("missing %s in %v", key, f)
				}
			}
			for _, key := range tt.skipKeys {
				if _, ok := f[key]; ok {
					t.Errorf("unexpected %s in %v", key, f)
				}
			}
			if f[FieldDuration] != int64(1) || f[FieldStatusCode] != 204 {
				t.Errorf("status fields = %v / %v", f[FieldStatusCode], f[FieldDuration])
			}
		})
	}
}

func TestRequestLogger_PrefersScopedLogger(t *testing.T) {
	var fallback, scoped bytes.Buffer
	rl := NewRequestLogger(New(Config{Format: FormatJSON, Output: &fallback}))
	ctx := NewContext(context.Background(), New(Config{Format: FormatJSON, Output: &scoped}))

	r := httptest.NewRequest("GET", "/api/v1/dashboard", nil)
	rl.Finished(ctx, r, "/api/v1/dashboard", 200, 3*time.Millisecond, "127.0.0.1")

	if scoped.Len() == 0 || fallback.Len() != 0 {
		t.Errorf("expected the request-scoped logger to be used (scoped=%q fallback=%q)", scoped.String(), fallback.String())
	}

	rl.TransactionsWritten(context.Background(), OpDelete, 3, 4)
	out := fallback.String()
	if !strings.Contains(out, `"component":"storage"`) || !strings.Contains(out, `"count":2`) {
		t.Errorf("expected fallback logger output, got %q", out)
	}
}

func TestRequestLogger_Levels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{404, "WARN"},
		{503, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		rl := NewRequestLogger(New(Config{Format: FormatJSON, Output: &buf}))
		rl.Finished(context.Background(), httptest.NewRequest("GET", "/", nil), "", tt.status, 0, "")
		if !strings.Contains(buf.String(), `"level":"`+tt.level+`"`) {
			t.Errorf("status %d logged %q, want level %s", tt.status, buf.String(), tt.level)
		}
	}
}
