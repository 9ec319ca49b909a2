package log

import (
	"net/http"
	"time"
)

// Attribute keys shared by every component.
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldRoute         = "route"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldOperation     = "operation"
	FieldTransactionID = "transaction_id"
	FieldCount         = "count"
)

const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentBackup    = "backup"
)

const (
	OpCreate     = "create"
	OpDelete     = "delete"
	OpPay        = "pay"
	OpExport     = "export"
	OpImport     = "import"
	OpReconcile  = "reconcile"
	OpOperations = "operation_flow"
	OpStartup    = "startup"
	OpShutdown   = "shutdown"
)

// Error kinds, one per class of failure the API reports.
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeMalformed     = "malformed_import_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields collects attributes before handing them to slog.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError records err's message; nil is ignored.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(kind string) LogFields {
	f[FieldErrorType] = kind
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTransactions records the ids touched by a write, a bare id when
// there is only one.
func (f LogFields) WithTransactions(ids ...int64) LogFields {
	if len(ids) == 1 {
		f[FieldTransactionID] = ids[0]
	} else if len(ids) > 1 {
		f[FieldTransactionID] = ids
	}
	f[FieldCount] = len(ids)
	return f
}

// WithRequest records where a request went. route is the matched pattern
// and is skipped when empty, like the query and user agent.
func (f LogFields) WithRequest(r *http.Request, route string) LogFields {
	f[FieldMethod] = r.Method
	f[FieldPath] = r.URL.Path
	optional := map[string]string{
		FieldRoute:     route,
		FieldQuery:     r.URL.RawQuery,
		FieldUserAgent: r.UserAgent(),
	}
	for key, v := range optional {
		if v != "" {
			f[key] = v
		}
	}
	return f
}

func (f LogFields) WithStatus(code int, elapsed time.Duration) LogFields {
	f[FieldStatusCode] = code
	f[FieldDuration] = elapsed.Milliseconds()
	return f
}

// ToSlice flattens the fields into slog's alternating key/value form.
func (f LogFields) ToSlice() []any {
	out := make([]any, 0, 2*len(f))
	for k, v := range f {
		out = append(out, k, v)
	}
	return out
}
