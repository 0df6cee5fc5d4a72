package log

import "financas/internal/core"

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldMonth       = "month"
	FieldCategory    = "category"
	FieldPlanID      = "plan_id"
	FieldInstallment = "installment"
	FieldSeverity    = "severity"
	FieldAlertType   = "alert_type"
	FieldCreated     = "created"
	FieldSkipped     = "skipped"
	FieldDrifted     = "drifted"
	FieldErrors      = "errors"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentExpander = "installment_expander"
	ComponentWorker   = "worker"
	ComponentReport   = "report"
)

// Operations defines standard operation names
const (
	OpExpand = "expand"
	OpNotify = "notify"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds the error message when err is non-nil
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithMonth(m core.Month) LogFields {
	f[FieldMonth] = m.String()
	return f
}

// WithPlan adds the installment plan id and the installment number being handled
func (f LogFields) WithPlan(planID int64, installment int) LogFields {
	f[FieldPlanID] = planID
	if installment > 0 {
		f[FieldInstallment] = installment
	}
	return f
}

func (f LogFields) WithAlert(a core.Alert) LogFields {
	f[FieldAlertType] = string(a.Type)
	f[FieldSeverity] = string(a.Severity)
	if a.Category != "" {
		f[FieldCategory] = a.Category
	}
	return f
}

// WithCounts adds batch outcome counters
func (f LogFields) WithCounts(created, skipped, drifted, errors int) LogFields {
	f[FieldCreated] = created
	f[FieldSkipped] = skipped
	f[FieldDrifted] = drifted
	f[FieldErrors] = errors
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
