package observability

import (
	"context"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// AuditInput describes one security-relevant action for the audit log.
type AuditInput struct {
	EventName  string
	MerchantID string
	TargetType string
	TargetID   string
	Action     string
	Outcome    string
	Reason     string
}

// EmitAudit writes a structured audit event. Audit entries go through the
// normal log pipeline; they are distinguished by the audit=true attribute.
func EmitAudit(r *http.Request, in AuditInput, extra ...any) {
	attrs := []any{
		"audit", true,
		"event", in.EventName,
		"merchant_id", in.MerchantID,
		"target_type", in.TargetType,
		"target_id", in.TargetID,
		"action", in.Action,
		"outcome", in.Outcome,
	}
	if in.Reason != "" {
		attrs = append(attrs, "reason", in.Reason)
	}
	ctx := context.Background()
	if r != nil {
		ctx = r.Context()
		if id := chimiddleware.GetReqID(ctx); id != "" {
			attrs = append(attrs, "request_id", id)
		}
	}
	attrs = append(attrs, extra...)
	slog.Default().InfoContext(ctx, "audit_event", attrs...)
}
