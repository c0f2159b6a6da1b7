package cookieauth

import (
	"context"
	"time"

	"github.com/google/uuid"

	internalaudit "github.com/dkrieger7/cookieauth/internal/audit"
)

const (
	auditEventLogin     = "login"
	auditEventLogout    = "logout"
	auditEventLogoutAll = "logout_all"
)

type auditDispatcher = internalaudit.Dispatcher

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	return internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Enabled,
		BufferSize: cfg.BufferSize,
		DropIfFull: cfg.DropIfFull,
	}, sink)
}

// emitAudit builds and dispatches one audit event. The dispatcher is nil
// when auditing is disabled, making this a cheap no-op on hot paths.
func (g *Gateway) emitAudit(ctx context.Context, eventType string, success bool, subjectID, sessionID string, failure error) {
	if g == nil || g.audit == nil {
		return
	}

	event := AuditEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now(),
		EventType: eventType,
		SubjectID: subjectID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		event.Metadata = map[string]string{"user_agent": ua}
	}
	if failure != nil {
		event.Error = failure.Error()
	}

	g.audit.Emit(ctx, event)
}
