package cookieauth

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/dkrieger7/cookieauth/internal/audit"
)

// CredentialVerifier is the external user-store collaborator that checks
// submitted credentials. On success it returns the subject id the session
// will be bound to. Any error is treated as a credential failure; the
// gateway never inspects or forwards the reason.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, identifier, secret string) (string, error)
}

// PrincipalStore loads principal data for an authenticated subject. The core
// never owns principal records, only the subject id back-reference.
type PrincipalStore interface {
	LoadPrincipal(ctx context.Context, subjectID string) (*Principal, error)
}

// Principal is the externally owned identity record referenced by a session.
type Principal struct {
	SubjectID  string
	Name       string
	Attributes map[string]string
}

// AuthResult is returned by [Gateway.Authenticate] and [Gateway.Refresh].
type AuthResult struct {
	SubjectID string
	SessionID string
	ExpiresAt time.Time
}

// AuditEvent is a structured audit record emitted by the gateway.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the gateway's audit
// dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer], one object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
