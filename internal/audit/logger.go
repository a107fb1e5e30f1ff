package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	otellog "go.opentelemetry.io/otel/log"

	"prepmaster/backend/internal/audit/domain"
	auditrepo "prepmaster/backend/internal/audit/repository"
)

// Actions recorded by the auth and admin code paths.
const (
	ActionRegister            = "register"
	ActionLoginSuccess        = "login_success"
	ActionLoginFailure        = "login_failure"
	ActionAccountLocked       = "account_locked"
	ActionOTPVerified         = "otp_verified"
	ActionOTPResent           = "otp_resent"
	ActionEmailVerified       = "email_verified"
	ActionPasswordChanged     = "password_changed"
	ActionProfileUpdated      = "profile_updated"
	ActionIdentityActivated   = "identity_activated"
	ActionIdentityDeactivated = "identity_deactivated"
	ActionIdentityDeleted     = "identity_deleted"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, identityID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	log         logrus.FieldLogger
	events      otellog.Logger
	nowF        func() time.Time
}

// EventScope is the instrumentation scope of exported audit log records.
const EventScope = "prepmaster.audit"

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// repo may be nil; then events only go to log. ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, log logrus.FieldLogger) *Logger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Logger{repo: repo, ipExtractor: ipExtractor, log: log, nowF: time.Now}
}

// WithEventExport makes l also emit every event as an OTel log record through
// provider. A nil provider disables export.
func (l *Logger) WithEventExport(provider otellog.LoggerProvider) *Logger {
	if provider == nil {
		l.events = nil
		return l
	}
	l.events = provider.Logger(EventScope)
	return l
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, identityID, action, resource, metadata string) {
	ip := "unknown"
	if l.ipExtractor != nil {
		if v := l.ipExtractor(ctx); v != "" {
			ip = v
		}
	}
	now := l.nowF().UTC()
	l.export(ctx, now, identityID, action, resource, ip, metadata)
	fields := logrus.Fields{"action": action, "resource": resource, "identity_id": identityID, "ip": ip}
	if l.repo == nil {
		l.log.WithFields(fields).Debug("audit event")
		return
	}
	entry := &domain.AuditLog{
		ID:         uuid.New().String(),
		IdentityID: identityID,
		Action:     action,
		Resource:   resource,
		IP:         ip,
		Metadata:   metadata,
		CreatedAt:  now,
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.log.WithFields(fields).WithError(err).Warn("audit: failed to log event")
	}
}

func (l *Logger) export(ctx context.Context, at time.Time, identityID, action, resource, ip, metadata string) {
	if l.events == nil {
		return
	}
	var rec otellog.Record
	rec.SetTimestamp(at)
	rec.SetObservedTimestamp(at)
	rec.SetSeverity(severity(action))
	rec.SetSeverityText(severity(action).String())
	rec.SetEventName("audit." + action)
	rec.SetBody(otellog.StringValue(action))
	rec.AddAttributes(
		otellog.String("action", action),
		otellog.String("resource", resource),
		otellog.String("ip", ip),
	)
	if identityID != "" {
		rec.AddAttributes(otellog.String("identity_id", identityID))
	}
	if metadata != "" {
		rec.AddAttributes(otellog.String("metadata", metadata))
	}
	l.events.Emit(ctx, rec)
}

// severity marks failed logins and lockouts as warnings.
func severity(action string) otellog.Severity {
	switch action {
	case ActionLoginFailure, ActionAccountLocked:
		return otellog.SeverityWarn
	default:
		return otellog.SeverityInfo
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) LogEvent(context.Context, string, string, string, string) {}
