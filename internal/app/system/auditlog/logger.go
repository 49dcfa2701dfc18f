// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"

	"github.com/dalemusser/strataauth/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination values for Config.Auth.
const (
	All = "all" // MongoDB + zap
	DB  = "db"  // MongoDB only
	Log = "log" // zap only
	Off = "off" // disabled
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for registration and login events.
	Auth string
}

// Recorder persists audit events. *audit.Store implements it.
type Recorder interface {
	Log(ctx context.Context, event audit.Event) error
}

// Counter counts events by type. *metrics.Metrics implements it.
type Counter interface {
	AuthEvent(eventType string)
}

// Logger provides convenience methods for logging audit events.
// It logs to MongoDB (via Recorder) and/or structured logs (via zap).
type Logger struct {
	store   Recorder
	zapLog  *zap.Logger
	config  Config
	counter Counter
}

// New creates a new audit Logger.
func New(store Recorder, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// WithCounter attaches a Counter. Events are counted even when the
// destination setting is Off.
func (l *Logger) WithCounter(c Counter) *Logger {
	l.counter = c
	return l
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Record writes an audit event based on configuration.
// A nil Logger is a no-op so tests can omit auditing.
func (l *Logger) Record(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	if l.counter != nil {
		l.counter.AuthEvent(event.EventType)
	}

	setting := l.config.Auth
	if setting == "" {
		setting = All
	}
	if setting == Off {
		return
	}

	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if (setting == All || setting == DB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// Registered logs a new account.
func (l *Logger) Registered(ctx context.Context, userID primitive.ObjectID, email, ip, userAgent string) {
	l.Record(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventUserRegistered,
		UserID:    &userID,
		IP:        ip,
		UserAgent: userAgent,
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// RegisterDuplicate logs a registration rejected for an existing email.
func (l *Logger) RegisterDuplicate(ctx context.Context, email, ip, userAgent string) {
	l.Record(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventRegisterDuplicateEmail,
		IP:            ip,
		UserAgent:     userAgent,
		FailureReason: "email already registered",
		Details:       map[string]string{"email": email},
	})
}

// LoginSuccess logs a successful login with the history label it produced.
func (l *Logger) LoginSuccess(ctx context.Context, userID primitive.ObjectID, ip, userAgent, label, location string) {
	l.Record(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        ip,
		UserAgent: userAgent,
		Success:   true,
		Details: map[string]string{
			"log":      label,
			"location": location,
		},
	})
}

// LoginFailedUserNotFound logs a login for an unknown email.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, email, ip, userAgent string) {
	l.Record(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserNotFound,
		IP:            ip,
		UserAgent:     userAgent,
		FailureReason: "user not found",
		Details:       map[string]string{"attempted_email": email},
	})
}

// LoginFailedWrongPassword logs a login with a bad password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, userID primitive.ObjectID, ip, userAgent string) {
	l.Record(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongPassword,
		UserID:        &userID,
		IP:            ip,
		UserAgent:     userAgent,
		FailureReason: "wrong password",
	})
}
