package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Audit event types.
const (
	AuditInstallationCreated = "identity.installation_created"
	AuditIdentityResolved    = "identity.resolved"
	AuditIdentityFailed      = "identity.unavailable"
	AuditReadingRejected     = "trail.reading_rejected"
)

// AuditEvent represents an identity or trail audit log entry.
type AuditEvent struct {
	EventID   string                 `json:"event_id"`
	Timestamp time.Time              `json:"timestamp"`
	EventType string                 `json:"event_type"`
	DeviceID  string                 `json:"device_id,omitempty"`
	SourceIP  string                 `json:"source_ip,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

var (
	auditLogger *zerolog.Logger
	auditMu     sync.RWMutex
)

// InitAuditLogger configures the audit logger.
// A nil writer disables audit logging.
func InitAuditLogger(writer io.Writer) {
	auditMu.Lock()
	defer auditMu.Unlock()

	if writer == nil {
		auditLogger = nil
		return
	}
	l := zerolog.New(writer).With().Timestamp().Logger()
	auditLogger = &l
}

// LogAuditEvent writes a structured audit event if the audit logger is configured.
func LogAuditEvent(eventType, deviceID, sourceIP string, details map[string]interface{}) {
	auditMu.RLock()
	defer auditMu.RUnlock()

	if auditLogger == nil {
		return
	}

	event := AuditEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		DeviceID:  deviceID,
		SourceIP:  sourceIP,
		Details:   details,
	}

	e := auditLogger.Info().
		Str("event_id", event.EventID).
		Time("timestamp", event.Timestamp).
		Str("event_type", event.EventType)

	if event.DeviceID != "" {
		e = e.Str("device_id", event.DeviceID)
	}
	if event.SourceIP != "" {
		e = e.Str("source_ip", event.SourceIP)
	}
	if len(event.Details) > 0 {
		e = e.Fields(event.Details)
	}

	e.Msg("")
}

// NewFileAuditWriter returns an append-only file writer for audit logs.
func NewFileAuditWriter(path string) (io.Writer, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return f, nil
}
