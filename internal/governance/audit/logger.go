// Package audit records form lifecycle events in form_audit_log.
//
// Audit rows are append-only and outlive the forms they describe.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"formbuilder.io/formbuilder/internal/domain"
	"formbuilder.io/formbuilder/internal/pkg/logger"
	"formbuilder.io/formbuilder/internal/repository/sqlc"
)

// Writer persists audit rows. *sqlc.Queries implements it.
type Writer interface {
	InsertAuditLog(ctx context.Context, arg sqlc.InsertAuditLogParams) error
}

// Logger writes audit records to the database.
type Logger struct {
	writer Writer
}

func NewLogger(writer Writer) *Logger {
	return &Logger{writer: writer}
}

// LogAction records an auditable action on a form.
func (l *Logger) LogAction(ctx context.Context, action string, formID int64, actor string, details map[string]any) error {
	raw := []byte("{}")
	if len(details) > 0 {
		var err error
		if raw, err = json.Marshal(details); err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}
	return l.write(ctx, action, formID, actor, raw)
}

// HandleEvent records a domain event. It has the domain.EventHandler
// signature so it can be registered with the dispatcher.
func (l *Logger) HandleEvent(ctx context.Context, e *domain.DomainEvent) error {
	p, err := e.FormPayload()
	if err != nil {
		return err
	}
	return l.write(ctx, ActionFor(e.EventType), p.FormID, e.CreatedBy, e.Payload)
}

func (l *Logger) write(ctx context.Context, action string, formID int64, actor string, details []byte) error {
	err := l.writer.InsertAuditLog(ctx, sqlc.InsertAuditLogParams{
		ID:      generateAuditID(),
		Action:  action,
		FormID:  formID,
		Actor:   actor,
		Details: details,
	})
	if err != nil {
		logger.Error("Failed to write audit log",
			zap.String("action", action),
			zap.Int64("form_id", formID),
			zap.Error(err),
		)
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// ActionFor maps FORM_SYNC_DEGRADED to "form.sync_degraded".
func ActionFor(t domain.EventType) string {
	name := strings.ToLower(string(t))
	if rest, ok := strings.CutPrefix(name, "form_"); ok {
		return "form." + rest
	}
	return name
}

func generateAuditID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return fmt.Sprintf("audit-%s", id.String())
}
