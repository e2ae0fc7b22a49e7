package audit

import (
	"os"
	"time"

	"github.com/ctlmanager/ctlmanager/internal/model"
	"github.com/google/uuid"
)

// NewInsertEntry builds an entry for a newly created entity. The prior-state
// snapshot is nil by definition.
func NewInsertEntry(actor *string, entityName, entityID string, newValues map[string]any) *model.AuditEntry {
	return newEntry(actor, model.AuditActionInsert, entityName, entityID,
		InsertSummary(entityName, entityID), nil, newValues)
}

// NewUpdateEntry builds an entry for an updated entity, or nil when no
// observable field changed. No-op updates produce no audit record.
func NewUpdateEntry(actor *string, entityName, entityID string, oldValues, newValues map[string]any) *model.AuditEntry {
	changed := ChangedFields(oldValues, newValues)
	if len(changed) == 0 {
		return nil
	}
	return newEntry(actor, model.AuditActionUpdate, entityName, entityID,
		UpdateSummary(entityName, entityID, changed), oldValues, newValues)
}

func newEntry(actor *string, action model.AuditAction, entityName, entityID, summary string, oldValues, newValues map[string]any) *model.AuditEntry {
	return &model.AuditEntry{
		ID:            uuid.New(),
		ActorUsername: actor,
		Action:        action,
		EntityName:    entityName,
		EntityID:      entityID,
		Summary:       summary,
		OldValues:     oldValues,
		NewValues:     newValues,
		SourceHost:    defaultHost(),
		CorrelationID: uuid.New(),
		CreatedAt:     time.Now().UTC(),
	}
}

// hostOverride is set once at startup from configuration
var hostOverride string

// SetSourceHost overrides the hostname recorded on new entries
func SetSourceHost(host string) {
	hostOverride = host
}

func defaultHost() string {
	if hostOverride != "" {
		return hostOverride
	}
	host, err := os.Hostname()
	if err != nil {
		return ""
	}
	return host
}
