package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction is the kind of mutation an audit entry records
type AuditAction string

const (
	AuditActionInsert AuditAction = "INSERT"
	AuditActionUpdate AuditAction = "UPDATE"
)

// Audited entity names
const (
	AuditEntityJobs   = "jobs"
	AuditEntityGroups = "groups"
	AuditEntityUsers  = "users"
)

// AuditEntry is an immutable record of a single mutating action against a
// tracked entity. Entries are never updated or deleted by the application.
type AuditEntry struct {
	ID            uuid.UUID      `json:"id"`
	ActorUsername *string        `json:"actorUsername,omitempty"`
	Action        AuditAction    `json:"action"`
	EntityName    string         `json:"entityName"`
	EntityID      string         `json:"entityId"`
	Summary       string         `json:"summary"`
	OldValues     map[string]any `json:"oldValues,omitempty"` // nil for INSERT
	NewValues     map[string]any `json:"newValues"`
	SourceHost    string         `json:"sourceHost"`
	SourceIP      *string        `json:"sourceIp,omitempty"`
	CorrelationID uuid.UUID      `json:"correlationId"`
	CreatedAt     time.Time      `json:"createdAt"`
}
