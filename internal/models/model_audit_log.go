package models

import (
	"time"

	"github.com/fatflowers/paybridge/pkg/types"

	"github.com/samber/lo"
	"gorm.io/datatypes"
)

type AuditLogOutcome string

const (
	// AuditLogOutcomeProcessed means the event changed (or confirmed) payment state.
	AuditLogOutcomeProcessed AuditLogOutcome = "processed"
	// AuditLogOutcomeIgnored means the event arrived after a terminal state and was not applied.
	AuditLogOutcomeIgnored AuditLogOutcome = "ignored"
	// AuditLogOutcomePaymentNotFound records a webhook for an unknown provider payment id.
	AuditLogOutcomePaymentNotFound AuditLogOutcome = "payment_not_found"
)

// ReplayOutcomes are the outcomes that make a later delivery with the same
// key a duplicate.
var ReplayOutcomes = []AuditLogOutcome{AuditLogOutcomeProcessed, AuditLogOutcomeIgnored}

// AuditLog is an append-only record of every webhook handled. Rows are never
// updated; (provider, payment_id, event_type) is the replay key.
type AuditLog struct {
	ID        string                `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Provider  types.PaymentProvider `gorm:"column:provider;type:varchar(32);not null;index:idx_audit_replay_key,priority:1" json:"provider"`
	PaymentID string                `gorm:"column:payment_id;type:varchar(128);not null;index:idx_audit_replay_key,priority:2" json:"payment_id"`
	EventType string                `gorm:"column:event_type;type:varchar(128);not null;index:idx_audit_replay_key,priority:3" json:"event_type"`
	Status    types.PaymentStatus   `gorm:"column:status;type:varchar(32)" json:"status"`
	Outcome   AuditLogOutcome       `gorm:"column:outcome;type:varchar(32);not null" json:"outcome"`
	Payload   datatypes.JSON        `gorm:"column:payload;type:jsonb" json:"payload"`
	Metadata  datatypes.JSONMap     `gorm:"column:metadata;type:jsonb" json:"metadata"`
	TraceID   string                `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	CreatedAt time.Time             `json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// CountsForReplay reports whether a later delivery with the same key should be acknowledged without reprocessing.
func (o AuditLogOutcome) CountsForReplay() bool {
	return lo.Contains(ReplayOutcomes, o)
}
