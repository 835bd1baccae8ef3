package models

import "time"

// Audit action tags. Append-only vocabulary; never rename a tag that has
// been written to production.
const (
	ActionQuotationCreated = "QUOTATION_CREATED"
	ActionEmailSent        = "EMAIL_SENT"
	ActionEmailProcessedAI = "EMAIL_PROCESSED_AI"
	ActionEmailUnmatched   = "EMAIL_UNMATCHED"
	ActionProcessingFailed = "PROCESSING_FAILED"
	ActionStatusChanged    = "STATUS_CHANGED"
	ActionWatchRenewed     = "WATCH_RENEWED"
	ActionWatchRenewFailed = "WATCH_RENEW_FAILED"
)

// Audit entity types
const (
	EntityQuotation = "quotation"
	EntityMessage   = "message"
	EntityWatch     = "watch"
)

// Audit actors
const (
	ActorSystem = "system"
)

// AuditEntry is an immutable append-only record of a meaningful mutation.
// IDs are ULIDs so the trail sorts chronologically by primary key.
type AuditEntry struct {
	ID         string    `db:"id" json:"id"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   string    `db:"entity_id" json:"entity_id"`
	Action     string    `db:"action" json:"action"`
	Detail     string    `db:"detail" json:"detail"` // JSON summary or delta
	Actor      string    `db:"actor" json:"actor"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
