package models

import "time"

// InboundMessage is a provider message observed by the notification
// listener. The provider message ID is globally unique and serves as the
// deduplication key: a given ID must never update two quotations, and must
// never update the same quotation twice.
type InboundMessage struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id,omitempty"`
	From       string    `json:"from"` // raw header value, possibly "Display Name <addr>"
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Snippet    string    `json:"snippet,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// WatchCheckpoint is the singleton record of the last fully-processed Gmail
// history position plus the current watch subscription state. The listener
// advances HistoryID after each batch; the watch manager resets Expiration
// on renewal.
type WatchCheckpoint struct {
	ID         int       `db:"id" json:"id"` // always 1
	HistoryID  uint64    `db:"history_id" json:"history_id"`
	Expiration time.Time `db:"expiration" json:"expiration"`
	RenewedAt  time.Time `db:"renewed_at" json:"renewed_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
