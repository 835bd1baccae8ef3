// Package listener turns Gmail push notifications into reconciliation
// work: it resolves the history delta since the last checkpoint, feeds
// each new message to the engine, and advances the checkpoint after the
// batch. Per-message failures are isolated; the push transport only sees
// an error when the delta itself could not be resolved, in which case
// redelivery of the whole notification is safe thanks to message-level
// dedup.
package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cotador/internal/models"
	"cotador/internal/reconcile"
	"cotador/internal/store"

	"github.com/rs/zerolog"
)

// Notification is the decoded Gmail push payload: the watched mailbox and
// the new history marker
type Notification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// ParseNotification decodes the inner Pub/Sub message data
func ParseNotification(data []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return Notification{}, fmt.Errorf("invalid notification payload: %w", err)
	}
	if n.HistoryID == 0 {
		return Notification{}, fmt.Errorf("notification missing historyId")
	}
	return n, nil
}

// MessageSource is the provider slice the listener needs
type MessageSource interface {
	HistorySince(ctx context.Context, startHistoryID uint64, pageSize int64) ([]string, uint64, error)
	GetMessage(ctx context.Context, id string) (*models.InboundMessage, error)
}

// CheckpointStore persists the last fully-processed history position
type CheckpointStore interface {
	LoadCheckpoint(ctx context.Context) (*models.WatchCheckpoint, error)
	SaveCheckpoint(ctx context.Context, historyID uint64) error
	AppendAudit(ctx context.Context, e *models.AuditEntry) error
}

// Processor runs the reconciliation pipeline for one message
type Processor interface {
	Process(ctx context.Context, msg models.InboundMessage) (reconcile.Outcome, error)
}

// Listener handles push notifications for one mailbox
type Listener struct {
	source   MessageSource
	store    CheckpointStore
	engine   Processor
	logger   zerolog.Logger
	pageSize int64
}

// New creates a listener. pageSize bounds the history delta resolved per
// notification; a non-positive value falls back to 100.
func New(source MessageSource, st CheckpointStore, engine Processor, logger zerolog.Logger, pageSize int) *Listener {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Listener{
		source:   source,
		store:    st,
		engine:   engine,
		logger:   logger,
		pageSize: int64(pageSize),
	}
}

// HandleNotification processes one push notification. An error return
// means the history delta could not be resolved and nothing was processed;
// transport-level retry of the notification is then appropriate. Once
// messages start flowing, failures are per-message and swallowed.
func (l *Listener) HandleNotification(ctx context.Context, n Notification) error {
	start := l.startMarker(ctx, n)

	messageIDs, latest, err := l.source.HistorySince(ctx, start, l.pageSize)
	if err != nil {
		return fmt.Errorf("failed to resolve history since %d: %w", start, err)
	}

	l.logger.Info().
		Uint64("start_history_id", start).
		Uint64("latest_history_id", latest).
		Int("new_messages", len(messageIDs)).
		Msg("Resolved history delta")

	for _, id := range messageIDs {
		l.processOne(ctx, id)
	}

	// Advance the checkpoint only after the whole batch attempt. A crash
	// before this point reprocesses the batch on redelivery; dedup makes
	// that a no-op for messages already merged.
	next := latest
	if next < n.HistoryID {
		next = n.HistoryID
	}
	if err := l.store.SaveCheckpoint(ctx, next); err != nil {
		l.logger.Error().Err(err).Uint64("history_id", next).Msg("Failed to advance checkpoint")
	}

	return nil
}

// startMarker picks the history position to resolve from: the stored
// checkpoint when available, else the marker carried by the notification
// itself. The fallback accepts possible reprocessing, which dedup absorbs.
func (l *Listener) startMarker(ctx context.Context, n Notification) uint64 {
	cp, err := l.store.LoadCheckpoint(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.logger.Warn().Err(err).Msg("Checkpoint load failed, falling back to notification marker")
		}
		return n.HistoryID
	}
	if cp.HistoryID == 0 {
		return n.HistoryID
	}
	return cp.HistoryID
}

// processOne fetches and reconciles a single message. Failures are
// audited and logged but never abort sibling messages in the batch.
func (l *Listener) processOne(ctx context.Context, id string) {
	msg, err := l.source.GetMessage(ctx, id)
	if err != nil {
		l.logger.Error().Err(err).Str("message_id", id).Msg("Failed to fetch message")
		l.auditFailure(ctx, id, err)
		return
	}

	outcome, err := l.engine.Process(ctx, *msg)
	if err != nil {
		l.logger.Error().Err(err).Str("message_id", id).Msg("Message processing failed")
		l.auditFailure(ctx, id, err)
		return
	}

	l.logger.Debug().Str("message_id", id).Str("outcome", string(outcome)).Msg("Message processed")
}

func (l *Listener) auditFailure(ctx context.Context, messageID string, cause error) {
	detail, _ := json.Marshal(map[string]string{
		"message_id": messageID,
		"error":      cause.Error(),
	})
	entry := &models.AuditEntry{
		EntityType: models.EntityMessage,
		EntityID:   messageID,
		Action:     models.ActionProcessingFailed,
		Detail:     string(detail),
	}
	if err := l.store.AppendAudit(ctx, entry); err != nil {
		l.logger.Error().Err(err).Str("message_id", messageID).Msg("Failed to audit processing failure")
	}
}
