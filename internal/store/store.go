// Package store persists quotations, the audit trail and the watch
// checkpoint. All cross-invocation coordination goes through here: claiming
// a quotation for an inbound reply is a single conditional update, so two
// workers racing on the same message or the same quotation cannot both win.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cotador/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("not found")
	// ErrAlreadyClaimed is returned when a conditional claim update
	// affected no rows: the quotation was already answered or left the
	// open set concurrently
	ErrAlreadyClaimed = errors.New("quotation already claimed")
)

// Store wraps the database handle with the application queries
type Store struct {
	db *sqlx.DB
}

// New creates a store over an open database connection
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

const quotationColumns = `id, supplier_name, supplier_email, status, items,
	quoted_total, delivery_days, delivery_date, payment_terms, notes,
	suggested_action, reply_message_id, needs_manual_review, raw_ai_response,
	created_at, updated_at`

// CreateQuotation inserts a new quotation. Assigns a UUID and the pending
// status when the caller left them empty.
func (s *Store) CreateQuotation(ctx context.Context, q *models.Quotation) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Status == "" {
		q.Status = models.StatusPending
	}
	if !q.Status.Valid() {
		return fmt.Errorf("invalid quotation status %q", q.Status)
	}

	itemsJSON, err := marshalItems(q.Items)
	if err != nil {
		return err
	}
	q.ItemsJSON = itemsJSON

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quotations (id, supplier_name, supplier_email, status, items, needs_manual_review)
		VALUES (?, ?, ?, ?, ?, ?)`,
		q.ID, q.SupplierName, q.SupplierEmail, q.Status, q.ItemsJSON, q.NeedsManualReview)
	if err != nil {
		return fmt.Errorf("failed to insert quotation: %w", err)
	}

	return nil
}

// GetQuotation fetches one quotation by id
func (s *Store) GetQuotation(ctx context.Context, id string) (*models.Quotation, error) {
	var q models.Quotation
	err := s.db.GetContext(ctx, &q,
		`SELECT `+quotationColumns+` FROM quotations WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quotation: %w", err)
	}

	if err := unmarshalItems(&q); err != nil {
		return nil, err
	}
	return &q, nil
}

// ListQuotations returns the most recent quotations, newest first
func (s *Store) ListQuotations(ctx context.Context, limit int) ([]models.Quotation, error) {
	var qs []models.Quotation
	err := s.db.SelectContext(ctx, &qs,
		`SELECT `+quotationColumns+` FROM quotations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotations: %w", err)
	}

	for i := range qs {
		if err := unmarshalItems(&qs[i]); err != nil {
			return nil, err
		}
	}
	return qs, nil
}

// FindByReplyMessage returns the quotation already stamped with the given
// provider message id, or ErrNotFound. This is the dedup probe: a hit means
// the message was fully processed before.
func (s *Store) FindByReplyMessage(ctx context.Context, messageID string) (*models.Quotation, error) {
	var q models.Quotation
	err := s.db.GetContext(ctx, &q,
		`SELECT `+quotationColumns+` FROM quotations WHERE reply_message_id = ?`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find quotation by reply message: %w", err)
	}

	if err := unmarshalItems(&q); err != nil {
		return nil, err
	}
	return &q, nil
}

// ListOpenCandidates returns the most recent quotations still eligible for
// reply matching, newest first. The bound is deliberate: quotations older
// than the window become unmatchable, which keeps the scan cheap at the
// cost of silently dropping very stale requests.
func (s *Store) ListOpenCandidates(ctx context.Context, limit int) ([]models.Quotation, error) {
	var qs []models.Quotation
	err := s.db.SelectContext(ctx, &qs,
		`SELECT `+quotationColumns+` FROM quotations
		 WHERE status IN ('pending', 'sent', 'awaiting')
		 ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list open candidates: %w", err)
	}

	for i := range qs {
		if err := unmarshalItems(&qs[i]); err != nil {
			return nil, err
		}
	}
	return qs, nil
}

// MarkSent transitions a pending quotation to sent after the request email
// went out. Returns ErrNotFound when the quotation is missing or no longer
// pending.
func (s *Store) MarkSent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE quotations SET status = 'sent', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("failed to mark quotation sent: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimQuote atomically merges a reconciled reply onto an open quotation.
// The WHERE clause is the optimistic concurrency guard: it only matches
// while the quotation is unclaimed and still in the open set, so concurrent
// deliveries of the same message, or two messages racing for one
// quotation, resolve to exactly one winner. Losing the race returns
// ErrAlreadyClaimed.
func (s *Store) ClaimQuote(ctx context.Context, id string, merge models.QuoteMerge) error {
	itemsJSON, err := marshalItems(merge.Items)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE quotations SET
			status = 'quoted',
			reply_message_id = ?,
			items = ?,
			quoted_total = ?,
			delivery_days = ?,
			delivery_date = ?,
			payment_terms = ?,
			notes = ?,
			suggested_action = ?,
			needs_manual_review = ?,
			raw_ai_response = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND reply_message_id IS NULL
		  AND status IN ('pending', 'sent', 'awaiting')`,
		merge.ReplyMessageID, itemsJSON, merge.QuotedTotal, merge.DeliveryDays,
		merge.DeliveryDate, merge.PaymentTerms, merge.Notes, merge.SuggestedAction,
		merge.NeedsManualReview, merge.RawAIResponse, id)
	if err != nil {
		return fmt.Errorf("failed to claim quotation: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrAlreadyClaimed
	}
	return nil
}

// AppendAudit inserts an immutable audit entry. Assigns a ULID when the
// caller left the id empty so the trail sorts chronologically by key.
func (s *Store) AppendAudit(ctx context.Context, e *models.AuditEntry) error {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	if e.Actor == "" {
		e.Actor = models.ActorSystem
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (id, entity_type, entity_id, action, detail, actor)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.EntityType, e.EntityID, e.Action, e.Detail, e.Actor)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ListAudit returns the audit trail for one entity in chronological order
func (s *Store) ListAudit(ctx context.Context, entityID string, limit int) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	err := s.db.SelectContext(ctx, &entries, `
		SELECT id, entity_type, entity_id, action, detail, actor, created_at
		FROM audit_entries WHERE entity_id = ? ORDER BY id ASC LIMIT ?`,
		entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}

// LoadCheckpoint returns the singleton watch checkpoint, or ErrNotFound
// before the first watch registration
func (s *Store) LoadCheckpoint(ctx context.Context) (*models.WatchCheckpoint, error) {
	var cp models.WatchCheckpoint
	err := s.db.GetContext(ctx, &cp, `
		SELECT id, history_id, expiration, renewed_at, updated_at
		FROM watch_checkpoint WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return &cp, nil
}

// SaveCheckpoint advances the last fully-processed history position. Called
// by the listener after a whole batch attempt completes.
func (s *Store) SaveCheckpoint(ctx context.Context, historyID uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watch_checkpoint (id, history_id, renewed_at)
		VALUES (1, ?, CURRENT_TIMESTAMP)
		ON DUPLICATE KEY UPDATE
			history_id = VALUES(history_id),
			updated_at = CURRENT_TIMESTAMP`,
		historyID)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// SaveWatch records a successful watch registration or renewal. The
// history position is only seeded on first registration; afterwards it is
// advanced exclusively by the listener.
func (s *Store) SaveWatch(ctx context.Context, historyID uint64, expiration time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watch_checkpoint (id, history_id, expiration, renewed_at)
		VALUES (1, ?, ?, CURRENT_TIMESTAMP)
		ON DUPLICATE KEY UPDATE
			history_id = IF(history_id = 0, VALUES(history_id), history_id),
			expiration = VALUES(expiration),
			renewed_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP`,
		historyID, expiration)
	if err != nil {
		return fmt.Errorf("failed to save watch state: %w", err)
	}
	return nil
}

func marshalItems(items []models.QuotationItem) (string, error) {
	if items == nil {
		items = []models.QuotationItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to marshal items: %w", err)
	}
	return string(data), nil
}

func unmarshalItems(q *models.Quotation) error {
	if q.ItemsJSON == "" {
		q.Items = nil
		return nil
	}
	if err := json.Unmarshal([]byte(q.ItemsJSON), &q.Items); err != nil {
		return fmt.Errorf("failed to unmarshal items for quotation %s: %w", q.ID, err)
	}
	return nil
}
