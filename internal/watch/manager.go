// Package watch keeps the Gmail push subscription alive. Gmail expires a
// watch after about 7 days; the manager renews it on a shorter interval
// and records every attempt in the audit trail for operational alerting.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cotador/internal/models"

	"github.com/rs/zerolog"
)

// Registrar is the provider slice the manager needs
type Registrar interface {
	Watch(ctx context.Context) (historyID uint64, expiration time.Time, err error)
}

// WatchStore persists the subscription state and the audit trail
type WatchStore interface {
	SaveWatch(ctx context.Context, historyID uint64, expiration time.Time) error
	AppendAudit(ctx context.Context, e *models.AuditEntry) error
}

// Manager renews the watch subscription on a fixed interval
type Manager struct {
	registrar Registrar
	store     WatchStore
	logger    zerolog.Logger
	interval  time.Duration
}

// New creates a manager. A non-positive interval falls back to 6 days.
func New(registrar Registrar, st WatchStore, logger zerolog.Logger, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = 144 * time.Hour
	}
	return &Manager{
		registrar: registrar,
		store:     st,
		logger:    logger,
		interval:  interval,
	}
}

// Renew registers the watch once and persists the new expiry. Renewal
// failure is audited as a system-level event, not surfaced to end users.
func (m *Manager) Renew(ctx context.Context) error {
	historyID, expiration, err := m.registrar.Watch(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("Watch renewal failed")
		m.audit(ctx, models.ActionWatchRenewFailed, map[string]string{"error": err.Error()})
		return fmt.Errorf("watch renewal failed: %w", err)
	}

	if err := m.store.SaveWatch(ctx, historyID, expiration); err != nil {
		m.logger.Error().Err(err).Msg("Failed to persist watch state")
		return fmt.Errorf("failed to persist watch state: %w", err)
	}

	m.logger.Info().
		Uint64("history_id", historyID).
		Time("expiration", expiration).
		Msg("Watch renewed")
	m.audit(ctx, models.ActionWatchRenewed, map[string]string{
		"expiration": expiration.Format(time.RFC3339),
	})

	return nil
}

// Run renews immediately and then on every tick until the context is
// cancelled. Renewal errors are logged and retried on the next tick.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Renew(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("Initial watch registration failed, will retry on schedule")
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.Renew(ctx); err != nil {
				m.logger.Warn().Err(err).Msg("Scheduled watch renewal failed")
			}
		}
	}
}

func (m *Manager) audit(ctx context.Context, action string, fields map[string]string) {
	detail, _ := json.Marshal(fields)
	entry := &models.AuditEntry{
		EntityType: models.EntityWatch,
		EntityID:   "gmail",
		Action:     action,
		Detail:     string(detail),
	}
	if err := m.store.AppendAudit(ctx, entry); err != nil {
		m.logger.Error().Err(err).Str("action", action).Msg("Failed to audit watch event")
	}
}
