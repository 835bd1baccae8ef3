// Package reconcile matches inbound supplier replies against open
// quotations and merges extracted offers onto them exactly once per
// provider message.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cotador/internal/extract"
	"cotador/internal/identity"
	"cotador/internal/models"
	"cotador/internal/store"

	"github.com/rs/zerolog"
)

// Outcome classifies what processing one message did
type Outcome string

const (
	// OutcomeMerged means the message claimed a quotation and was merged
	OutcomeMerged Outcome = "merged"
	// OutcomeDuplicate means the message was already processed; no-op
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeUnmatched means no open quotation matched the sender
	OutcomeUnmatched Outcome = "unmatched"
	// OutcomeFailed means the merge step failed; safe to retry
	OutcomeFailed Outcome = "failed"
)

// QuotationStore is the persistence surface the engine depends on
type QuotationStore interface {
	FindByReplyMessage(ctx context.Context, messageID string) (*models.Quotation, error)
	ListOpenCandidates(ctx context.Context, limit int) ([]models.Quotation, error)
	ClaimQuote(ctx context.Context, id string, merge models.QuoteMerge) error
	AppendAudit(ctx context.Context, e *models.AuditEntry) error
}

// OfferExtractor produces a structured offer from reply text
type OfferExtractor interface {
	Extract(ctx context.Context, emailBody string, items []models.QuotationItem) extract.Result
}

// Engine orchestrates dedup, candidate matching, extraction and the atomic
// merge for one inbound message at a time. Stateless; safe for concurrent
// use across worker invocations because all coordination happens in the
// store's conditional claim.
type Engine struct {
	store          QuotationStore
	extractor      OfferExtractor
	logger         zerolog.Logger
	candidateLimit int
}

// New creates an engine. candidateLimit bounds the open-quotation scan; a
// non-positive value falls back to 50.
func New(st QuotationStore, ex OfferExtractor, logger zerolog.Logger, candidateLimit int) *Engine {
	if candidateLimit <= 0 {
		candidateLimit = 50
	}
	return &Engine{
		store:          st,
		extractor:      ex,
		logger:         logger,
		candidateLimit: candidateLimit,
	}
}

// Process runs the reconciliation pipeline for one message:
// dedup, candidate search, extraction, atomic merge, audit.
//
// Duplicates and unmatched senders are not errors. An error return means
// the merge could not be persisted and redelivery of the message is safe.
func (e *Engine) Process(ctx context.Context, msg models.InboundMessage) (Outcome, error) {
	log := e.logger.With().Str("message_id", msg.ID).Logger()

	// Step 1: dedup. A quotation already stamped with this message id
	// means a previous delivery completed the merge.
	existing, err := e.store.FindByReplyMessage(ctx, msg.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return OutcomeFailed, fmt.Errorf("dedup lookup failed: %w", err)
	}
	if existing != nil {
		log.Debug().Str("quotation_id", existing.ID).Msg("Message already processed, skipping")
		return OutcomeDuplicate, nil
	}

	// Step 2: find the candidate quotation by sender identity
	candidates, err := e.store.ListOpenCandidates(ctx, e.candidateLimit)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("candidate search failed: %w", err)
	}

	candidate := matchCandidate(msg.From, candidates)
	if candidate == nil {
		log.Info().Str("from", msg.From).Msg("No open quotation matches sender")
		e.auditUnmatched(ctx, msg)
		return OutcomeUnmatched, nil
	}

	log.Info().
		Str("quotation_id", candidate.ID).
		Str("supplier_email", candidate.SupplierEmail).
		Msg("Supplier reply matched to open quotation")

	// Steps 3-4: extract the offer. Extraction never errors; a model or
	// parse failure yields the safe default payload and the quotation
	// still advances, flagged for manual review. The business rule is
	// "a human reply was received", not "the AI understood it".
	res := e.extractor.Extract(ctx, msg.Body, candidate.Items)
	if !res.Success {
		log.Warn().Str("error", res.Err).Msg("Offer extraction degraded to defaults")
	}

	// Step 5: atomic merge
	merge := buildMerge(msg, res, candidate.Items)
	if err := e.store.ClaimQuote(ctx, candidate.ID, merge); err != nil {
		if errors.Is(err, store.ErrAlreadyClaimed) {
			// Lost the claim. If the quotation now carries this message
			// id the winner was a redelivery of the same message and
			// this is a true duplicate. Otherwise a distinct reply won
			// the candidate and this one is still an unprocessed
			// supplier reply; record it as unmatched so it surfaces.
			stamped, probeErr := e.store.FindByReplyMessage(ctx, msg.ID)
			if probeErr != nil && !errors.Is(probeErr, store.ErrNotFound) {
				return OutcomeFailed, fmt.Errorf("claim re-check failed for message %s: %w", msg.ID, probeErr)
			}
			if stamped != nil {
				log.Debug().Str("quotation_id", candidate.ID).Msg("Quotation claimed concurrently by same message, skipping")
				return OutcomeDuplicate, nil
			}
			log.Info().Str("quotation_id", candidate.ID).Msg("Quotation claimed by another reply, recording as unmatched")
			e.auditUnmatched(ctx, msg)
			return OutcomeUnmatched, nil
		}
		return OutcomeFailed, fmt.Errorf("claim failed for quotation %s: %w", candidate.ID, err)
	}

	// Step 6: audit the merge
	e.auditMerged(ctx, msg, candidate.ID, res, merge)

	log.Info().
		Str("quotation_id", candidate.ID).
		Bool("needs_manual_review", merge.NeedsManualReview).
		Msg("Quotation reconciled")
	return OutcomeMerged, nil
}

// matchCandidate picks the quotation whose supplier address best matches
// the sender: the first exact match wins, else the first domain-level
// match. Candidates arrive most-recent first, so ties resolve to the
// newest quotation.
func matchCandidate(sender string, candidates []models.Quotation) *models.Quotation {
	var domainHit *models.Quotation
	for i := range candidates {
		switch identity.Match(sender, candidates[i].SupplierEmail) {
		case identity.Exact:
			return &candidates[i]
		case identity.Domain:
			if domainHit == nil {
				domainHit = &candidates[i]
			}
		}
	}
	return domainHit
}

// buildMerge maps the extraction result onto the requested items and
// derives the quoted total
func buildMerge(msg models.InboundMessage, res extract.Result, requested []models.QuotationItem) models.QuoteMerge {
	offer := res.Offer
	merged := extract.MatchItems(requested, offer.Items)
	total := extract.DeriveTotal(offer, merged)

	// A reply without an actual offer (hasQuote false) carries no data for
	// the buyer; it advances the quotation but must reach a human.
	m := models.QuoteMerge{
		ReplyMessageID:    msg.ID,
		Items:             merged,
		NeedsManualReview: !res.Success || offer.HasProblems || !offer.HasQuote,
		RawAIResponse:     res.RawResponse,
	}

	if total > 0 {
		m.QuotedTotal = &total
	}
	if offer.DeliveryDays > 0 {
		days := offer.DeliveryDays
		m.DeliveryDays = &days
	}
	if offer.DeliveryDate != "" {
		date := offer.DeliveryDate
		m.DeliveryDate = &date
	}
	if offer.PaymentTerms != "" {
		terms := offer.PaymentTerms
		m.PaymentTerms = &terms
	}
	if offer.Notes != "" {
		notes := offer.Notes
		m.Notes = &notes
	}
	if offer.SuggestedAction != "" {
		action := offer.SuggestedAction
		m.SuggestedAction = &action
	}

	return m
}

func (e *Engine) auditUnmatched(ctx context.Context, msg models.InboundMessage) {
	detail, _ := json.Marshal(map[string]string{
		"message_id": msg.ID,
		"from":       msg.From,
		"subject":    msg.Subject,
	})
	entry := &models.AuditEntry{
		EntityType: models.EntityMessage,
		EntityID:   msg.ID,
		Action:     models.ActionEmailUnmatched,
		Detail:     string(detail),
	}
	if err := e.store.AppendAudit(ctx, entry); err != nil {
		e.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to audit unmatched message")
	}
}

func (e *Engine) auditMerged(ctx context.Context, msg models.InboundMessage, quotationID string, res extract.Result, merge models.QuoteMerge) {
	summary := map[string]interface{}{
		"message_id":          msg.ID,
		"from":                msg.From,
		"extracted_items":     len(res.Offer.Items),
		"has_problems":        res.Offer.HasProblems,
		"needs_manual_review": merge.NeedsManualReview,
		"status":              string(models.StatusQuoted),
	}
	if merge.QuotedTotal != nil {
		summary["total"] = *merge.QuotedTotal
	}
	detail, _ := json.Marshal(summary)

	entry := &models.AuditEntry{
		EntityType: models.EntityQuotation,
		EntityID:   quotationID,
		Action:     models.ActionEmailProcessedAI,
		Detail:     string(detail),
	}
	if err := e.store.AppendAudit(ctx, entry); err != nil {
		// The merge itself is durable; a lost audit entry is logged,
		// not retried, to keep the pipeline idempotent
		e.logger.Error().Err(err).Str("quotation_id", quotationID).Msg("Failed to audit merge")
	}
}
