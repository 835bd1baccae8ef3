package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"cotador/internal/cache"
	"cotador/internal/models"
	"cotador/internal/store"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const quotationListCacheKey = "quotations:list"

// QuotationStore is the persistence surface the quotation endpoints need
type QuotationStore interface {
	CreateQuotation(ctx context.Context, q *models.Quotation) error
	ListQuotations(ctx context.Context, limit int) ([]models.Quotation, error)
	GetQuotation(ctx context.Context, id string) (*models.Quotation, error)
	MarkSent(ctx context.Context, id string) error
	AppendAudit(ctx context.Context, e *models.AuditEntry) error
	ListAudit(ctx context.Context, entityID string, limit int) ([]models.AuditEntry, error)
}

// QuotationMailer dispatches the request email to the supplier
type QuotationMailer interface {
	SendQuotationRequest(q *models.Quotation) error
}

// QuotationsHandler lists recent quotations, cached briefly since the
// purchasing dashboard polls it
// @Summary List quotations
// @Description Returns the most recent quotations
// @Tags Quotations
// @Produce json
// @Success 200 {object} models.QuotationListResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/quotations [get]
func QuotationsHandler(st QuotationStore, c *cache.Cache, ttl time.Duration) echo.HandlerFunc {
	return func(ec echo.Context) error {
		if cached, ok := c.Get(quotationListCacheKey); ok {
			return ec.JSON(http.StatusOK, cached)
		}

		quotations, err := st.ListQuotations(ec.Request().Context(), 100)
		if err != nil {
			return ec.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list quotations"})
		}

		response := models.QuotationListResponse{
			Quotations: quotations,
			Count:      len(quotations),
		}
		c.Set(quotationListCacheKey, response, ttl)

		return ec.JSON(http.StatusOK, response)
	}
}

// CreateQuotationHandler opens a new quotation and dispatches the request
// email to the supplier. A failed dispatch leaves the quotation pending
// for a manual resend instead of failing the request.
// @Summary Create quotation
// @Description Opens a quotation and emails the supplier
// @Tags Quotations
// @Accept json
// @Produce json
// @Param request body models.CreateQuotationRequest true "Quotation to open"
// @Success 201 {object} models.Quotation
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/quotations [post]
func CreateQuotationHandler(st QuotationStore, mailer QuotationMailer, c *cache.Cache, logger zerolog.Logger) echo.HandlerFunc {
	return func(ec echo.Context) error {
		var req models.CreateQuotationRequest
		if err := ec.Bind(&req); err != nil {
			return ec.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body"})
		}
		if req.SupplierEmail == "" || len(req.Items) == 0 {
			return ec.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "supplier_email and items are required"})
		}

		ctx := ec.Request().Context()
		q := &models.Quotation{
			SupplierName:  req.SupplierName,
			SupplierEmail: req.SupplierEmail,
			Status:        models.StatusPending,
			Items:         req.Items,
		}

		if err := st.CreateQuotation(ctx, q); err != nil {
			logger.Error().Err(err).Msg("Failed to create quotation")
			return ec.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create quotation"})
		}
		appendAudit(ctx, st, logger, q.ID, models.ActionQuotationCreated, map[string]interface{}{
			"supplier_email": q.SupplierEmail,
			"item_count":     len(q.Items),
		})

		if err := mailer.SendQuotationRequest(q); err != nil {
			// Degrade to "cannot send": the quotation stays pending
			logger.Warn().Err(err).Str("quotation_id", q.ID).Msg("Failed to send quotation request email")
		} else if err := st.MarkSent(ctx, q.ID); err != nil {
			logger.Error().Err(err).Str("quotation_id", q.ID).Msg("Failed to mark quotation sent")
		} else {
			q.Status = models.StatusSent
			appendAudit(ctx, st, logger, q.ID, models.ActionEmailSent, map[string]interface{}{
				"supplier_email": q.SupplierEmail,
			})
		}

		c.Delete(quotationListCacheKey)

		return ec.JSON(http.StatusCreated, q)
	}
}

// AuditTrailHandler returns the audit trail for one quotation
// @Summary Quotation audit trail
// @Description Returns the append-only audit entries for a quotation
// @Tags Quotations
// @Produce json
// @Param id path string true "Quotation ID"
// @Success 200 {object} models.AuditTrailResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/quotations/{id}/audit [get]
func AuditTrailHandler(st QuotationStore) echo.HandlerFunc {
	return func(ec echo.Context) error {
		ctx := ec.Request().Context()
		id := ec.Param("id")

		if _, err := st.GetQuotation(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ec.JSON(http.StatusNotFound, models.ErrorResponse{Error: "quotation not found"})
			}
			return ec.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load quotation"})
		}

		entries, err := st.ListAudit(ctx, id, 200)
		if err != nil {
			return ec.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load audit trail"})
		}

		return ec.JSON(http.StatusOK, models.AuditTrailResponse{
			Entries: entries,
			Count:   len(entries),
		})
	}
}

func appendAudit(ctx context.Context, st QuotationStore, logger zerolog.Logger, quotationID, action string, fields map[string]interface{}) {
	detail, _ := json.Marshal(fields)
	entry := &models.AuditEntry{
		EntityType: models.EntityQuotation,
		EntityID:   quotationID,
		Action:     action,
		Detail:     string(detail),
	}
	if err := st.AppendAudit(ctx, entry); err != nil {
		logger.Error().Err(err).Str("quotation_id", quotationID).Str("action", action).Msg("Failed to append audit entry")
	}
}
