package handlers

import (
	"context"
	"encoding/base64"
	"net/http"

	"cotador/internal/listener"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Notifier is the listener surface the push endpoint needs
type Notifier interface {
	HandleNotification(ctx context.Context, n listener.Notification) error
}

// pubSubEnvelope is the Pub/Sub push wrapper. The payload shape is
// provider-defined; the Gmail notification sits base64-encoded in
// message.data.
type pubSubEnvelope struct {
	Message struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// GmailNotificationHandler receives Gmail push notifications via Pub/Sub.
// Malformed envelopes and inner payloads are acked with 204 so a poison
// message is not redelivered forever; only a failure to resolve the
// history delta returns an error status, which makes Pub/Sub retry the
// whole notification (safe: processing is idempotent per message id).
// @Summary Gmail push notification
// @Description Pub/Sub push endpoint for new-mail notifications
// @Tags Notifications
// @Accept json
// @Produce json
// @Success 204
// @Failure 502 {object} models.ErrorResponse
// @Router /api/notifications/gmail [post]
func GmailNotificationHandler(notifier Notifier, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var envelope pubSubEnvelope
		if err := c.Bind(&envelope); err != nil {
			// An unreadable envelope is as poisonous as an unreadable
			// inner payload; ack it so Pub/Sub stops redelivering
			logger.Warn().Err(err).Msg("Unreadable push envelope, dropping")
			return c.NoContent(http.StatusNoContent)
		}

		data, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
		if err != nil {
			logger.Warn().Err(err).Str("pubsub_message_id", envelope.Message.MessageID).
				Msg("Push data is not valid base64, dropping")
			return c.NoContent(http.StatusNoContent)
		}

		notification, err := listener.ParseNotification(data)
		if err != nil {
			logger.Warn().Err(err).Str("pubsub_message_id", envelope.Message.MessageID).
				Msg("Unparseable Gmail notification, dropping")
			return c.NoContent(http.StatusNoContent)
		}

		if err := notifier.HandleNotification(c.Request().Context(), notification); err != nil {
			logger.Error().Err(err).
				Uint64("history_id", notification.HistoryID).
				Msg("Failed to resolve notification delta")
			return echo.NewHTTPError(http.StatusBadGateway, "failed to resolve history delta")
		}

		return c.NoContent(http.StatusNoContent)
	}
}
