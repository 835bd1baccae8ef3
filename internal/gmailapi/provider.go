// Package gmailapi implements the mail provider surface over the Gmail
// REST API: watch registration, history delta resolution and message
// fetches for the purchasing mailbox.
package gmailapi

import (
	"context"
	"fmt"
	"time"

	"cotador/internal/config"
	"cotador/internal/mailbody"
	"cotador/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Provider is the mail provider surface consumed by the listener and the
// watch manager
type Provider interface {
	Watch(ctx context.Context) (historyID uint64, expiration time.Time, err error)
	Stop(ctx context.Context) error
	HistorySince(ctx context.Context, startHistoryID uint64, pageSize int64) (messageIDs []string, latestHistoryID uint64, err error)
	GetMessage(ctx context.Context, id string) (*models.InboundMessage, error)
}

// Client talks to the Gmail API for a single mailbox
type Client struct {
	svc    *gmail.Service
	user   string
	topic  string
	logger zerolog.Logger
}

// New builds a Gmail client from the configured OAuth refresh token. Token
// refresh happens lazily inside the HTTP transport; a refresh failure
// surfaces as a request error, degrading to "cannot receive" rather than
// crashing the process.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Client, error) {
	if !cfg.HasGmailCredentials() {
		return nil, fmt.Errorf("gmail credentials not configured: set GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REFRESH_TOKEN")
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}
	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GoogleRefreshToken})

	svc, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &Client{
		svc:    svc,
		user:   cfg.GmailUser,
		topic:  cfg.PubSubTopic,
		logger: logger,
	}, nil
}

// Watch registers (or re-registers) the push subscription for the mailbox.
// Gmail expires watches after about 7 days; callers renew proactively.
func (c *Client) Watch(ctx context.Context) (uint64, time.Time, error) {
	if c.topic == "" {
		return 0, time.Time{}, fmt.Errorf("PUBSUB_TOPIC not configured")
	}

	resp, err := c.svc.Users.Watch(c.user, &gmail.WatchRequest{
		TopicName: c.topic,
		LabelIds:  []string{"INBOX"},
	}).Context(ctx).Do()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("watch registration failed: %w", err)
	}

	expiration := time.UnixMilli(resp.Expiration)
	c.logger.Info().
		Uint64("history_id", resp.HistoryId).
		Time("expiration", expiration).
		Msg("Gmail watch registered")

	return resp.HistoryId, expiration, nil
}

// Stop tears down the push subscription
func (c *Client) Stop(ctx context.Context) error {
	if err := c.svc.Users.Stop(c.user).Context(ctx).Do(); err != nil {
		return fmt.Errorf("watch stop failed: %w", err)
	}
	return nil
}

// HistorySince resolves message-added events after the given history
// position, up to pageSize events. Returns the distinct new message ids
// and the latest history id observed, which becomes the next checkpoint.
func (c *Client) HistorySince(ctx context.Context, startHistoryID uint64, pageSize int64) ([]string, uint64, error) {
	resp, err := c.svc.Users.History.List(c.user).
		StartHistoryId(startHistoryID).
		HistoryTypes("messageAdded").
		MaxResults(pageSize).
		Context(ctx).Do()
	if err != nil {
		return nil, 0, fmt.Errorf("history list failed: %w", err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, h := range resp.History {
		for _, added := range h.MessagesAdded {
			if added.Message == nil || seen[added.Message.Id] {
				continue
			}
			seen[added.Message.Id] = true
			ids = append(ids, added.Message.Id)
		}
	}

	return ids, resp.HistoryId, nil
}

// GetMessage fetches one message and decodes it into the internal form
func (c *Client) GetMessage(ctx context.Context, id string) (*models.InboundMessage, error) {
	msg, err := c.svc.Users.Messages.Get(c.user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("message get failed for %s: %w", id, err)
	}

	out := &models.InboundMessage{
		ID:         msg.Id,
		ThreadID:   msg.ThreadId,
		Snippet:    msg.Snippet,
		ReceivedAt: time.UnixMilli(msg.InternalDate),
	}

	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch h.Name {
			case "From":
				out.From = h.Value
			case "Subject":
				out.Subject = h.Value
			}
		}
	}

	out.Body = mailbody.Decode(msg.Payload, msg.Snippet)

	return out, nil
}
