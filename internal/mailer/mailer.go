// Package mailer sends transactional mail (verification and reset codes)
// through the Brevo HTTP API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

type BrevoClient struct {
	apiURL     string
	apiKey     string
	fromEmail  string
	fromName   string
	httpClient *http.Client
	maxElapsed time.Duration
}

func NewBrevoClient(apiURL, apiKey, fromEmail, fromName string) *BrevoClient {
	return &BrevoClient{
		apiURL:     apiURL,
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		fromName:   fromName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxElapsed: 30 * time.Second,
	}
}

func (c *BrevoClient) IsConfigured() bool {
	return c.apiURL != "" && c.apiKey != "" && c.fromEmail != ""
}

type sendEmailReq struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

// Send posts the message, retrying transport errors and 5xx responses with
// exponential backoff. 4xx responses are not retried.
func (c *BrevoClient) Send(ctx context.Context, to, subject, html string) error {
	if !c.IsConfigured() {
		return errors.New("mailer not configured")
	}
	if to == "" || subject == "" || html == "" {
		return errors.New("recipient, subject and body are required")
	}

	body, err := json.Marshal(sendEmailReq{
		Sender:      map[string]string{"email": c.fromEmail, "name": c.fromName},
		To:          []map[string]string{{"email": to}},
		Subject:     subject,
		HTMLContent: html,
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("api-key", c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("mail api status %d: %s", resp.StatusCode, msg)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("mail api status %d: %s", resp.StatusCode, msg))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = c.maxElapsed
	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

// LogMailer stands in when no mail provider is configured: the message is
// logged instead of delivered.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{log: logger}
}

func (m *LogMailer) Send(_ context.Context, to, subject, _ string) error {
	m.log.Info("mail delivery skipped", zap.String("to", to), zap.String("subject", subject))
	return nil
}
