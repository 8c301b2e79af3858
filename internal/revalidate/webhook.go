package revalidate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const SecretHeader = "X-Revalidate-Secret"

// Webhook POSTs the signal as JSON to the public site's revalidation hook.
type Webhook struct {
	url    string
	secret string
	client *http.Client
}

func NewWebhook(url, secret string, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Webhook{url: url, secret: secret, client: client}
}

func (w *Webhook) Revalidate(ctx context.Context, sig Signal) error {
	body, err := Encode(sig)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build revalidate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.secret != "" {
		req.Header.Set(SecretHeader, w.secret)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("revalidate webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("revalidate webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}
