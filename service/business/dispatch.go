package business

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pitabwire/util"
	"github.com/pkg/errors"
)

// CodeSender delivers a one time code to its target. Delivery is an
// external concern; implementations are only specified at this boundary.
type CodeSender interface {
	SendCode(ctx context.Context, target, memo, code string) error
}

// WebhookCodeSender posts codes to the notification service's delivery
// endpoint.
type WebhookCodeSender struct {
	endpoint   string
	httpClient *http.Client
}

// NewWebhookCodeSender creates a sender against the given delivery endpoint.
func NewWebhookCodeSender(endpoint string, httpClient *http.Client) *WebhookCodeSender {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &WebhookCodeSender{
		endpoint:   endpoint,
		httpClient: httpClient,
	}
}

func (s *WebhookCodeSender) SendCode(ctx context.Context, target, memo, code string) error {

	body, err := json.Marshal(map[string]string{
		"target": target,
		"memo":   memo,
		"code":   code,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		util.Log(ctx).WithError(err).Error("code delivery endpoint unreachable")
		return errors.WithStack(err)
	}
	defer util.CloseAndLogOnError(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("code delivery replied %s", resp.Status)
	}

	return nil
}
