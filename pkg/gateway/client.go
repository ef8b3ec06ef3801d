// Package gateway is the adapter for the external messaging channel. The
// channel is an opaque HTTP capability: this client normalizes the outbound
// payload, attaches the channel credential, and reports the delivery result.
// Calls are safe to retry; no state is assumed to survive between calls.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/edupulse/campus-messaging/environments"
	"github.com/edupulse/campus-messaging/internal/domain"
	"github.com/edupulse/campus-messaging/pkg/logger"
)

// credentialSource reads the opaque channel credential; empty string means
// no credential is configured.
type credentialSource interface {
	Get(ctx context.Context) (string, error)
}

type SendRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

type SendResponse struct {
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
}

type Client struct {
	httpClient  *resty.Client
	gatewayURL  string
	credentials credentialSource
}

func NewClient(cfg environments.GatewayConfig, credentials credentialSource) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient:  client,
		gatewayURL:  cfg.URL,
		credentials: credentials,
	}
}

// Send delivers one message body to one phone number. A non-nil error is
// always a *domain.DeliveryError so callers can record the failure kind
// against the recipient and drive the retry machine.
func (c *Client) Send(ctx context.Context, phone, body string) (*SendResponse, error) {
	credential, err := c.credentials.Get(ctx)
	if err != nil {
		return nil, &domain.DeliveryError{Kind: "transport", Err: fmt.Errorf("failed to read channel credential: %w", err)}
	}
	if credential == "" {
		return nil, &domain.DeliveryError{Kind: "rejected", Err: domain.ErrMissingChannelCredential}
	}

	payload := SendRequest{
		To:   phone,
		Body: body,
	}

	var sendResp SendResponse

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("x-channel-credential", credential).
		SetBody(payload).
		SetResult(&sendResp).
		Post(c.gatewayURL)

	duration := time.Since(startTime)

	if err != nil {
		return nil, &domain.DeliveryError{Kind: "transport", Err: err}
	}

	logger.Debugf("Gateway request to %s completed in %v (status: %d)", c.gatewayURL, duration, resp.StatusCode())

	if resp.StatusCode() != http.StatusAccepted {
		return nil, &domain.DeliveryError{
			Kind: "rejected",
			Err:  fmt.Errorf("unexpected status code: %d (expected 202), body: %s", resp.StatusCode(), resp.String()),
		}
	}

	return &sendResp, nil
}

func (c *Client) GetURL() string {
	return c.gatewayURL
}
