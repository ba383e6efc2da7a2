package wa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lumenisp/panel/pkg/logger"
)

// Sender is the messaging capability the rest of the application consumes:
// deliver one text to one WhatsApp JID.
type Sender interface {
	Send(ctx context.Context, jid, text string) error
}

// GatewayClient talks to an external WhatsApp gateway over HTTP.
type GatewayClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *logger.Logger
}

func NewGateway(baseURL, token string, log *logger.Logger) *GatewayClient {
	return &GatewayClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  log,
	}
}

type sendRequest struct {
	JID  string `json:"jid"`
	Text string `json:"text"`
}

func (g *GatewayClient) Send(ctx context.Context, jid, text string) error {
	body, err := json.Marshal(sendRequest{JID: jid, Text: text})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway send: status %d", resp.StatusCode)
	}
	return nil
}

// Noop is used when no gateway is configured; sends are logged and dropped.
type Noop struct {
	Logger *logger.Logger
}

func (n Noop) Send(_ context.Context, jid, text string) error {
	n.Logger.Warn("WhatsApp gateway not configured, message dropped", "jid", jid, "length", len(text))
	return nil
}
