package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
)

// ErrTransferInFlight marks a transfer the provider took without reporting
// an outcome. Money may still move, so it must never be simulated or retried.
var ErrTransferInFlight = errors.New("transfer outcome not reported")

type HTTPGatewayConfig struct {
	Name       string
	BaseURL    string
	SecretKey  string
	HTTPClient *http.Client
}

// HTTPGateway talks to a transfer provider exposing a recipient endpoint and
// a transfer endpoint with JSON bodies and a bearer secret.
type HTTPGateway struct {
	name       string
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

type recipientRequest struct {
	AccountRef string `json:"account_ref"`
	Currency   string `json:"currency"`
}

type transferRequest struct {
	RecipientToken string `json:"recipient_token"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Reference      string `json:"reference"`
}

type providerResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type recipientData struct {
	RecipientToken string `json:"recipient_token"`
}

type transferData struct {
	TransferRef string `json:"transfer_ref"`
	Status      string `json:"status"`
}

func NewHTTPGateway(cfg HTTPGatewayConfig) (*HTTPGateway, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, fmt.Errorf("gateway name is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("gateway %s: base url is required", cfg.Name)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPGateway{
		name:       strings.ToLower(strings.TrimSpace(cfg.Name)),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		httpClient: httpClient,
	}, nil
}

func (g *HTTPGateway) Name() string { return g.name }

func (g *HTTPGateway) CreateRecipient(ctx context.Context, accountRef, currency string) (string, error) {
	var data recipientData
	if _, err := g.post(ctx, "/recipients", recipientRequest{AccountRef: accountRef, Currency: currency}, &data); err != nil {
		return "", err
	}
	if strings.TrimSpace(data.RecipientToken) == "" {
		return "", fmt.Errorf("%w: %s returned no recipient token", domain.ErrGatewayRejected, g.name)
	}
	return data.RecipientToken, nil
}

func (g *HTTPGateway) InitiateTransfer(ctx context.Context, req ports.TransferRequest) (ports.TransferResult, error) {
	var data transferData
	message, err := g.post(ctx, "/transfers", transferRequest{
		RecipientToken: req.RecipientToken,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Reference:      req.Reference,
	}, &data)
	if err != nil {
		return ports.TransferResult{}, err
	}
	result := ports.TransferResult{TransferRef: data.TransferRef, Message: message}
	switch strings.ToLower(data.Status) {
	case "success", "succeeded", "completed":
		result.Accepted = true
		result.Settled = true
	case "pending", "accepted", "queued", "otp":
		result.Accepted = true
	case "failed", "rejected", "abandoned", "blocked", "reversed":
		return ports.TransferResult{}, fmt.Errorf("%w: %s transfer status %q: %s", domain.ErrGatewayRejected, g.name, data.Status, message)
	default:
		return ports.TransferResult{}, fmt.Errorf("%w: %w: %s transfer %s status %q", domain.ErrGatewayUnavailable, ErrTransferInFlight, g.name, data.TransferRef, data.Status)
	}
	return result, nil
}

// post sends one JSON request. 4xx answers and status=false bodies are
// rejections; transport errors, timeouts and 5xx answers are unavailability.
func (g *HTTPGateway) post(ctx context.Context, path string, body any, out any) (string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", domain.ErrInvalidInput, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrGatewayUnavailable, g.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.secretKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.secretKey)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s %s: %v", domain.ErrGatewayUnavailable, g.name, path, describeTransportError(err))
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %s %s: read body: %v", domain.ErrGatewayUnavailable, g.name, path, err)
	}
	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("%w: %s %s returned %d", domain.ErrGatewayUnavailable, g.name, path, resp.StatusCode)
	}
	var envelope providerResponse
	if err := json.Unmarshal(payload, &envelope); err != nil {
		if resp.StatusCode >= 400 {
			return "", fmt.Errorf("%w: %s %s returned %d", domain.ErrGatewayRejected, g.name, path, resp.StatusCode)
		}
		return "", fmt.Errorf("%w: %s %s: decode body: %v", domain.ErrGatewayUnavailable, g.name, path, err)
	}
	if resp.StatusCode >= 400 || !envelope.Status {
		return "", fmt.Errorf("%w: %s %s returned %d: %s", domain.ErrGatewayRejected, g.name, path, resp.StatusCode, envelope.Message)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return "", fmt.Errorf("%w: %s %s: decode data: %v", domain.ErrGatewayUnavailable, g.name, path, err)
		}
	}
	return envelope.Message, nil
}

func describeTransportError(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return err.Error()
}

var _ ports.PayoutGateway = (*HTTPGateway)(nil)
