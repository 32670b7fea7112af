package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
	"github.com/stretchr/testify/require"
)

func newProvider(t *testing.T, handler http.HandlerFunc) *HTTPGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	gw, err := NewHTTPGateway(HTTPGatewayConfig{Name: "TransferHub", BaseURL: srv.URL, SecretKey: "sk_test"})
	require.NoError(t, err)
	return gw
}

func TestHTTPGatewayTransferFlow(t *testing.T) {
	gw := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/recipients":
			var body recipientRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "0712345678", body.AccountRef)
			_, _ = w.Write([]byte(`{"status":true,"data":{"recipient_token":"RCP_1"}}`))
		case "/transfers":
			var body transferRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, int64(950), body.Amount)
			require.Equal(t, "payout-1", body.Reference)
			_, _ = w.Write([]byte(`{"status":true,"message":"queued","data":{"transfer_ref":"TRF_1","status":"pending"}}`))
		default:
			http.NotFound(w, r)
		}
	})
	require.Equal(t, "transferhub", gw.Name())

	token, err := gw.CreateRecipient(context.Background(), "0712345678", "KES")
	require.NoError(t, err)
	require.Equal(t, "RCP_1", token)

	result, err := gw.InitiateTransfer(context.Background(), ports.TransferRequest{
		RecipientToken: token, Amount: 950, Currency: "KES", Reference: "payout-1",
	})
	require.NoError(t, err)
	require.True(t, result.Accepted)
	require.False(t, result.Settled)
	require.Equal(t, "TRF_1", result.TransferRef)
}

func TestHTTPGatewayClassifiesFailures(t *testing.T) {
	rejecting := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":false,"message":"invalid account"}`))
	})
	_, err := rejecting.CreateRecipient(context.Background(), "bad", "KES")
	require.ErrorIs(t, err, domain.ErrGatewayRejected)

	failing := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err = failing.InitiateTransfer(context.Background(), ports.TransferRequest{Amount: 1, Reference: "p"})
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)

	declined := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":true,"data":{"transfer_ref":"TRF_2","status":"failed"}}`))
	})
	_, err = declined.InitiateTransfer(context.Background(), ports.TransferRequest{Amount: 1, Reference: "p"})
	require.ErrorIs(t, err, domain.ErrGatewayRejected)
}

func TestHTTPGatewayUnrecognisedTransferStatusIsInFlight(t *testing.T) {
	for _, status := range []string{"received", "processing", ""} {
		status := status
		gw := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"status":true,"data":{"transfer_ref":"TRF_3","status":"` + status + `"}}`))
		})
		_, err := gw.InitiateTransfer(context.Background(), ports.TransferRequest{Amount: 1, Reference: "p"})
		require.ErrorIs(t, err, domain.ErrGatewayUnavailable, status)
		require.ErrorIs(t, err, ErrTransferInFlight, status)
		require.NotErrorIs(t, err, domain.ErrGatewayRejected, status)

		sandbox, err := NewSandboxFallback(gw, "sandbox", slog.New(slog.NewTextHandler(io.Discard, nil)))
		require.NoError(t, err)
		_, err = sandbox.InitiateTransfer(context.Background(), ports.TransferRequest{Amount: 1, Reference: "p"})
		require.ErrorIs(t, err, ErrTransferInFlight, status)
	}

	for _, status := range []string{"failed", "rejected", "abandoned", "blocked", "reversed"} {
		status := status
		gw := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"status":true,"data":{"transfer_ref":"TRF_4","status":"` + status + `"}}`))
		})
		_, err := gw.InitiateTransfer(context.Background(), ports.TransferRequest{Amount: 1, Reference: "p"})
		require.ErrorIs(t, err, domain.ErrGatewayRejected, status)
	}
}

func TestHTTPGatewayTimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	gw, err := NewHTTPGateway(HTTPGatewayConfig{
		Name:       "slow",
		BaseURL:    srv.URL,
		HTTPClient: &http.Client{Timeout: 20 * time.Millisecond},
	})
	require.NoError(t, err)
	_, err = gw.InitiateTransfer(context.Background(), ports.TransferRequest{Amount: 1, Reference: "p"})
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestSandboxFallback(t *testing.T) {
	failing := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := NewSandboxFallback(failing, "production", nil)
	require.Error(t, err)

	sandbox, err := NewSandboxFallback(failing, "sandbox", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	result, err := sandbox.InitiateTransfer(context.Background(), ports.TransferRequest{Amount: 10, Reference: "payout-9"})
	require.NoError(t, err)
	require.True(t, result.Settled)
	require.Equal(t, "SANDBOX-TRF-payout-9", result.TransferRef)

	rejecting := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"status":false,"message":"no"}`))
	})
	sandbox, err = NewSandboxFallback(rejecting, "development", nil)
	require.NoError(t, err)
	_, err = sandbox.CreateRecipient(context.Background(), "acct", "KES")
	require.ErrorIs(t, err, domain.ErrGatewayRejected)
}
