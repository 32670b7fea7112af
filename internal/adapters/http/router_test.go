package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Collinsarusei/giftme-sub000/internal/adapters/events"
	"github.com/Collinsarusei/giftme-sub000/internal/adapters/memory"
	"github.com/Collinsarusei/giftme-sub000/internal/adapters/security"
	"github.com/Collinsarusei/giftme-sub000/internal/application"
	"github.com/Collinsarusei/giftme-sub000/internal/contracts"
	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testJWTSecret     = "0123456789abcdef0123456789abcdef"
	testIssuer        = "identity"
	testWebhookSecret = "whsec_test"
)

type settlingGateway struct {
	calls int
}

func (g *settlingGateway) Name() string { return "fake" }

func (g *settlingGateway) CreateRecipient(context.Context, string, string) (string, error) {
	g.calls++
	return "RCP-1", nil
}

func (g *settlingGateway) InitiateTransfer(_ context.Context, req ports.TransferRequest) (ports.TransferResult, error) {
	g.calls++
	return ports.TransferResult{Accepted: true, Settled: true, TransferRef: "TRF-" + req.Reference}, nil
}

type testServer struct {
	server  *httptest.Server
	signer  *security.SignatureVerifier
	gateway *settlingGateway
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithWebhooks(t, func(v WebhookVerifier) Webhooks {
		return Webhooks{Card: v, Push: v, Payout: v}
	})
}

func newTestServerWithWebhooks(t *testing.T, webhooks func(WebhookVerifier) Webhooks) *testServer {
	t.Helper()
	repos := memory.NewRepositories()
	gateway := &settlingGateway{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := application.NewService(application.Dependencies{
		Config: application.Config{
			PlatformFeeBps:  300,
			DefaultCurrency: "KES",
			TransferFees:    map[string]int64{"fake": 20},
		},
		Logger:         logger,
		Events:         repos.Events,
		Gifts:          repos.Gifts,
		Fees:           repos.Fees,
		DeveloperGifts: repos.DeveloperGifts,
		Payouts:        repos.Payouts,
		Outbox:         repos.Outbox,
		Pending:        repos.Pending,
		Idempotency:    repos.Idempotency,
		Gateways:       []ports.PayoutGateway{gateway},
		Alerts:         events.NewMemoryAlerter(),
	})
	now := time.Now().UTC()
	_, err := repos.Events.Upsert(context.Background(), domain.Event{
		EventID:     "evt-1",
		OrganizerID: "org-1",
		Currency:    "KES",
		Status:      domain.EventStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)

	signer, err := security.NewSHA512Verifier(testWebhookSecret)
	require.NoError(t, err)
	tokens, err := security.NewHS256Verifier(testJWTSecret, testIssuer)
	require.NoError(t, err)
	hash, err := security.HashOperatorSecret("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	keyring, err := security.NewOperatorKeyring([]string{"ops:" + hash})
	require.NoError(t, err)

	handler := NewHandler(service, logger, webhooks(signer))
	server := httptest.NewServer(NewRouter(handler, Auth{Tokens: tokens, Operators: keyring}, nil))
	t.Cleanup(server.Close)
	return &testServer{server: server, signer: signer, gateway: gateway}
}

func organizerToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": "organizer",
		"iss":  testIssuer,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return raw
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req, err := http.NewRequest(method, s.server.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (s *testServer) postWebhook(t *testing.T, path string, body any, signature string) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	if signature == "" {
		signature = s.signer.Sign(raw)
	}
	req, err := http.NewRequest(http.MethodPost, s.server.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set(signatureHeader, signature)
	resp, err := s.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func cardNotification(ref string, amount int64) contracts.PaymentNotification {
	return contracts.PaymentNotification{
		TransactionRef: ref,
		GrossAmount:    amount,
		Currency:       "KES",
		Status:         "success",
		Metadata:       contracts.PaymentMetadata{EventID: "evt-1", PayerName: "Amina"},
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	resp, body := s.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "success", body["status"])
	require.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestCardWebhookRecordsOnceAndAcknowledgesReplay(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.postWebhook(t, "/v1/webhooks/card", cardNotification("card-1", 1000), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "recorded", body["message"])

	resp, body = s.postWebhook(t, "/v1/webhooks/card", cardNotification("card-1", 1000), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "duplicate", body["message"])

	resp, body = s.do(t, http.MethodGet, "/v1/events/evt-1/balance", nil, map[string]string{
		"Authorization": "Bearer " + organizerToken(t, "org-1"),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	require.EqualValues(t, 1000, data["raised_total"])
	require.EqualValues(t, 1, data["gift_count"])
	require.EqualValues(t, 970, data["eligible_amount"])
}

func TestCardWebhookRejectsBadSignature(t *testing.T) {
	s := newTestServer(t)
	resp, body := s.postWebhook(t, "/v1/webhooks/card", cardNotification("card-2", 1000), "deadbeef")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid_signature", body["error"].(map[string]any)["code"])
}

func TestWithdrawalFlow(t *testing.T) {
	s := newTestServer(t)
	resp, _ := s.postWebhook(t, "/v1/webhooks/card", cardNotification("card-3", 1000), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	headers := map[string]string{
		"Authorization":   "Bearer " + organizerToken(t, "org-1"),
		"X-Request-Id":    "req-1",
		"Idempotency-Key": "wd-1",
	}
	resp, body := s.do(t, http.MethodPost, "/v1/events/evt-1/withdrawals", contracts.WithdrawRequest{AccountRef: "0712345678"}, headers)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]any)
	require.Equal(t, "succeeded", data["status"])
	require.EqualValues(t, 970, data["covered_amount"])
	require.EqualValues(t, 950, data["net_amount"])
	payoutID := data["payout_id"]

	// A retry with the same key returns the first payout without a transfer.
	calls := s.gateway.calls
	headers["X-Request-Id"] = "req-1b"
	resp, body = s.do(t, http.MethodPost, "/v1/events/evt-1/withdrawals", contracts.WithdrawRequest{AccountRef: "0712345678"}, headers)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, payoutID, body["data"].(map[string]any)["payout_id"])
	require.Equal(t, calls, s.gateway.calls)

	headers["X-Request-Id"] = "req-1c"
	resp, body = s.do(t, http.MethodPost, "/v1/events/evt-1/withdrawals", contracts.WithdrawRequest{AccountRef: "0799999999"}, headers)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "idempotency_conflict", body["error"].(map[string]any)["code"])

	headers["X-Request-Id"] = "req-2"
	headers["Idempotency-Key"] = "wd-2"
	resp, body = s.do(t, http.MethodPost, "/v1/events/evt-1/withdrawals", contracts.WithdrawRequest{Amount: 5000, AccountRef: "0712345678"}, headers)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "insufficient_balance", body["error"].(map[string]any)["code"])
	require.Equal(t, calls, s.gateway.calls)
}

func TestWithdrawalRequiresOwnershipAndRequestID(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodPost, "/v1/events/evt-1/withdrawals", contracts.WithdrawRequest{AccountRef: "x"}, map[string]string{
		"Authorization": "Bearer " + organizerToken(t, "org-1"),
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := s.do(t, http.MethodPost, "/v1/events/evt-1/withdrawals", contracts.WithdrawRequest{AccountRef: "x"}, map[string]string{
		"Authorization": "Bearer " + organizerToken(t, "org-1"),
		"X-Request-Id":  "req-3a",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "missing_idempotency_key", body["error"].(map[string]any)["code"])

	resp, body = s.do(t, http.MethodPost, "/v1/events/evt-1/withdrawals", contracts.WithdrawRequest{AccountRef: "x"}, map[string]string{
		"Authorization":   "Bearer " + organizerToken(t, "someone-else"),
		"X-Request-Id":    "req-3",
		"Idempotency-Key": "wd-3",
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "forbidden", body["error"].(map[string]any)["code"])

	resp, _ = s.do(t, http.MethodGet, "/v1/events/evt-1/balance", nil, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOperatorRoutes(t *testing.T) {
	s := newTestServer(t)
	resp, _ := s.postWebhook(t, "/v1/webhooks/card", cardNotification("card-4", 1000), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/v1/platform-fees/withdrawals", contracts.WithdrawRequest{AccountRef: "ops-acct"}, map[string]string{
		"Authorization":   "Bearer " + organizerToken(t, "org-1"),
		"X-Request-Id":    "req-4",
		"Idempotency-Key": "fees-1",
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/v1/platform-fees/withdrawals", contracts.WithdrawRequest{AccountRef: "ops-acct"}, map[string]string{
		operatorKeyHeader: "ops.wrong",
		"X-Request-Id":    "req-5",
		"Idempotency-Key": "fees-1",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := s.do(t, http.MethodPost, "/v1/platform-fees/withdrawals", contracts.WithdrawRequest{AccountRef: "ops-acct"}, map[string]string{
		operatorKeyHeader: "ops.s3cret",
		"X-Request-Id":    "req-6",
		"Idempotency-Key": "fees-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]any)
	require.EqualValues(t, 30, data["covered_amount"])
	require.EqualValues(t, 10, data["net_amount"])

	resp, body = s.do(t, http.MethodPut, "/v1/internal/events/evt-2", contracts.UpsertEventRequest{
		OrganizerID: "org-2",
		Currency:    "kes",
	}, map[string]string{
		operatorKeyHeader: "ops.s3cret",
		"X-Request-Id":    "req-7",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "KES", body["data"].(map[string]any)["currency"])
}

func TestPendingRegistrationRequiresServiceCredentials(t *testing.T) {
	s := newTestServer(t)
	req := contracts.RegisterPendingPaymentRequest{CheckoutRef: "ws_CO_9", EventID: "evt-1", Amount: 500, Currency: "KES"}

	resp, _ := s.do(t, http.MethodPost, "/v1/payments/pending", req, map[string]string{"X-Request-Id": "req-10"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/v1/payments/pending", req, map[string]string{
		"Authorization": "Bearer " + organizerToken(t, "org-1"),
		"X-Request-Id":  "req-11",
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/v1/payments/pending", req, map[string]string{
		operatorKeyHeader: "ops.s3cret",
		"X-Request-Id":    "req-12",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := s.postWebhook(t, "/v1/webhooks/push", contracts.PushCallback{CheckoutRef: "ws_CO_9", TransactionRef: "QK1", Amount: 50_000_000}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_input", body["error"].(map[string]any)["code"])

	resp, body = s.postWebhook(t, "/v1/webhooks/push", contracts.PushCallback{CheckoutRef: "ws_CO_9", TransactionRef: "QK1", Amount: 500}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "recorded", body["message"])
}

func TestPushWebhookWithoutVerifierRejectsEverything(t *testing.T) {
	s := newTestServerWithWebhooks(t, func(v WebhookVerifier) Webhooks {
		return Webhooks{Card: v, Payout: v}
	})
	resp, _ := s.do(t, http.MethodPost, "/v1/payments/pending", contracts.RegisterPendingPaymentRequest{
		CheckoutRef: "ws_CO_10", EventID: "evt-1", Amount: 500, Currency: "KES",
	}, map[string]string{operatorKeyHeader: "ops.s3cret", "X-Request-Id": "req-13"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := s.do(t, http.MethodPost, "/v1/webhooks/push", contracts.PushCallback{CheckoutRef: "ws_CO_10", TransactionRef: "QK2", Amount: 50_000_000}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid_signature", body["error"].(map[string]any)["code"])

	resp, body = s.do(t, http.MethodGet, "/v1/events/evt-1/balance", nil, map[string]string{
		"Authorization": "Bearer " + organizerToken(t, "org-1"),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 0, body["data"].(map[string]any)["raised_total"])
}

func TestPayoutWebhookUnknownTransfer(t *testing.T) {
	s := newTestServer(t)
	resp, body := s.postWebhook(t, "/v1/webhooks/payouts", contracts.PayoutCallback{TransferRef: "TRF-missing", Outcome: "success"}, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "not_found", body["error"].(map[string]any)["code"])
}

func TestMapDomainErrorWrappedSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrInsufficientBalance, http.StatusUnprocessableEntity, "insufficient_balance"},
		{fmt.Errorf("%w: reused", domain.ErrIdempotencyConflict), http.StatusConflict, "idempotency_conflict"},
		{&domain.PartialSettlementError{PayoutID: "p", Cause: domain.ErrConflict}, http.StatusInternalServerError, "partial_settlement"},
		{domain.ErrGatewayUnavailable, http.StatusServiceUnavailable, "gateway_unavailable"},
		{domain.ErrEventClosed, http.StatusConflict, "event_closed"},
	}
	for _, tc := range cases {
		status, code := mapDomainError(tc.err)
		require.Equal(t, tc.status, status, tc.err.Error())
		require.Equal(t, tc.code, code)
	}
}
