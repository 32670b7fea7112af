package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Collinsarusei/giftme-sub000/internal/application"
	"github.com/Collinsarusei/giftme-sub000/internal/contracts"
	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
	"github.com/go-chi/chi/v5"
)

const (
	signatureHeader = "X-Gateway-Signature"
	maxWebhookBody  = 1 << 20
)

func (h *Handler) cardWebhook(w http.ResponseWriter, r *http.Request) {
	var n contracts.PaymentNotification
	if !h.readSignedBody(w, r, h.webhooks.Card, &n) {
		return
	}
	result, err := h.service.RecordCardPayment(r.Context(), n)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, ingestMessage(result), result)
}

func (h *Handler) pushWebhook(w http.ResponseWriter, r *http.Request) {
	var cb contracts.PushCallback
	if !h.readSignedBody(w, r, h.webhooks.Push, &cb) {
		return
	}
	result, err := h.service.RecordPushCallback(r.Context(), cb)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, ingestMessage(result), result)
}

func (h *Handler) payoutWebhook(w http.ResponseWriter, r *http.Request) {
	var cb contracts.PayoutCallback
	if !h.readSignedBody(w, r, h.webhooks.Payout, &cb) {
		return
	}
	result, err := h.service.HandlePayoutCallback(r.Context(), cb)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	message := ""
	if result.Duplicate {
		message = "duplicate"
	}
	writeSuccess(w, http.StatusOK, message, result)
}

// readSignedBody verifies the provider signature over the exact bytes
// received and only then decodes them into out.
func (h *Handler) readSignedBody(w http.ResponseWriter, r *http.Request, verifier WebhookVerifier, out any) bool {
	requestID := requestIDFromContext(r.Context())
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "invalid_body", "webhook body could not be read", requestID)
		return false
	}
	if verifier == nil {
		writeError(w, http.StatusUnauthorized, "invalid_signature", "webhook verification is not configured", requestID)
		return false
	}
	if err := verifier.Verify(body, strings.TrimSpace(r.Header.Get(signatureHeader))); err != nil {
		h.logger.WarnContext(r.Context(), "webhook signature rejected",
			"module", "adapters.http",
			"layer", "adapter",
			"operation", "verify_webhook",
			"outcome", "rejected",
			"path", r.URL.Path,
			"request_id", requestID,
		)
		if isSignatureError(err) {
			writeError(w, http.StatusUnauthorized, "invalid_signature", "invalid webhook signature", requestID)
		} else {
			writeDomainError(w, r, err)
		}
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestID)
		return false
	}
	return true
}

func ingestMessage(result application.IngestResult) string {
	switch {
	case result.Duplicate:
		return "duplicate"
	case result.Ignored:
		return "ignored"
	default:
		return "recorded"
	}
}

func (h *Handler) registerPendingPayment(w http.ResponseWriter, r *http.Request) {
	var req contracts.RegisterPendingPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	payment, err := h.service.RegisterPendingPayment(r.Context(), actorFromContext(r.Context()), application.RegisterPendingInput{
		CheckoutRef: req.CheckoutRef,
		EventID:     req.EventID,
		Kind:        strings.ToLower(strings.TrimSpace(req.Kind)),
		PayerName:   req.PayerName,
		PayerEmail:  req.PayerEmail,
		Message:     req.Message,
		Amount:      req.Amount,
		Currency:    req.Currency,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "", payment)
}

func (h *Handler) upsertEvent(w http.ResponseWriter, r *http.Request) {
	var req contracts.UpsertEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	event, err := h.service.UpsertEvent(r.Context(), actorFromContext(r.Context()), application.UpsertEventInput{
		EventID:     chi.URLParam(r, "id"),
		OrganizerID: strings.TrimSpace(req.OrganizerID),
		Title:       strings.TrimSpace(req.Title),
		Currency:    req.Currency,
		Status:      domain.EventStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", event)
}

func (h *Handler) getEventBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.service.GetEventBalance(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", balance)
}

func (h *Handler) listEventGifts(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListEventGifts(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"), pageQuery(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]interface{}{
		"items":      page.Items,
		"pagination": page.Pagination,
	})
}

func (h *Handler) listEventPayouts(w http.ResponseWriter, r *http.Request) {
	query := pageQuery(r)
	items, total, err := h.service.ListEventPayouts(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"), query)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if query.Limit <= 0 || query.Limit > 200 {
		query.Limit = 50
	}
	writeSuccess(w, http.StatusOK, "", map[string]interface{}{
		"items": items,
		"pagination": contracts.Pagination{
			Limit:  query.Limit,
			Offset: query.Offset,
			Total:  total,
		},
	})
}

func (h *Handler) withdrawEventFunds(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeWithdrawal(w, r)
	if !ok {
		return
	}
	payout, err := h.service.WithdrawEventFunds(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"), input)
	h.writeWithdrawal(w, r, payout, err)
}

func (h *Handler) withdrawPlatformFees(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeWithdrawal(w, r)
	if !ok {
		return
	}
	payout, err := h.service.WithdrawPlatformFees(r.Context(), actorFromContext(r.Context()), input)
	h.writeWithdrawal(w, r, payout, err)
}

func (h *Handler) withdrawDeveloperGifts(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeWithdrawal(w, r)
	if !ok {
		return
	}
	payout, err := h.service.WithdrawDeveloperGifts(r.Context(), actorFromContext(r.Context()), input)
	h.writeWithdrawal(w, r, payout, err)
}

func decodeWithdrawal(w http.ResponseWriter, r *http.Request) (application.WithdrawInput, bool) {
	var req contracts.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return application.WithdrawInput{}, false
	}
	return application.WithdrawInput{
		MaxAmount:  req.Amount,
		Currency:   strings.TrimSpace(req.Currency),
		Gateway:    strings.ToLower(strings.TrimSpace(req.Gateway)),
		AccountRef: strings.TrimSpace(req.AccountRef),
	}, true
}

func (h *Handler) writeWithdrawal(w http.ResponseWriter, r *http.Request, payout domain.Payout, err error) {
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	status := http.StatusCreated
	if payout.Status == domain.PayoutStatusAccepted {
		status = http.StatusAccepted
	}
	writeSuccess(w, status, "", contracts.WithdrawalResponse{
		PayoutID:      payout.PayoutID,
		Status:        string(payout.Status),
		CoveredAmount: payout.CoveredAmount,
		TransferFee:   payout.TransferFee,
		NetAmount:     payout.NetAmount,
		TransferRef:   payout.TransferRef,
		RecordCount:   len(payout.RecordIDs),
	})
}

func (h *Handler) getPayout(w http.ResponseWriter, r *http.Request) {
	payout, err := h.service.GetPayout(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", payout)
}

func (h *Handler) releasePayout(w http.ResponseWriter, r *http.Request) {
	var req contracts.ReleasePayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	payout, err := h.service.ReleasePayout(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", payout)
}

func pageQuery(r *http.Request) ports.PageQuery {
	return ports.PageQuery{
		Limit:  parseIntOrDefault(r.URL.Query().Get("limit"), 50),
		Offset: parseIntOrDefault(r.URL.Query().Get("offset"), 0),
	}
}

func parseIntOrDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
