package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Collinsarusei/giftme-sub000/internal/contracts"
	"github.com/Collinsarusei/giftme-sub000/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, contracts.SuccessResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	writeErrorDetails(w, status, code, message, requestID, nil)
}

func writeErrorDetails(w http.ResponseWriter, status int, code, message, requestID string, details interface{}) {
	writeJSON(w, status, contracts.ErrorResponse{
		Status: "error",
		Error: contracts.ErrorPayload{
			Code:      code,
			Message:   message,
			RequestID: requestID,
			Details:   details,
		},
	})
}

// writeDomainError maps err and writes the error envelope. Retryable gateway
// failures carry a Retry-After hint.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := mapDomainError(err)
	var details interface{}
	if domain.IsRetryable(err) {
		w.Header().Set("Retry-After", "30")
		details = map[string]bool{"retryable": true}
	}
	message := err.Error()
	if status == http.StatusInternalServerError && code == "internal_error" {
		message = "internal error"
	}
	writeErrorDetails(w, status, code, message, requestIDFromContext(r.Context()), details)
}

func mapDomainError(err error) (status int, code string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, domain.ErrPartialSettlement):
		return http.StatusInternalServerError, "partial_settlement"
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusUnauthorized, "invalid_signature"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrEventClosed):
		return http.StatusConflict, "event_closed"
	case errors.Is(err, domain.ErrIdempotencyConflict):
		return http.StatusConflict, "idempotency_conflict"
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrIllegalTransition):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, "insufficient_balance"
	case errors.Is(err, domain.ErrBelowMinimumPayout):
		return http.StatusUnprocessableEntity, "below_minimum_payout"
	case errors.Is(err, domain.ErrGatewayRejected):
		return http.StatusBadGateway, "gateway_rejected"
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable, "gateway_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
