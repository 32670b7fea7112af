package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Collinsarusei/giftme-sub000/internal/adapters/security"
	"github.com/Collinsarusei/giftme-sub000/internal/application"
	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/google/uuid"
)

type contextKey string

const (
	actorKey     contextKey = "actor"
	requestIDKey contextKey = "request_id"

	operatorKeyHeader = "X-Operator-Key"
)

// BearerVerifier validates organizer bearer tokens.
type BearerVerifier interface {
	Verify(raw string) (security.Claims, error)
}

// OperatorAuthenticator resolves an operator API key to the operator id.
type OperatorAuthenticator interface {
	Authenticate(presented string) (string, error)
}

// WebhookVerifier checks a provider signature over the raw request body.
type WebhookVerifier interface {
	Verify(body []byte, signature string) error
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireClientRequestID rejects client mutations that arrive without their
// own request id. Provider webhooks are exempt.
func requireClientRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isMutatingMethod(r.Method) && strings.TrimSpace(r.Header.Get("X-Request-Id")) == "" {
			writeError(w, http.StatusBadRequest, "missing_request_id", "X-Request-Id is required for mutating operations", requestIDFromContext(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isMutatingMethod(method string) bool {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// authMiddleware accepts an operator key or an organizer bearer token. The
// operator key wins when both are present.
func authMiddleware(tokens BearerVerifier, operators OperatorAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := requestIDFromContext(r.Context())
			actor := application.Actor{
				RequestID:      requestID,
				IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
			}

			if key := strings.TrimSpace(r.Header.Get(operatorKeyHeader)); key != "" {
				if operators == nil {
					writeError(w, http.StatusUnauthorized, "unauthorized", "operator keys are not accepted", requestID)
					return
				}
				operatorID, err := operators.Authenticate(key)
				if err != nil {
					writeError(w, http.StatusUnauthorized, "unauthorized", "invalid operator key", requestID)
					return
				}
				actor.SubjectID = operatorID
				actor.Role = application.RoleOperator
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
				return
			}

			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token", requestID)
				return
			}
			raw := strings.TrimSpace(authHeader[len("bearer "):])
			if raw == "" || tokens == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "empty bearer token", requestID)
				return
			}
			claims, err := tokens.Verify(raw)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid bearer token", requestID)
				return
			}
			actor.SubjectID = claims.SubjectID
			actor.Role = strings.ToLower(strings.TrimSpace(claims.Role))
			if actor.Role == "" {
				actor.Role = application.RoleOrganizer
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
		})
	}
}

func operatorOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch actorFromContext(r.Context()).Role {
		case application.RoleOperator, application.RoleAdmin:
			next.ServeHTTP(w, r)
		default:
			writeError(w, http.StatusForbidden, "forbidden", "operator credentials required", requestIDFromContext(r.Context()))
		}
	})
}

// requireIdempotencyKey guards routes that move money. A retried request
// with the same key returns the payout the first one created.
func requireIdempotencyKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSpace(r.Header.Get("Idempotency-Key")) == "" {
			writeError(w, http.StatusBadRequest, "missing_idempotency_key", "Idempotency-Key is required for withdrawals", requestIDFromContext(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkoutRegistrar admits the checkout front end (system role) and operators.
func checkoutRegistrar(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch actorFromContext(r.Context()).Role {
		case application.RoleSystem, application.RoleOperator, application.RoleAdmin:
			next.ServeHTTP(w, r)
		default:
			writeError(w, http.StatusForbidden, "forbidden", "checkout registration requires service credentials", requestIDFromContext(r.Context()))
		}
	})
}

func actorFromContext(ctx context.Context) application.Actor {
	if value := ctx.Value(actorKey); value != nil {
		if actor, ok := value.(application.Actor); ok {
			return actor
		}
	}
	return application.Actor{}
}

func requestIDFromContext(ctx context.Context) string {
	if value := ctx.Value(requestIDKey); value != nil {
		if requestID, ok := value.(string); ok {
			return requestID
		}
	}
	return ""
}

func isSignatureError(err error) bool {
	return errors.Is(err, domain.ErrInvalidSignature) || errors.Is(err, domain.ErrUnauthorized)
}
