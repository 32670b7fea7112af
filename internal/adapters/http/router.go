package http

import (
	"log/slog"
	"net/http"

	"github.com/Collinsarusei/giftme-sub000/internal/application"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Webhooks holds one signature verifier per inbound channel. A channel
// without a verifier rejects every delivery.
type Webhooks struct {
	Card   WebhookVerifier
	Push   WebhookVerifier
	Payout WebhookVerifier
}

type Handler struct {
	service  *application.Service
	logger   *slog.Logger
	webhooks Webhooks
}

func NewHandler(service *application.Service, logger *slog.Logger, webhooks Webhooks) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger, webhooks: webhooks}
}

type Auth struct {
	Tokens    BearerVerifier
	Operators OperatorAuthenticator
}

// ReadinessCheck reports whether backing stores are reachable.
type ReadinessCheck func(r *http.Request) error

func NewRouter(handler *Handler, auth Auth, ready ReadinessCheck) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP, middleware.Recoverer, requestIDMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r); err != nil {
				writeError(w, http.StatusServiceUnavailable, "not_ready", err.Error(), requestIDFromContext(r.Context()))
				return
			}
		}
		writeSuccess(w, http.StatusOK, "ready", nil)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/card", handler.cardWebhook)
			r.Post("/push", handler.pushWebhook)
			r.Post("/payouts", handler.payoutWebhook)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireClientRequestID, authMiddleware(auth.Tokens, auth.Operators))
			r.Get("/events/{id}/balance", handler.getEventBalance)
			r.Get("/events/{id}/gifts", handler.listEventGifts)
			r.Get("/events/{id}/payouts", handler.listEventPayouts)
			r.With(requireIdempotencyKey).Post("/events/{id}/withdrawals", handler.withdrawEventFunds)
			r.Get("/payouts/{id}", handler.getPayout)

			r.With(checkoutRegistrar).Post("/payments/pending", handler.registerPendingPayment)

			r.Group(func(r chi.Router) {
				r.Use(operatorOnly)
				r.With(requireIdempotencyKey).Post("/platform-fees/withdrawals", handler.withdrawPlatformFees)
				r.With(requireIdempotencyKey).Post("/developer-gifts/withdrawals", handler.withdrawDeveloperGifts)
				r.Post("/admin/payouts/{id}/release", handler.releasePayout)
				r.Put("/internal/events/{id}", handler.upsertEvent)
			})
		})
	})
	return r
}
