package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"courierbridge/internal/constants"
	"courierbridge/internal/httputil"
	"courierbridge/internal/middleware"
	"courierbridge/internal/models"
	"courierbridge/internal/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const processTimeout = 5 * time.Minute

type Server struct {
	router      *mux.Router
	logger      *logrus.Logger
	cfg         *models.Config
	events      *service.Router
	rateLimiter *RateLimiter
	server      *http.Server
}

func NewServer(cfg *models.Config, events *service.Router, logger *logrus.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: logger,
		cfg:    cfg,
		events: events,
		rateLimiter: NewRateLimiter(
			cfg.Server.RateLimitPerWindow,
			time.Duration(cfg.Server.RateLimitWindowSec)*time.Second,
		),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.ObservabilityMiddleware(s.logger))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	webhook := s.router.PathPrefix("/webhook").Subrouter()
	webhook.Use(middleware.WebhookObservabilityMiddleware(s.logger))
	webhook.HandleFunc("", s.handleWebhook()).Methods(http.MethodPost)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  constants.DefaultServerReadTimeoutSec * time.Second,
		WriteTimeout: constants.DefaultServerWriteTimeoutSec * time.Second,
		IdleTimeout:  constants.DefaultServerIdleTimeoutSec * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.cfg.Server.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// handleWebhook verifies the caller, acknowledges immediately, and
// hands the event to the router in the background. The provider never
// observes processing latency or outcome.
func (s *Server) handleWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := httputil.GetClientIP(r)
		if !s.rateLimiter.Allow(clientIP) {
			s.logger.WithField(service.LogFieldRemoteIP, clientIP).Warn("Webhook rate limit exceeded")
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}

		body, err := verifySignature(r, s.cfg.Server.WebhookSecret)
		if err != nil {
			s.logger.WithField(service.LogFieldRemoteIP, clientIP).
				WithError(err).Warn("Webhook signature verification failed")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var envelope models.WebhookEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			// Malformed JSON is acknowledged like any other payload;
			// the provider retries on errors and the body will not
			// improve on a retry.
			s.logger.WithError(err).Debug("Webhook body is not valid JSON")
			w.WriteHeader(http.StatusOK)
			return
		}

		w.WriteHeader(http.StatusOK)

		go s.processEvent(&envelope)
	}
}

func (s *Server) processEvent(envelope *models.WebhookEnvelope) {
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	event, ok := service.NormalizeEvent(envelope)
	if !ok {
		s.logger.WithField(service.LogFieldEvent, envelope.Event).
			Debug("Webhook payload carries no message envelope")
		return
	}

	s.events.HandleEvent(ctx, event)
}
