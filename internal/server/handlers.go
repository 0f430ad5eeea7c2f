// Package server provides HTTP handlers and server setup for the streaming gateway.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"warmstream/internal/core"
	"warmstream/internal/providers"
	"warmstream/internal/relay"
	"warmstream/internal/version"
)

// ProviderManager is the subset of the provider manager the handlers use.
type ProviderManager interface {
	Current() core.Provider
	Reconfigure(ctx context.Context, cfg core.ProviderConfig) error
}

// WarmupReporter reports whether the background warmup loop is running.
type WarmupReporter interface {
	Alive() bool
}

// Handler holds the HTTP handlers
type Handler struct {
	manager ProviderManager
	warmup  WarmupReporter // nil when warmup is disabled
}

// NewHandler creates a new handler. warmup may be nil if the warmup
// scheduler is disabled.
func NewHandler(manager ProviderManager, warmup WarmupReporter) *Handler {
	return &Handler{
		manager: manager,
		warmup:  warmup,
	}
}

func (h *Handler) warmupAlive() bool {
	return h.warmup != nil && h.warmup.Alive()
}

// Root handles GET /
func (h *Handler) Root(c echo.Context) error {
	providerName := "none"
	if p := h.manager.Current(); p != nil {
		providerName = p.Config().ProviderName
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":       "AI Streaming API",
		"version":       version.Version,
		"provider":      providerName,
		"warmup_active": h.warmupAlive(),
	})
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	provider := h.manager.Current()
	if provider == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"detail": "Provider not initialized",
		})
	}

	if !provider.ValidateConnection(c.Request().Context()) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"detail": "Provider connection failed",
		})
	}

	cfg := provider.Config()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"provider":      cfg.ProviderName,
		"model":         cfg.ModelID,
		"warmup_active": h.warmupAlive(),
	})
}

// ChatCompletion handles POST /v1/chat/completions
func (h *Handler) ChatCompletion(c echo.Context) error {
	var req core.StreamingRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}

	if err := req.Validate(); err != nil {
		return handleError(c, core.NewInvalidRequestError(err.Error(), err))
	}

	provider := h.manager.Current()
	if provider == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"detail": "Provider not initialized",
		})
	}

	events, err := provider.StreamCompletion(c.Request().Context(), &req)
	if err != nil {
		return handleError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	relay.Stream(c.Request().Context(), c.Response(), events)
	return nil
}

// Configure handles POST /v1/provider/configure
func (h *Handler) Configure(c echo.Context) error {
	var cfg core.ProviderConfig
	if err := c.Bind(&cfg); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}

	if err := h.manager.Reconfigure(c.Request().Context(), cfg); err != nil {
		return handleError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message":  "Provider configured successfully",
		"provider": cfg.ProviderName,
		"model":    cfg.ModelID,
	})
}

// ListProviders handles GET /v1/providers
func (h *Handler) ListProviders(c echo.Context) error {
	active := "none"
	if p := h.manager.Current(); p != nil {
		active = p.Config().ProviderName
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"providers": providers.ListRegistered(),
		"active":    active,
	})
}

// WarmupStatus handles GET /v1/warmup/status
func (h *Handler) WarmupStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"warmup_running": h.warmup != nil,
		"warmup_active":  h.warmupAlive(),
		"warmup_done":    h.warmup != nil && !h.warmup.Alive(),
		"info":           "Warmup requests keep the model container warm to reduce Time To First Token (TTFT)",
	})
}

// handleError converts gateway errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var gatewayErr *core.GatewayError
	if errors.As(err, &gatewayErr) {
		return c.JSON(gatewayErr.HTTPStatusCode(), gatewayErr.ToJSON())
	}

	// Fallback for unexpected errors
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
