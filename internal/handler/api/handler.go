// Package api exposes the cart core as a JSON HTTP surface.
package api

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anbanon/verdana/internal/domain"
	"github.com/anbanon/verdana/internal/session"
)

// Handler wires the cart, merge, and checkout services to echo routes.
type Handler struct {
	carts     domain.CartService
	merges    domain.MergeService
	checkouts domain.CheckoutService
	sessions  *session.Manager
	logger    *slog.Logger

	// maxAddressLength bounds the encoded shipping address payload.
	maxAddressLength int
}

// NewHandler creates the API handler.
func NewHandler(
	carts domain.CartService,
	merges domain.MergeService,
	checkouts domain.CheckoutService,
	sessions *session.Manager,
	logger *slog.Logger,
	maxAddressLength int,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		carts:            carts,
		merges:           merges,
		checkouts:        checkouts,
		sessions:         sessions,
		logger:           logger,
		maxAddressLength: maxAddressLength,
	}
}

// Register mounts all cart routes on the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.Validator = NewValidator()

	g := e.Group("/api", h.sessions.Middleware())
	g.GET("/cart", h.ViewCart)
	g.POST("/cart/items", h.AddItem)
	g.PATCH("/cart/items/:id", h.AdjustItem)
	g.DELETE("/cart/items/:id", h.RemoveItem)
	g.DELETE("/cart", h.ClearCart)
	g.POST("/cart/merge", h.MergeCart)
	g.POST("/checkout", h.Checkout)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}
