package api

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anbanon/verdana/internal/domain"
	"github.com/anbanon/verdana/internal/session"
)

// shippingAddress mirrors the payload customers submit at checkout. The core
// treats the address as opaque; shape and length are enforced here, at the
// edge, and the raw payload travels through unchanged.
type shippingAddress struct {
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required,len=2"`
}

type checkoutRequest struct {
	ShippingAddress shippingAddress `json:"shipping_address"`
}

type checkoutResponse struct {
	OrderID              string  `json:"order_id"`
	OrderNumber          string  `json:"order_number"`
	TotalAmount          string  `json:"total_amount"`
	TotalCarbonFootprint float64 `json:"total_carbon_footprint"`
	Status               string  `json:"status"`
}

// Checkout handles POST /api/checkout.
func (h *Handler) Checkout(c echo.Context) error {
	const op = "api.checkout"

	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, h.logger, domain.Invalid(op, "Malformed request body"))
	}
	if err := c.Validate(&req.ShippingAddress); err != nil {
		return respondError(c, h.logger, err)
	}

	raw, err := json.Marshal(req.ShippingAddress)
	if err != nil {
		return respondError(c, h.logger, domain.Internal(err, op, "failed to encode address"))
	}
	if h.maxAddressLength > 0 && len(raw) > h.maxAddressLength {
		return respondError(c, h.logger,
			domain.NewValidationError(op, "shipping_address", "Address is too long"))
	}

	receipt, err := h.checkouts.Checkout(c.Request().Context(), session.Identity(c), raw)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, checkoutResponse{
		OrderID:              receipt.OrderID.String(),
		OrderNumber:          receipt.OrderNumber,
		TotalAmount:          receipt.TotalAmount.StringFixed(2),
		TotalCarbonFootprint: receipt.TotalCarbonFootprint,
		Status:               receipt.Status,
	})
}
