package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/anbanon/verdana/internal/domain"
	"github.com/anbanon/verdana/internal/session"
)

// =============================================================================
// RESPONSE SHAPES
// =============================================================================

type productResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Price           string  `json:"price"`
	CarbonFootprint float64 `json:"carbon_footprint"`
}

type itemResponse struct {
	ID                  string          `json:"id"`
	Product             productResponse `json:"product"`
	Quantity            int32           `json:"quantity"`
	LineTotal           string          `json:"line_total"`
	LineCarbonFootprint float64         `json:"line_carbon_footprint"`
}

type cartResponse struct {
	ID                   string         `json:"id"`
	TotalItems           int32          `json:"total_items"`
	TotalPrice           string         `json:"total_price"`
	TotalCarbonFootprint float64        `json:"total_carbon_footprint"`
	Items                []itemResponse `json:"items"`
}

type mergeResponse struct {
	Cart     cartResponse `json:"cart"`
	Warnings []string     `json:"warnings"`
}

func toCartResponse(summary *domain.CartSummary) cartResponse {
	resp := cartResponse{
		ID:                   summary.Cart.ID.String(),
		TotalItems:           summary.TotalItems,
		TotalPrice:           summary.TotalPrice.StringFixed(2),
		TotalCarbonFootprint: summary.TotalCarbonFootprint,
		Items:                make([]itemResponse, 0, len(summary.Items)),
	}
	for _, item := range summary.Items {
		resp.Items = append(resp.Items, itemResponse{
			ID: item.ID.String(),
			Product: productResponse{
				ID:              item.ProductID.String(),
				Name:            item.ProductName,
				Price:           item.UnitPrice.StringFixed(2),
				CarbonFootprint: item.CarbonFootprint,
			},
			Quantity:            item.Quantity,
			LineTotal:           item.LineTotal.StringFixed(2),
			LineCarbonFootprint: item.LineCarbon,
		})
	}
	return resp
}

// =============================================================================
// CART ROUTES
// =============================================================================

// resolveCart resolves the request identity to its cart.
func (h *Handler) resolveCart(c echo.Context) (*domain.Cart, error) {
	return h.carts.Resolve(c.Request().Context(), session.Identity(c))
}

// summaryResponse re-reads the cart summary and writes it with the given
// status code.
func (h *Handler) summaryResponse(c echo.Context, cartID uuid.UUID, status int) error {
	summary, err := h.carts.Summary(c.Request().Context(), cartID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(status, toCartResponse(summary))
}

// ViewCart handles GET /api/cart.
func (h *Handler) ViewCart(c echo.Context) error {
	cart, err := h.resolveCart(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return h.summaryResponse(c, cart.ID, http.StatusOK)
}

// AddItem handles POST /api/cart/items.
func (h *Handler) AddItem(c echo.Context) error {
	var req struct {
		ProductID string `json:"product_id" validate:"required,uuid"`
		Quantity  int    `json:"quantity" validate:"required,min=1"`
	}
	if err := c.Bind(&req); err != nil {
		return respondError(c, h.logger, domain.Invalid("api.add_item", "Malformed request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, h.logger, err)
	}
	productID, _ := uuid.Parse(req.ProductID)

	cart, err := h.resolveCart(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if _, err := h.carts.AddItem(c.Request().Context(), cart.ID, productID, req.Quantity); err != nil {
		return respondError(c, h.logger, err)
	}
	return h.summaryResponse(c, cart.ID, http.StatusCreated)
}

// AdjustItem handles PATCH /api/cart/items/:id. The body carries a signed
// delta, not an absolute quantity.
func (h *Handler) AdjustItem(c echo.Context) error {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondError(c, h.logger, domain.NewValidationError("api.adjust_item", "id", "Must be a valid UUID"))
	}

	var req struct {
		Delta int `json:"delta" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return respondError(c, h.logger, domain.Invalid("api.adjust_item", "Malformed request body"))
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, h.logger, err)
	}

	cart, err := h.resolveCart(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if _, err := h.carts.AdjustItem(c.Request().Context(), cart.ID, itemID, req.Delta); err != nil {
		return respondError(c, h.logger, err)
	}
	return h.summaryResponse(c, cart.ID, http.StatusOK)
}

// RemoveItem handles DELETE /api/cart/items/:id.
func (h *Handler) RemoveItem(c echo.Context) error {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondError(c, h.logger, domain.NewValidationError("api.remove_item", "id", "Must be a valid UUID"))
	}

	cart, err := h.resolveCart(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if err := h.carts.RemoveItem(c.Request().Context(), cart.ID, itemID); err != nil {
		return respondError(c, h.logger, err)
	}
	return h.summaryResponse(c, cart.ID, http.StatusOK)
}

// ClearCart handles DELETE /api/cart.
func (h *Handler) ClearCart(c echo.Context) error {
	cart, err := h.resolveCart(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if err := h.carts.Clear(c.Request().Context(), cart.ID); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MergeCart handles POST /api/cart/merge. It requires an authenticated
// request; the anonymous cart is located through the prior-token cookie the
// session middleware preserved at login.
func (h *Handler) MergeCart(c echo.Context) error {
	identity := session.Identity(c)
	if !identity.Authenticated() {
		return respondError(c, h.logger, domain.ErrNoIdentity)
	}

	priorToken := session.PriorToken(c)
	cart, warnings, err := h.merges.Merge(c.Request().Context(), identity.UserID.UUID, priorToken)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	h.sessions.ClearPriorToken(c)

	summary, err := h.carts.Summary(c.Request().Context(), cart.ID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if warnings == nil {
		warnings = []string{}
	}
	return c.JSON(http.StatusOK, mergeResponse{
		Cart:     toCartResponse(summary),
		Warnings: warnings,
	})
}
