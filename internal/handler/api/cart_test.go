package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anbanon/verdana/internal/domain"
	"github.com/anbanon/verdana/internal/order"
	"github.com/anbanon/verdana/internal/session"
)

// stubCore implements the three core service interfaces with canned data so
// the handler tests exercise routing, status mapping, and payload shapes
// without a store.
type stubCore struct {
	cart    domain.Cart
	summary domain.CartSummary

	addErr      error
	adjustErr   error
	removeErr   error
	clearErr    error
	resolveErr  error
	checkoutErr error

	mergeWarnings []string
	mergeToken    string

	receipt order.Receipt

	addedProduct  uuid.UUID
	addedQuantity int
	adjustedDelta int
	checkoutAddr  json.RawMessage
}

func (s *stubCore) Resolve(ctx context.Context, identity domain.Identity) (*domain.Cart, error) {
	if s.resolveErr != nil {
		return nil, s.resolveErr
	}
	if !identity.Usable() {
		return nil, domain.ErrNoIdentity
	}
	return &s.cart, nil
}

func (s *stubCore) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*domain.LineItem, error) {
	if s.addErr != nil {
		return nil, s.addErr
	}
	s.addedProduct = productID
	s.addedQuantity = quantity
	return &domain.LineItem{ID: uuid.New(), CartID: cartID, ProductID: productID, Quantity: int32(quantity)}, nil
}

func (s *stubCore) AdjustItem(ctx context.Context, cartID, itemID uuid.UUID, delta int) (*domain.LineItem, error) {
	if s.adjustErr != nil {
		return nil, s.adjustErr
	}
	s.adjustedDelta = delta
	return nil, nil
}

func (s *stubCore) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	return s.removeErr
}

func (s *stubCore) Clear(ctx context.Context, cartID uuid.UUID) error {
	return s.clearErr
}

func (s *stubCore) Summary(ctx context.Context, cartID uuid.UUID) (*domain.CartSummary, error) {
	return &s.summary, nil
}

func (s *stubCore) Merge(ctx context.Context, userID uuid.UUID, priorToken string) (*domain.Cart, []string, error) {
	s.mergeToken = priorToken
	return &s.cart, s.mergeWarnings, nil
}

func (s *stubCore) Checkout(ctx context.Context, identity domain.Identity, shippingAddress json.RawMessage) (*order.Receipt, error) {
	if s.checkoutErr != nil {
		return nil, s.checkoutErr
	}
	s.checkoutAddr = shippingAddress
	return &s.receipt, nil
}

func newTestServer(core *stubCore) *echo.Echo {
	e := echo.New()
	h := NewHandler(core, core, core, session.NewManager(false), nil, 1024)
	h.Register(e)
	return e
}

func newStubCore() *stubCore {
	cartID := uuid.New()
	return &stubCore{
		cart: domain.Cart{ID: cartID, SessionToken: "tok"},
		summary: domain.CartSummary{
			Cart:                 domain.Cart{ID: cartID},
			TotalItems:           3,
			TotalPrice:           decimal.RequireFromString("25.00"),
			TotalCarbonFootprint: 3.2,
		},
		receipt: order.Receipt{
			OrderID:              uuid.New(),
			OrderNumber:          "ORD-ABCDEF123456",
			TotalAmount:          decimal.RequireFromString("25.00"),
			TotalCarbonFootprint: 3.2,
			Status:               "pending",
		},
	}
}

func doJSON(e *echo.Echo, method, path, body string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestViewCart(t *testing.T) {
	core := newStubCore()
	rec := doJSON(newTestServer(core), http.MethodGet, "/api/cart", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "25.00", resp["total_price"])
	assert.EqualValues(t, 3, resp["total_items"])
	assert.InDelta(t, 3.2, resp["total_carbon_footprint"].(float64), 1e-9)
}

func TestAddItemRoute(t *testing.T) {
	t.Run("valid request reaches the core", func(t *testing.T) {
		core := newStubCore()
		productID := uuid.New()
		body := `{"product_id":"` + productID.String() + `","quantity":2}`

		rec := doJSON(newTestServer(core), http.MethodPost, "/api/cart/items", body, nil)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, productID, core.addedProduct)
		assert.Equal(t, 2, core.addedQuantity)
	})

	t.Run("missing fields fail validation with field errors", func(t *testing.T) {
		core := newStubCore()
		rec := doJSON(newTestServer(core), http.MethodPost, "/api/cart/items", `{}`, nil)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp struct {
			Code   string            `json:"code"`
			Fields map[string]string `json:"fields"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, domain.EINVALID, resp.Code)
		assert.Contains(t, resp.Fields, "product_id")
		assert.Contains(t, resp.Fields, "quantity")
	})

	t.Run("cap violation maps to 422", func(t *testing.T) {
		core := newStubCore()
		core.addErr = domain.Errorf(domain.ELIMIT, "", "Quantity limit for this item exceeded")
		body := `{"product_id":"` + uuid.NewString() + `","quantity":9}`

		rec := doJSON(newTestServer(core), http.MethodPost, "/api/cart/items", body, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestAdjustItemRoute(t *testing.T) {
	t.Run("delta is forwarded", func(t *testing.T) {
		core := newStubCore()
		rec := doJSON(newTestServer(core), http.MethodPatch,
			"/api/cart/items/"+uuid.NewString(), `{"delta":-1}`, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, -1, core.adjustedDelta)
	})

	t.Run("bad item id fails validation", func(t *testing.T) {
		core := newStubCore()
		rec := doJSON(newTestServer(core), http.MethodPatch,
			"/api/cart/items/not-a-uuid", `{"delta":1}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing item maps to 404", func(t *testing.T) {
		core := newStubCore()
		core.adjustErr = domain.ErrCartItemNotFound
		rec := doJSON(newTestServer(core), http.MethodPatch,
			"/api/cart/items/"+uuid.NewString(), `{"delta":1}`, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestClearCartRoute(t *testing.T) {
	core := newStubCore()
	rec := doJSON(newTestServer(core), http.MethodDelete, "/api/cart", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMergeRoute(t *testing.T) {
	t.Run("requires authentication", func(t *testing.T) {
		core := newStubCore()
		rec := doJSON(newTestServer(core), http.MethodPost, "/api/cart/merge", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("passes the prior token and clears its cookie", func(t *testing.T) {
		core := newStubCore()
		core.mergeWarnings = []string{`Quantity for "Oak Desk" capped at 5; dropped 2`}

		rec := doJSON(newTestServer(core), http.MethodPost, "/api/cart/merge", "",
			func(req *http.Request) {
				req.Header.Set(session.UserHeader, uuid.NewString())
				req.AddCookie(&http.Cookie{Name: session.PriorCookieName, Value: "prior-tok"})
			})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "prior-tok", core.mergeToken)

		var resp struct {
			Warnings []string `json:"warnings"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Warnings, 1)

		cleared := false
		for _, cookie := range rec.Result().Cookies() {
			if cookie.Name == session.PriorCookieName && cookie.MaxAge < 0 {
				cleared = true
			}
		}
		assert.True(t, cleared, "prior-token cookie should be expired")
	})
}

func TestCheckoutRoute(t *testing.T) {
	validBody := `{"shipping_address":{"street":"12 Alder Way","city":"Portland","state":"OR","postal_code":"97201","country":"US"}}`

	t.Run("valid request returns the receipt", func(t *testing.T) {
		core := newStubCore()
		rec := doJSON(newTestServer(core), http.MethodPost, "/api/checkout", validBody, nil)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp checkoutResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ORD-ABCDEF123456", resp.OrderNumber)
		assert.Equal(t, "25.00", resp.TotalAmount)
		assert.Equal(t, "pending", resp.Status)

		var addr map[string]string
		require.NoError(t, json.Unmarshal(core.checkoutAddr, &addr))
		assert.Equal(t, "Portland", addr["city"])
	})

	t.Run("incomplete address fails validation", func(t *testing.T) {
		core := newStubCore()
		body := `{"shipping_address":{"street":"12 Alder Way"}}`
		rec := doJSON(newTestServer(core), http.MethodPost, "/api/checkout", body, nil)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp struct {
			Fields map[string]string `json:"fields"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Fields, "city")
		assert.Contains(t, resp.Fields, "country")
	})

	t.Run("empty cart maps to 400", func(t *testing.T) {
		core := newStubCore()
		core.checkoutErr = domain.Errorf(domain.EINVALID, "", "Cart is empty")
		rec := doJSON(newTestServer(core), http.MethodPost, "/api/checkout", validBody, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("provider failure maps to 502", func(t *testing.T) {
		core := newStubCore()
		core.checkoutErr = domain.Errorf(domain.ECHECKOUT, "", "Order could not be created")
		rec := doJSON(newTestServer(core), http.MethodPost, "/api/checkout", validBody, nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}
