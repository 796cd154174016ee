package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fekuna/omnipos-boutique-service/internal/apperr"
	"github.com/fekuna/omnipos-boutique-service/internal/auth"
	"github.com/fekuna/omnipos-boutique-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/fekuna/omnipos-boutique-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUseCase struct {
	mock.Mock
}

func (m *MockUseCase) Receive(ctx context.Context, input *dto.ReceiveInput) (*dto.ReceiveResult, error) {
	args := m.Called(ctx, input)
	res, _ := args.Get(0).(*dto.ReceiveResult)
	return res, args.Error(1)
}

func (m *MockUseCase) Sell(ctx context.Context, input *dto.SellInput) (*dto.SellResult, error) {
	args := m.Called(ctx, input)
	res, _ := args.Get(0).(*dto.SellResult)
	return res, args.Error(1)
}

func (m *MockUseCase) Transfer(ctx context.Context, input *dto.TransferInput) (*dto.TransferResult, error) {
	args := m.Called(ctx, input)
	res, _ := args.Get(0).(*dto.TransferResult)
	return res, args.Error(1)
}

func (m *MockUseCase) Checkout(ctx context.Context, input *dto.CheckoutInput) (*dto.CheckoutResult, error) {
	args := m.Called(ctx, input)
	res, _ := args.Get(0).(*dto.CheckoutResult)
	return res, args.Error(1)
}

func (m *MockUseCase) ListStockAlerts(ctx context.Context, filters *dto.AlertFilters) ([]model.Product, error) {
	args := m.Called(ctx, filters)
	res, _ := args.Get(0).([]model.Product)
	return res, args.Error(1)
}

func setup(uc *MockUseCase, user *auth.UserContext) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewInventoryHandler(uc, logger.NewNop())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if user != nil {
			auth.SetUser(c, user)
		}
		c.Next()
	})
	r.POST("/products/:id/receive", h.Receive)
	r.POST("/products/:id/sell", h.Sell)
	r.POST("/transfers", h.Transfer)
	r.POST("/checkout", h.Checkout)
	r.GET("/stock/alerts", h.StockAlerts)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body struct {
		Error map[string]interface{} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestSell(t *testing.T) {
	t.Run("created with custom price", func(t *testing.T) {
		uc := new(MockUseCase)
		uc.On("Sell", mock.Anything, mock.MatchedBy(func(in *dto.SellInput) bool {
			return in.ProductID == "p1" && in.Quantity == 1 && in.Unit == "L" &&
				in.CustomPrice != nil && in.CustomPrice.Equal(decimal.NewFromInt(800))
		})).Return(&dto.SellResult{SaleID: "s1", TotalPrice: decimal.NewFromInt(800), CustomPrice: true}, nil)

		w := do(setup(uc, nil), http.MethodPost, "/products/p1/sell", `{"quantity":1,"unit":"L","custom_price":"800"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"sale_id":"s1"`)
		uc.AssertExpectations(t)
	})

	t.Run("insufficient stock is a conflict", func(t *testing.T) {
		uc := new(MockUseCase)
		uc.On("Sell", mock.Anything, mock.Anything).
			Return(nil, apperr.InsufficientStock("sellProduct", "insufficient stock for \"Milk\": available 2 L, requested 2.5 L"))

		w := do(setup(uc, nil), http.MethodPost, "/products/p1/sell", `{"quantity":2500,"unit":"mL"}`)

		assert.Equal(t, http.StatusConflict, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, "insufficient_stock", body["code"])
		assert.Equal(t, "sellProduct", body["operation"])
		assert.Contains(t, body["message"], "available 2 L")
	})

	t.Run("malformed body", func(t *testing.T) {
		uc := new(MockUseCase)

		w := do(setup(uc, nil), http.MethodPost, "/products/p1/sell", `{"quantity":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "validation_error", decodeError(t, w)["code"])
		uc.AssertNotCalled(t, "Sell", mock.Anything, mock.Anything)
	})

	t.Run("internal error is masked", func(t *testing.T) {
		uc := new(MockUseCase)
		uc.On("Sell", mock.Anything, mock.Anything).
			Return(nil, apperr.Persistence("sellProduct", assert.AnError))

		w := do(setup(uc, nil), http.MethodPost, "/products/p1/sell", `{"quantity":1}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "internal error", decodeError(t, w)["message"])
	})
}

func TestReceive(t *testing.T) {
	uc := new(MockUseCase)
	uc.On("Receive", mock.Anything, &dto.ReceiveInput{ProductID: "p1", VariantID: "v1", Quantity: 3, Unit: "piece"}).
		Return(&dto.ReceiveResult{ProductID: "p1", VariantID: "v1", OldStock: 1, NewStock: 4, Delta: 3}, nil)

	w := do(setup(uc, nil), http.MethodPost, "/products/p1/receive", `{"quantity":3,"unit":"piece","variant_id":"v1"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"new_stock":4`)
	uc.AssertExpectations(t)
}

func TestTransfer(t *testing.T) {
	uc := new(MockUseCase)
	uc.On("Transfer", mock.Anything, &dto.TransferInput{
		ProductID: "p2", SourceShopID: "a", DestShopID: "b", Quantity: 50, Unit: "L",
	}).Return(nil, apperr.NotFound("transferStock", "product p2 not found in destination shop b"))

	w := do(setup(uc, nil), http.MethodPost, "/transfers",
		`{"product_id":"p2","source_shop_id":"a","dest_shop_id":"b","quantity":50,"unit":"L"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w)["code"])
}

func TestCheckout(t *testing.T) {
	payload := `{"items":[{"product_id":"p","variant_id":"v","quantity":1,"price":"10"}],"total_amount":"10"}`

	t.Run("manager defaults to own shop", func(t *testing.T) {
		uc := new(MockUseCase)
		uc.On("Checkout", mock.Anything, mock.MatchedBy(func(in *dto.CheckoutInput) bool {
			return in.ShopID == "shop-1" && len(in.Items) == 1
		})).Return(&dto.CheckoutResult{SaleID: "s1", AcceptedCount: 1, TotalAmount: decimal.NewFromInt(10), Errors: []string{}}, nil)

		manager := &auth.UserContext{UserID: "u1", Role: model.RoleManager, ShopID: "shop-1"}
		w := do(setup(uc, manager), http.MethodPost, "/checkout", payload)

		assert.Equal(t, http.StatusCreated, w.Code)
		uc.AssertExpectations(t)
	})

	t.Run("all items rejected keeps the per item errors", func(t *testing.T) {
		uc := new(MockUseCase)
		uc.On("Checkout", mock.Anything, mock.Anything).Return(
			&dto.CheckoutResult{Errors: []string{"item 1: variant v not found in product \"Tee\""}},
			apperr.Validation("checkout", "no item could be sold"),
		)

		w := do(setup(uc, nil), http.MethodPost, "/checkout", payload)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body struct {
			Errors []string `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Len(t, body.Errors, 1)
	})
}

func TestStockAlerts(t *testing.T) {
	t.Run("threshold and shop are forwarded", func(t *testing.T) {
		uc := new(MockUseCase)
		uc.On("ListStockAlerts", mock.Anything, mock.MatchedBy(func(f *dto.AlertFilters) bool {
			return f.ShopID == "s1" && f.Threshold != nil && *f.Threshold == 2.5
		})).Return([]model.Product{{Name: "Low"}}, nil)

		w := do(setup(uc, nil), http.MethodGet, "/stock/alerts?threshold=2.5&shop_id=s1", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"count":1`)
		uc.AssertExpectations(t)
	})

	t.Run("empty result is an empty list", func(t *testing.T) {
		uc := new(MockUseCase)
		uc.On("ListStockAlerts", mock.Anything, mock.Anything).Return(nil, nil)

		w := do(setup(uc, nil), http.MethodGet, "/stock/alerts", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"products":[]`)
	})

	t.Run("non numeric threshold", func(t *testing.T) {
		uc := new(MockUseCase)

		w := do(setup(uc, nil), http.MethodGet, "/stock/alerts?threshold=low", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		uc.AssertNotCalled(t, "ListStockAlerts", mock.Anything, mock.Anything)
	})
}
