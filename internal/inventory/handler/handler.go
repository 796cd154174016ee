package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fekuna/omnipos-boutique-service/internal/apperr"
	"github.com/fekuna/omnipos-boutique-service/internal/auth"
	"github.com/fekuna/omnipos-boutique-service/internal/httpx"
	"github.com/fekuna/omnipos-boutique-service/internal/inventory"
	"github.com/fekuna/omnipos-boutique-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/fekuna/omnipos-boutique-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type InventoryHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
}

func NewInventoryHandler(uc inventory.UseCase, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		logger: log,
	}
}

type receiveRequest struct {
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit"`
	VariantID string  `json:"variant_id"`
}

type sellRequest struct {
	Quantity    float64          `json:"quantity"`
	Unit        string           `json:"unit"`
	CustomPrice *decimal.Decimal `json:"custom_price"`
	SoldAt      *time.Time       `json:"sold_at"`
}

type transferRequest struct {
	ProductID    string  `json:"product_id"`
	SourceShopID string  `json:"source_shop_id"`
	DestShopID   string  `json:"dest_shop_id"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
}

func (h *InventoryHandler) Receive(c *gin.Context) {
	const op = "receiveStock"

	var req receiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, op, err)
		return
	}

	res, err := h.uc.Receive(c.Request.Context(), &dto.ReceiveInput{
		ProductID: c.Param("id"),
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
		Unit:      req.Unit,
	})
	if err != nil {
		httpx.Error(c, h.logger, op, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *InventoryHandler) Sell(c *gin.Context) {
	const op = "sellProduct"

	var req sellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, op, err)
		return
	}

	res, err := h.uc.Sell(c.Request.Context(), &dto.SellInput{
		ProductID:   c.Param("id"),
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		CustomPrice: req.CustomPrice,
		SoldAt:      req.SoldAt,
	})
	if err != nil {
		httpx.Error(c, h.logger, op, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *InventoryHandler) Transfer(c *gin.Context) {
	const op = "transferStock"

	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, op, err)
		return
	}

	res, err := h.uc.Transfer(c.Request.Context(), &dto.TransferInput{
		ProductID:    req.ProductID,
		SourceShopID: req.SourceShopID,
		DestShopID:   req.DestShopID,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
	})
	if err != nil {
		httpx.Error(c, h.logger, op, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *InventoryHandler) Checkout(c *gin.Context) {
	const op = "checkout"

	var req dto.CheckoutInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, op, err)
		return
	}
	req.ShopID = auth.ShopScope(c, req.ShopID)

	res, err := h.uc.Checkout(c.Request.Context(), &req)
	if err != nil {
		if res != nil {
			c.AbortWithStatusJSON(httpx.StatusOf(err), gin.H{
				"error":  httpx.Body(op, err),
				"errors": res.Errors,
			})
			return
		}
		httpx.Error(c, h.logger, op, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *InventoryHandler) StockAlerts(c *gin.Context) {
	const op = "listStockAlerts"

	filters := &dto.AlertFilters{ShopID: auth.ShopScope(c, c.Query("shop_id"))}
	if v := c.Query("threshold"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			httpx.Error(c, h.logger, op, apperr.Validation(op, "threshold must be a number"))
			return
		}
		filters.Threshold = &threshold
	}

	products, err := h.uc.ListStockAlerts(c.Request.Context(), filters)
	if err != nil {
		httpx.Error(c, h.logger, op, err)
		return
	}
	if products == nil {
		products = []model.Product{}
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}
