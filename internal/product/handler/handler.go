package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-boutique-service/internal/auth"
	"github.com/fekuna/omnipos-boutique-service/internal/httpx"
	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/fekuna/omnipos-boutique-service/internal/product"
	"github.com/fekuna/omnipos-boutique-service/internal/product/dto"
	"github.com/fekuna/omnipos-boutique-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	uc     product.UseCase
	logger logger.ZapLogger
}

func NewProductHandler(uc product.UseCase, log logger.ZapLogger) *ProductHandler {
	return &ProductHandler{
		uc:     uc,
		logger: log,
	}
}

type variantRequest struct {
	Name  string          `json:"name"`
	Stock float64         `json:"stock"`
	Price decimal.Decimal `json:"price"`
}

type createProductRequest struct {
	ShopID      string           `json:"shop_id"`
	CatalogID   string           `json:"catalog_id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Unit        string           `json:"unit"`
	BasePrice   decimal.Decimal  `json:"base_price"`
	Stock       float64          `json:"stock"`
	Metadata    model.Metadata   `json:"metadata"`
	Variants    []variantRequest `json:"variants"`
}

type updateProductRequest struct {
	CatalogID   *string          `json:"catalog_id"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Unit        *string          `json:"unit"`
	BasePrice   *decimal.Decimal `json:"base_price"`
	Stock       *float64         `json:"stock"`
	Metadata    model.Metadata   `json:"metadata"`
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	const op = "createProduct"

	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, op, err)
		return
	}

	input := &dto.CreateProductInput{
		ShopID:      auth.ShopScope(c, req.ShopID),
		CatalogID:   req.CatalogID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Unit:        req.Unit,
		BasePrice:   req.BasePrice,
		Stock:       req.Stock,
		Metadata:    req.Metadata,
	}
	for _, v := range req.Variants {
		input.Variants = append(input.Variants, dto.CreateVariantInput{Name: v.Name, Stock: v.Stock, Price: v.Price})
	}

	p, err := h.uc.CreateProduct(c.Request.Context(), input)
	if err != nil {
		httpx.Error(c, h.logger, op, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"product": p})
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	p, err := h.uc.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, h.logger, "getProduct", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	filters := &dto.ProductFilters{
		ShopID:      auth.ShopScope(c, c.Query("shop_id")),
		Category:    c.Query("category"),
		SearchQuery: c.Query("q"),
		SortBy:      c.Query("sort_by"),
		SortOrder:   c.Query("sort_order"),
		Page:        httpx.IntQuery(c, "page", 1),
		PageSize:    httpx.IntQuery(c, "page_size", 20),
	}

	products, total, err := h.uc.ListProducts(c.Request.Context(), filters)
	if err != nil {
		httpx.Error(c, h.logger, "listProducts", err)
		return
	}
	if products == nil {
		products = []model.Product{}
	}

	c.JSON(http.StatusOK, gin.H{
		"products":  products,
		"total":     total,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	const op = "updateProduct"

	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, op, err)
		return
	}

	p, err := h.uc.UpdateProduct(c.Request.Context(), &dto.UpdateProductInput{
		ID:          c.Param("id"),
		CatalogID:   req.CatalogID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Unit:        req.Unit,
		BasePrice:   req.BasePrice,
		Stock:       req.Stock,
		Metadata:    req.Metadata,
	})
	if err != nil {
		httpx.Error(c, h.logger, op, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": p})
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id := c.Param("id")
	if err := h.uc.DeleteProduct(c.Request.Context(), id); err != nil {
		httpx.Error(c, h.logger, "deleteProduct", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": id})
}

func (h *ProductHandler) AddVariant(c *gin.Context) {
	const op = "addVariant"

	var req variantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, op, err)
		return
	}

	v, err := h.uc.AddVariant(c.Request.Context(), &dto.CreateVariantInput{
		ProductID: c.Param("id"),
		Name:      req.Name,
		Stock:     req.Stock,
		Price:     req.Price,
	})
	if err != nil {
		httpx.Error(c, h.logger, op, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"variant": v})
}

func (h *ProductHandler) ListVariants(c *gin.Context) {
	variants, err := h.uc.ListVariants(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, h.logger, "listVariants", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"variants": variants})
}
