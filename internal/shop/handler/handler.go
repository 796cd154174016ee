package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-boutique-service/internal/httpx"
	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/fekuna/omnipos-boutique-service/internal/shop"
	"github.com/fekuna/omnipos-boutique-service/internal/shop/dto"
	"github.com/fekuna/omnipos-boutique-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

type ShopHandler struct {
	uc     shop.UseCase
	logger logger.ZapLogger
}

func NewShopHandler(uc shop.UseCase, log logger.ZapLogger) *ShopHandler {
	return &ShopHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *ShopHandler) CreateShop(c *gin.Context) {
	const op = "createShop"

	var req dto.CreateShopInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, op, err)
		return
	}

	s, err := h.uc.CreateShop(c.Request.Context(), &req)
	if err != nil {
		httpx.Error(c, h.logger, op, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"shop": s})
}

func (h *ShopHandler) GetShop(c *gin.Context) {
	s, err := h.uc.GetShop(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, h.logger, "getShop", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shop": s})
}

func (h *ShopHandler) ListShops(c *gin.Context) {
	filters := &dto.ShopFilters{
		SearchQuery: c.Query("q"),
		Page:        httpx.IntQuery(c, "page", 1),
		PageSize:    httpx.IntQuery(c, "page_size", 20),
	}

	shops, total, err := h.uc.ListShops(c.Request.Context(), filters)
	if err != nil {
		httpx.Error(c, h.logger, "listShops", err)
		return
	}
	if shops == nil {
		shops = []model.Shop{}
	}

	c.JSON(http.StatusOK, gin.H{
		"shops":     shops,
		"total":     total,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

func (h *ShopHandler) UpdateShop(c *gin.Context) {
	const op = "updateShop"

	var req dto.UpdateShopInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, op, err)
		return
	}
	req.ID = c.Param("id")

	s, err := h.uc.UpdateShop(c.Request.Context(), &req)
	if err != nil {
		httpx.Error(c, h.logger, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shop": s})
}

func (h *ShopHandler) DeleteShop(c *gin.Context) {
	id := c.Param("id")
	if err := h.uc.DeleteShop(c.Request.Context(), id); err != nil {
		httpx.Error(c, h.logger, "deleteShop", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": id})
}

func (h *ShopHandler) SeedShops(c *gin.Context) {
	const op = "seedShops"

	var req []dto.SeedShopInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, op, err)
		return
	}

	res, err := h.uc.SeedShops(c.Request.Context(), req)
	if err != nil {
		httpx.Error(c, h.logger, op, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
