package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-boutique-service/internal/auth"
	"github.com/fekuna/omnipos-boutique-service/internal/httpx"
	"github.com/fekuna/omnipos-boutique-service/internal/sale"
	"github.com/fekuna/omnipos-boutique-service/internal/sale/dto"
	"github.com/fekuna/omnipos-boutique-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

type SaleHandler struct {
	uc     sale.UseCase
	logger logger.ZapLogger
}

func NewSaleHandler(uc sale.UseCase, log logger.ZapLogger) *SaleHandler {
	return &SaleHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *SaleHandler) History(c *gin.Context) {
	const op = "salesHistory"

	from, err := httpx.TimeQuery(c, "from")
	if err != nil {
		httpx.Error(c, h.logger, op, err)
		return
	}
	to, err := httpx.TimeQuery(c, "to")
	if err != nil {
		httpx.Error(c, h.logger, op, err)
		return
	}

	history, err := h.uc.History(c.Request.Context(), &dto.SaleFilters{
		ShopID:   auth.ShopScope(c, c.Query("shop_id")),
		From:     from,
		To:       to,
		Page:     httpx.IntQuery(c, "page", 1),
		PageSize: httpx.IntQuery(c, "page_size", 20),
	})
	if err != nil {
		httpx.Error(c, h.logger, op, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

func (h *SaleHandler) Statistics(c *gin.Context) {
	stats, err := h.uc.Statistics(c.Request.Context(), &dto.StatisticsInput{
		Period: dto.Period(c.DefaultQuery("period", string(dto.PeriodDay))),
		ShopID: auth.ShopScope(c, c.Query("shop_id")),
		Limit:  httpx.IntQuery(c, "limit", 5),
	})
	if err != nil {
		httpx.Error(c, h.logger, "salesStatistics", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
