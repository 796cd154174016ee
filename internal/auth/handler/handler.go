package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-boutique-service/internal/auth"
	"github.com/fekuna/omnipos-boutique-service/internal/auth/dto"
	"github.com/fekuna/omnipos-boutique-service/internal/httpx"
	"github.com/fekuna/omnipos-boutique-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	uc     auth.UseCase
	logger logger.ZapLogger
}

func NewAuthHandler(uc auth.UseCase, log logger.ZapLogger) *AuthHandler {
	return &AuthHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	const op = "login"

	var req dto.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, op, err)
		return
	}

	res, err := h.uc.Login(c.Request.Context(), &req)
	if err != nil {
		httpx.Error(c, h.logger, op, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.uc.Logout(c.Request.Context(), auth.GetUser(c)); err != nil {
		httpx.Error(c, h.logger, "logout", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	var userID string
	if u := auth.GetUser(c); u != nil {
		userID = u.UserID
	}

	user, err := h.uc.Me(c.Request.Context(), userID)
	if err != nil {
		httpx.Error(c, h.logger, "me", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
