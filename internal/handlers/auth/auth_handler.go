// internal/handlers/auth/auth_handler.go
package auth

import (
	"errors"
	"net/http"

	"concierge-service/internal/domain/auth"
	"concierge-service/internal/middleware"
	xerrors "concierge-service/internal/pkg/errors"
	"concierge-service/internal/pkg/response"
	authUsecase "concierge-service/internal/service/auth"
	businessUsecase "concierge-service/internal/service/business"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService     *authUsecase.AuthService
	businessService *businessUsecase.BusinessService
	logger          *zap.Logger
}

func NewAuthHandler(authService *authUsecase.AuthService, businessService *businessUsecase.BusinessService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:     authService,
		businessService: businessService,
		logger:          logger,
	}
}

// Register handles business sign-up (public endpoint).
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()

	loginResp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, xerrors.ErrDuplicateEntry) {
			response.Error(c, http.StatusConflict, "email already registered", nil)
			return
		}
		h.logger.Error("registration failed",
			zap.String("email", req.Email),
			zap.Error(err),
		)
		response.Error(c, http.StatusInternalServerError, "registration failed", nil)
		return
	}

	response.Success(c, http.StatusCreated, "registration successful", loginResp)
}

// Login handles business login. Bad email and bad password are the same
// 401 to the caller.
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()

	loginResp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, xerrors.ErrRateLimited) {
			response.Error(c, http.StatusTooManyRequests, "too many login attempts", nil)
			return
		}
		if errors.Is(err, xerrors.ErrUnauthorized) {
			response.Unauthorized(c, "invalid credentials")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "login failed", nil)
		return
	}

	response.Success(c, http.StatusOK, "login successful", loginResp)
}

// AdminLogin authenticates a platform admin (public endpoint).
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()

	resp, err := h.authService.AdminLogin(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, xerrors.ErrRateLimited) {
			response.Error(c, http.StatusTooManyRequests, "too many login attempts", nil)
			return
		}
		if errors.Is(err, xerrors.ErrUnauthorized) {
			response.Unauthorized(c, "invalid credentials")
			return
		}
		h.logger.Error("admin login failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "login failed", nil)
		return
	}

	response.Success(c, http.StatusOK, "login successful", resp)
}

// GetMe returns the authenticated business's profile.
func (h *AuthHandler) GetMe(c *gin.Context) {
	businessID := middleware.MustGetBusinessID(c)

	profile, err := h.businessService.GetProfile(c.Request.Context(), businessID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "account not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to load profile", nil)
		return
	}

	response.Success(c, http.StatusOK, "profile retrieved", profile)
}
