package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-shop/app/auth"
	"github.com/vibast-solutions/ms-go-shop/app/factory"
	"github.com/vibast-solutions/ms-go-shop/app/mapper"
	"github.com/vibast-solutions/ms-go-shop/app/service"
	"github.com/vibast-solutions/ms-go-shop/app/types"
)

type AdminController struct {
	orderService *service.OrderService
	sessions     *auth.SessionManager
	logger       *logrus.Entry
}

func NewAdminController(orderService *service.OrderService, sessions *auth.SessionManager) *AdminController {
	return &AdminController{
		orderService: orderService,
		sessions:     sessions,
		logger:       factory.NewModuleLogger("admin-controller"),
	}
}

func (c *AdminController) Login(ctx echo.Context) error {
	req, err := types.NewLoginRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	token, expiresAt, err := c.sessions.Login(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAdminDisabled):
			factory.LoggerWithContext(c.logger, ctx).Error("admin login attempted without ADMIN_PASSWORD or SESSION_SECRET")
			return writeError(ctx, http.StatusServiceUnavailable, "Admin login is not configured")
		case errors.Is(err, auth.ErrInvalidCredentials):
			factory.LoggerWithContext(c.logger, ctx).WithField("username", req.Username).Warn("admin login rejected")
			return writeError(ctx, http.StatusUnauthorized, "Invalid credentials")
		default:
			return writeServiceError(ctx, c.logger, err, "Admin login")
		}
	}

	ctx.SetCookie(c.sessions.Cookie(token, expiresAt))
	return ctx.JSON(http.StatusOK, &types.MessageResponse{Success: true, Message: "Logged in"})
}

func (c *AdminController) Logout(ctx echo.Context) error {
	ctx.SetCookie(c.sessions.ExpiredCookie())
	return ctx.JSON(http.StatusOK, &types.MessageResponse{Success: true, Message: "Logged out"})
}

func (c *AdminController) Dashboard(ctx echo.Context) error {
	dashboard, err := c.orderService.Dashboard(ctx.Request().Context())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Load dashboard")
	}
	return ctx.JSON(http.StatusOK, mapper.DashboardToResponse(dashboard))
}

func (c *AdminController) DeleteOrder(ctx echo.Context) error {
	if err := c.orderService.DeleteOrder(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return writeError(ctx, http.StatusNotFound, err.Error())
		}
		return writeServiceError(ctx, c.logger, err, "Delete order")
	}
	return ctx.JSON(http.StatusOK, &types.MessageResponse{Success: true, Message: "Order deleted"})
}
