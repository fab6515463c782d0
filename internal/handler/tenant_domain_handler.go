package handler

import (
	"net/http"
	"strconv"

	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /tenant/domains の管理API（tenant:manage capability必須）
type TenantDomainHandler struct {
	uc *usecase.TenantDomainUsecase
}

// DI
func NewTenantDomainHandler(uc *usecase.TenantDomainUsecase) *TenantDomainHandler {
	return &TenantDomainHandler{uc: uc}
}

// GET /tenant/domains
func (h *TenantDomainHandler) List(c echo.Context) error {
	tenantID, ok := c.Get(middleware.CtxTenantIDKey).(int64)
	if !ok || tenantID <= 0 {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.List(c.Request().Context(), tenantID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

// POST /tenant/domains
func (h *TenantDomainHandler) Create(c echo.Context) error {
	tenantID, ok := c.Get(middleware.CtxTenantIDKey).(int64)
	if !ok || tenantID <= 0 {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req usecase.CreateDomainRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation error"})
	}

	out, err := h.uc.Create(c.Request().Context(), tenantID, req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

// POST /tenant/domains/:id/primary
func (h *TenantDomainHandler) SetPrimary(c echo.Context) error {
	tenantID, ok := c.Get(middleware.CtxTenantIDKey).(int64)
	if !ok || tenantID <= 0 {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	domainID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || domainID <= 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.SetPrimary(c.Request().Context(), tenantID, domainID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

// DELETE /tenant/domains/:id
func (h *TenantDomainHandler) Delete(c echo.Context) error {
	tenantID, ok := c.Get(middleware.CtxTenantIDKey).(int64)
	if !ok || tenantID <= 0 {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	domainID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || domainID <= 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.Delete(c.Request().Context(), tenantID, domainID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
