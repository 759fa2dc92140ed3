package http

import (
	"context"
	"net/http"
	"strconv"

	"lendcore-backend/internal/usecase/origination"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type ApplicationHandler struct{ uc *origination.Service }

func NewApplicationHandler(uc *origination.Service) *ApplicationHandler {
	return &ApplicationHandler{uc: uc}
}

type submitReq struct {
	ClientID  uint64          `json:"client_id" validate:"required"`
	ProductID uint64          `json:"product_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Duration  int             `json:"duration" validate:"required,gt=0"`
}

func (h *ApplicationHandler) Submit(c echo.Context) error {
	var req submitReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	dto, err := h.uc.Submit(c.Request().Context(), origination.SubmitInput{
		ClientID:  req.ClientID,
		ProductID: req.ProductID,
		Amount:    req.Amount,
		Duration:  req.Duration,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *ApplicationHandler) Get(c echo.Context) error {
	code, err := paramCode(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid code"})
	}
	dto, err := h.uc.Get(c.Request().Context(), code)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ApplicationHandler) Approve(c echo.Context) error {
	return h.reviewed(c, h.uc.Approve)
}

func (h *ApplicationHandler) Reject(c echo.Context) error {
	return h.reviewed(c, h.uc.Reject)
}

func (h *ApplicationHandler) Disburse(c echo.Context) error {
	code, err := paramCode(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid code"})
	}
	dto, err := h.uc.Disburse(c.Request().Context(), code)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ApplicationHandler) reviewed(c echo.Context, fn func(ctx context.Context, code int64) (*origination.ApplicationDTO, error)) error {
	code, err := paramCode(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid code"})
	}
	dto, err := fn(c.Request().Context(), code)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func paramCode(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("code"), 10, 64)
}
