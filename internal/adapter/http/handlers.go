package http

import (
	"errors"
	"net/http"
	"time"

	"lendcore-backend/internal/domain/fund"
	"lendcore-backend/internal/domain/lending"
	domainPayment "lendcore-backend/internal/domain/payment"
	"lendcore-backend/internal/gateway/daraja"

	"github.com/labstack/echo/v4"
)

type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// writeError maps the domain error taxonomy onto HTTP statuses. Fund
// insufficiency is a distinguishable business outcome, not a generic
// failure.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, lending.ErrValidation):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, lending.ErrNotFound),
		errors.Is(err, lending.ErrLoanNotFound),
		errors.Is(err, fund.ErrNotFound),
		errors.Is(err, domainPayment.ErrCheckoutNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, fund.ErrInsufficientFunds):
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{
			"error":  err.Error(),
			"reason": "insufficient_funds",
		})
	case errors.Is(err, lending.ErrInvalidTransition),
		errors.Is(err, lending.ErrOpenApplication),
		errors.Is(err, lending.ErrConcurrencyConflict):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, lending.ErrStoreUnavailable):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "store unavailable"})
	case errors.Is(err, daraja.ErrUnavailable), errors.Is(err, daraja.ErrAuth):
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "payment gateway unavailable"})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
