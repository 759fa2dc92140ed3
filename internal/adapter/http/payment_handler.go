package http

import (
	"net/http"
	"strconv"
	"time"

	"lendcore-backend/internal/usecase/payment"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type PaymentHandler struct{ uc *payment.Usecase }

func NewPaymentHandler(uc *payment.Usecase) *PaymentHandler { return &PaymentHandler{uc: uc} }

type checkoutReq struct {
	MSISDN string          `json:"msisdn" validate:"required,msisdn"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

func (h *PaymentHandler) CreateCheckout(c echo.Context) error {
	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	co, err := h.uc.InitiateCheckout(c.Request().Context(), payment.CheckoutInput{
		MSISDN: req.MSISDN,
		Amount: req.Amount,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, co)
}

type callbackReq struct {
	RefNo           string          `json:"ref_no" validate:"required"`
	GatewayCode     string          `json:"gateway_code"`
	ClientID        uint64          `json:"client_id"`
	LoanCode        int64           `json:"loan_code"`
	Amount          decimal.Decimal `json:"amount" validate:"required"`
	TransactionDate time.Time       `json:"transaction_date"`
	Raw             string          `json:"raw"`
}

func (h *PaymentHandler) Callback(c echo.Context) error {
	var req callbackReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	err := h.uc.ConfirmPayIn(c.Request().Context(), payment.CallbackInput{
		RefNo:           req.RefNo,
		GatewayCode:     req.GatewayCode,
		ClientID:        req.ClientID,
		LoanCode:        req.LoanCode,
		Amount:          req.Amount,
		TransactionDate: req.TransactionDate,
		Raw:             req.Raw,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "accepted"})
}

type payOutReq struct {
	Phone string `json:"phone" validate:"required,msisdn"`
}

func (h *PaymentHandler) CreatePayOut(c echo.Context) error {
	code, err := strconv.ParseInt(c.Param("code"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid code"})
	}
	var req payOutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	po, err := h.uc.InitiatePayOut(c.Request().Context(), code, req.Phone)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, po)
}
