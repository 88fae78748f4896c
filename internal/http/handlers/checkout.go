package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/gateway"
	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/http/middleware"
	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/http/validation"
	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/ledger"
	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/shared/apperr"
)

type CheckoutHandler struct {
	Logger  *slog.Logger
	Adapter gateway.Adapter
	Ledger  ledger.Ledger
}

func NewCheckoutHandler(logger *slog.Logger, a gateway.Adapter, led ledger.Ledger) *CheckoutHandler {
	return &CheckoutHandler{Logger: logger, Adapter: a, Ledger: led}
}

type checkoutInput struct {
	InvoiceID int64 `uri:"invoice_id" binding:"required,min=1"`
}

// POST /checkout/:invoice_id
// Builds a payment preference for the invoice and returns the hosted
// checkout URL the caller should redirect to.
func (h *CheckoutHandler) Post(c *gin.Context) {
	var in checkoutInput
	if err := c.ShouldBindUri(&in); err != nil {
		fields := validation.FromBindError(err, &in)
		middleware.Fail(c, apperr.InvalidErr("Invalid invoice id.", fields))
		return
	}

	inv, err := h.Ledger.GetInvoice(c.Request.Context(), in.InvoiceID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Invoice not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	if inv.Paid() {
		middleware.Fail(c, apperr.ConflictErr("Invoice is already paid."))
		return
	}

	redirectURL, err := h.Adapter.BuildPaymentRequest(c.Request.Context(), inv)
	if err != nil {
		h.Logger.Error("failed to build payment request",
			"invoice_id", inv.ID, "provider", h.Adapter.Name(), "err", err)
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"redirect_url": redirectURL,
		"provider":     h.Adapter.Name(),
	})
}
