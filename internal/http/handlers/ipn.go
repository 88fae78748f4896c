package handlers

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/gateway"
	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/ledger"
	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/storage"
)

type IPNHandler struct {
	Logger  *slog.Logger
	Adapter gateway.Adapter
	Journal ledger.Journal
	Archive storage.Storage // optional raw-payload archive
}

func NewIPNHandler(logger *slog.Logger, a gateway.Adapter, j ledger.Journal, archive storage.Storage) *IPNHandler {
	return &IPNHandler{Logger: logger, Adapter: a, Journal: j, Archive: archive}
}

// POST /ipn/:provider
//
// The processor treats any non-200 as a failed delivery and retries
// aggressively, so every outcome is acknowledged with 200, including
// rejected signatures. The single exception is a ledger write failure:
// the processor believes the payment was handled and will not retry
// forever, so that one surfaces as 500 and an alert-level log.
func (h *IPNHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"result": nil, "error": gin.H{"message": "unreadable body"}})
		return
	}

	headers := gateway.NormalizeHeaders(c.Request.Header)
	n := gateway.ParseNotification(headers, body)

	h.archive(c, body)

	outcome, err := h.Adapter.HandleNotification(c.Request.Context(), n)

	rec := ledger.NotificationRecord{
		ID:          uuid.NewString(),
		Provider:    h.Adapter.Name(),
		PaymentRef:  n.PaymentReference,
		Kind:        string(n.Kind),
		PayloadJSON: datatypes.JSON(body),
		ReceivedAt:  time.Now(),
	}
	if err != nil {
		msg := err.Error()
		rec.ProcessError = &msg
	} else {
		rec.Outcome = string(outcome.Status)
		rec.Reason = outcome.Reason
	}
	h.Journal.Record(c.Request.Context(), rec)

	if err != nil {
		h.Logger.Error("notification processing failed, manual reconciliation required",
			"provider", h.Adapter.Name(), "payment_ref", n.PaymentReference, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"result": nil,
			"error":  gin.H{"message": "processing failed"},
		})
		return
	}

	h.Logger.Info("notification acknowledged",
		"provider", h.Adapter.Name(), "payment_ref", n.PaymentReference,
		"outcome", outcome.Status, "reason", outcome.Reason)

	c.Header("Cache-Control", "no-cache, must-revalidate")
	c.JSON(http.StatusOK, gin.H{
		"result": gin.H{"outcome": outcome.Status, "reason": outcome.Reason},
		"error":  nil,
	})
}

// archive stores the raw payload for audit; failures only log.
func (h *IPNHandler) archive(c *gin.Context, body []byte) {
	if h.Archive == nil || len(body) == 0 {
		return
	}
	name := fmt.Sprintf("ipn-%s.json", uuid.NewString())
	_, err := h.Archive.Put(c.Request.Context(), bytes.NewReader(body), storage.PutInput{
		Filename:    name,
		ContentType: "application/json",
		Size:        int64(len(body)),
	})
	if err != nil {
		h.Logger.Warn("failed to archive notification payload", "err", err)
	}
}
