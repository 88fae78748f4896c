package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/gateway"
	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/http/handlers"
	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/http/middleware"
	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/ledger"
	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/storage"
)

func NewRouter(logger *slog.Logger, adapter gateway.Adapter, led ledger.Ledger, journal ledger.Journal, archive storage.Storage) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.ErrorHandler(logger),
	)

	ipn := handlers.NewIPNHandler(logger, adapter, journal, archive)
	checkout := handlers.NewCheckoutHandler(logger, adapter, led)

	r.GET("/healthz", handlers.Health)
	r.POST("/ipn/"+adapter.Name(), ipn.Handle)
	r.POST("/checkout/:invoice_id", checkout.Post)

	return r
}
