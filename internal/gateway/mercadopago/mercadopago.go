// Package mercadopago implements the gateway.Adapter capability against
// Mercado Pago Checkout Pro: preference creation for the hosted checkout
// page and verification/reconciliation of inbound payment webhooks.
package mercadopago

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/ledger"
)

const (
	defaultBaseURL = "https://api.mercadopago.com"
	userAgent      = "FOSSBilling-MercadoPago/2.1"
	providerName   = "mercadopago"
)

// Config carries everything the adapter needs; nothing is read from the
// environment or any ambient container.
type Config struct {
	// AccessToken authenticates outbound calls to the processor API.
	AccessToken string
	// SecretKey verifies inbound webhook signatures. When empty,
	// notifications are processed unverified and a warning is logged
	// on every delivery. That permissiveness is intentional: operators
	// can run without a webhook secret, at their own risk.
	SecretKey string
	// TestMode selects the sandbox checkout URL when the processor
	// provides one.
	TestMode bool
	// BaseURL overrides the processor API endpoint; tests point it at a
	// local server. Defaults to the production API.
	BaseURL string
	// SiteURL is the public base URL of this billing installation, used
	// for checkout back URLs and the webhook notification URL.
	SiteURL string
	// StrictSignature controls what happens when a secret is configured
	// but the signature headers are missing or malformed: true rejects
	// the notification, false (the default) accepts it with a warning.
	// The recomputed-hash check is always strict.
	StrictSignature bool
}

type Gateway struct {
	cfg    Config
	ledger ledger.Ledger
	httpc  *http.Client
	logger *slog.Logger
}

func New(cfg Config, led ledger.Ledger) (*Gateway, error) {
	if cfg.AccessToken == "" {
		return nil, errors.New("mercadopago: access token not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")

	g := &Gateway{
		cfg:    cfg,
		ledger: led,
		httpc:  &http.Client{},
		logger: slog.Default(),
	}
	if cfg.SecretKey == "" {
		g.logger.Warn("mercadopago secret key not configured, webhooks will not be verified")
	}
	return g, nil
}

func (g *Gateway) SetLogger(logger *slog.Logger) { g.logger = logger }

func (g *Gateway) Name() string { return providerName }
