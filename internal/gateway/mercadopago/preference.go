package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/ledger"
)

const (
	preferenceTimeout = 45 * time.Second

	// Checkout Pro refuses totals below this, in the invoice currency's
	// minor unit.
	minPayableTotal = 0.50

	preferenceExpiry = 7 * 24 * time.Hour
)

// Currencies Checkout Pro accepts; anything else falls back to BRL.
var allowedCurrencies = map[string]bool{
	"BRL": true, "ARS": true, "MXN": true, "COP": true,
	"PEN": true, "CLP": true, "UYU": true,
}

type preferenceItem struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	CurrencyID  string  `json:"currency_id"`
	UnitPrice   float64 `json:"unit_price"`
}

type preferencePayer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type preferenceBackURLs struct {
	Success string `json:"success"`
	Pending string `json:"pending"`
	Failure string `json:"failure"`
}

type preferenceRequest struct {
	Items               []preferenceItem   `json:"items"`
	Payer               preferencePayer    `json:"payer"`
	BackURLs            preferenceBackURLs `json:"back_urls"`
	AutoReturn          string             `json:"auto_return"`
	NotificationURL     string             `json:"notification_url"`
	ExternalReference   string             `json:"external_reference"`
	StatementDescriptor string             `json:"statement_descriptor"`
	Expires             bool               `json:"expires"`
	ExpirationDateFrom  string             `json:"expiration_date_from"`
	ExpirationDateTo    string             `json:"expiration_date_to"`
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
	Message          string `json:"message"`
}

// BuildPaymentRequest creates a checkout preference for the invoice and
// returns the hosted payment page URL. Every failure mode surfaces as a
// returned error; the caller decides how to render it.
func (g *Gateway) BuildPaymentRequest(ctx context.Context, inv ledger.Invoice) (string, error) {
	if inv.Total < minPayableTotal {
		return "", fmt.Errorf("invoice %d total %.2f below minimum payable %.2f", inv.ID, inv.Total, minPayableTotal)
	}

	currency := strings.ToUpper(inv.Currency)
	if !allowedCurrencies[currency] {
		g.logger.WarnContext(ctx, "currency not supported by checkout, forcing BRL",
			"invoice_id", inv.ID, "currency", currency)
		currency = "BRL"
	}

	externalRef := FormatReference(inv.ID)
	invoiceURL := fmt.Sprintf("%s/invoice/%s", g.cfg.SiteURL, inv.Hash)
	now := time.Now()

	pref := preferenceRequest{
		Items: []preferenceItem{{
			Title:       sanitize(invoiceTitle(inv)),
			Description: sanitize(fmt.Sprintf("Invoice #%s - %s", inv.Nr, buyerName(inv))),
			Quantity:    1,
			CurrencyID:  currency,
			UnitPrice:   inv.Total,
		}},
		Payer: preferencePayer{
			Email:     g.payerEmail(inv),
			FirstName: sanitize(firstNameOr(inv, "Cliente")),
			LastName:  sanitize(lastNameOr(inv, "Cliente")),
		},
		BackURLs: preferenceBackURLs{
			Success: invoiceURL + "?status=approved",
			Pending: invoiceURL + "?status=pending",
			Failure: invoiceURL + "?status=rejected",
		},
		AutoReturn:          "approved",
		NotificationURL:     g.cfg.SiteURL + "/ipn/mercadopago",
		ExternalReference:   externalRef,
		StatementDescriptor: sanitize(truncate(statementName(g.cfg.SiteURL), 13)),
		Expires:             true,
		ExpirationDateFrom:  now.Format(time.RFC3339),
		ExpirationDateTo:    now.Add(preferenceExpiry).Format(time.RFC3339),
	}

	body, err := json.Marshal(pref)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, preferenceTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.cfg.BaseURL+"/checkout/preferences", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.AccessToken)
	// Unique per attempt so a retried build is not deduplicated by the
	// remote API into a stale preference.
	req.Header.Set("X-Idempotency-Key", fmt.Sprintf("%s_%d", externalRef, now.Unix()))
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("preference create: %w", err)
	}
	defer resp.Body.Close()

	var pr preferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil && resp.StatusCode == http.StatusCreated {
		return "", fmt.Errorf("preference create: decode: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		msg := pr.Message
		if msg == "" {
			msg = "unknown error"
		}
		return "", fmt.Errorf("preference create: api status %d: %s", resp.StatusCode, msg)
	}
	if pr.InitPoint == "" {
		return "", fmt.Errorf("preference create: response missing init_point")
	}

	g.logger.InfoContext(ctx, "checkout preference created",
		"invoice_id", inv.ID, "preference_id", pr.ID, "external_reference", externalRef)

	if g.cfg.TestMode && pr.SandboxInitPoint != "" {
		return pr.SandboxInitPoint, nil
	}
	return pr.InitPoint, nil
}

func invoiceTitle(inv ledger.Invoice) string {
	nr := inv.Nr
	if nr == "" {
		nr = fmt.Sprintf("%d", inv.ID)
	}
	return fmt.Sprintf("Invoice #%s", nr)
}

func buyerName(inv ledger.Invoice) string {
	if inv.BuyerFirstName != "" {
		return inv.BuyerFirstName
	}
	return "Cliente"
}

func firstNameOr(inv ledger.Invoice, def string) string {
	if inv.BuyerFirstName != "" {
		return inv.BuyerFirstName
	}
	return def
}

func lastNameOr(inv ledger.Invoice, def string) string {
	if inv.BuyerLastName != "" {
		return inv.BuyerLastName
	}
	return def
}

func (g *Gateway) payerEmail(inv ledger.Invoice) string {
	if inv.BuyerEmail != "" && strings.Contains(inv.BuyerEmail, "@") {
		return inv.BuyerEmail
	}
	host := "localhost"
	if u, err := url.Parse(g.cfg.SiteURL); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	return "noreply@" + host
}

func statementName(siteURL string) string {
	u, err := url.Parse(siteURL)
	if err != nil || u.Host == "" {
		return "Billing"
	}
	name := strings.TrimPrefix(u.Hostname(), "www.")
	if i := strings.Index(name, "."); i > 0 {
		name = name[:i]
	}
	if name == "" {
		return "Billing"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// sanitize strips anything that is not a letter, digit, space, or one of
// -_. and caps the result at 120 chars, matching what the processor
// accepts in item and payer fields.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) ||
			r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "Cliente"
	}
	return truncate(out, 120)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
