package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/gateway/mercadopago"
	apphttp "github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/http"
	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/ledger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestStack wires the real adapter against a fake processor API and
// an in-memory ledger, behind the real router.
func newTestStack(t *testing.T, led *ledger.MemoryLedger, payments map[string]map[string]any) http.Handler {
	t.Helper()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/v1/payments/"):]
		p, ok := payments[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(p)
	}))
	t.Cleanup(api.Close)

	return newStackWithAPI(t, led, api.URL)
}

func newStackWithAPI(t *testing.T, led *ledger.MemoryLedger, apiURL string) http.Handler {
	t.Helper()

	adapter, err := mercadopago.New(mercadopago.Config{
		AccessToken: "TEST-token",
		BaseURL:     apiURL,
		SiteURL:     "https://billing.example.com",
	}, led)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	adapter.SetLogger(logger)
	return apphttp.NewRouter(logger, adapter, led, ledger.NopJournal{}, nil)
}

func postIPN(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/ipn/mercadopago", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestIPNAcknowledgesNonPaymentWith200(t *testing.T) {
	h := newTestStack(t, ledger.NewMemoryLedger(), nil)

	w := postIPN(t, h, `{"type":"merchant_order","data":{"id":"1"}}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Result struct {
			Outcome string `json:"outcome"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ignored", resp.Result.Outcome)
}

func TestIPNAcknowledgesMalformedBodyWith200(t *testing.T) {
	h := newTestStack(t, ledger.NewMemoryLedger(), nil)
	w := postIPN(t, h, `{{{not json`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIPNApprovedPaymentMarksInvoicePaid(t *testing.T) {
	led := ledger.NewMemoryLedger()
	led.PutInvoice(ledger.Invoice{ID: 41, Total: 25.00, Currency: "BRL"})
	h := newTestStack(t, led, map[string]map[string]any{
		"999": {
			"id":                 json.Number("999"),
			"status":             "approved",
			"transaction_amount": 25.00,
			"currency_id":        "BRL",
			"external_reference": "INV_41",
		},
	})

	w := postIPN(t, h, `{"type":"payment","data":{"id":"999"}}`)
	assert.Equal(t, http.StatusOK, w.Code)

	inv, err := led.GetInvoice(context.Background(), 41)
	require.NoError(t, err)
	assert.True(t, inv.Paid())
}

func TestIPNLedgerWriteFailureReturns500(t *testing.T) {
	led := ledger.NewMemoryLedger()
	led.PutInvoice(ledger.Invoice{ID: 41, Total: 25.00, Currency: "BRL"})
	led.FailWrites = true
	h := newTestStack(t, led, map[string]map[string]any{
		"999": {
			"id":                 json.Number("999"),
			"status":             "approved",
			"transaction_amount": 25.00,
			"currency_id":        "BRL",
			"external_reference": "INV_41",
		},
	})

	w := postIPN(t, h, `{"type":"payment","data":{"id":"999"}}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestIPNRepeatDeliveryStays200(t *testing.T) {
	led := ledger.NewMemoryLedger()
	led.PutInvoice(ledger.Invoice{ID: 41, Total: 25.00, Currency: "BRL"})
	payments := map[string]map[string]any{
		"999": {
			"id":                 json.Number("999"),
			"status":             "approved",
			"transaction_amount": 25.00,
			"currency_id":        "BRL",
			"external_reference": "INV_41",
		},
	}
	h := newTestStack(t, led, payments)

	for i := 0; i < 3; i++ {
		w := postIPN(t, h, `{"type":"payment","data":{"id":"999"}}`)
		assert.Equal(t, http.StatusOK, w.Code, "delivery %d", i)
	}
	assert.Equal(t, 1, led.TransactionCount())
}

func TestHealthz(t *testing.T) {
	h := newTestStack(t, ledger.NewMemoryLedger(), nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
