package gateway

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNotificationPaymentType(t *testing.T) {
	n := ParseNotification(nil, []byte(`{"type":"payment","data":{"id":"999"}}`))
	require.Equal(t, KindPayment, n.Kind)
	assert.Equal(t, "999", n.PaymentReference)
}

func TestParseNotificationNumericID(t *testing.T) {
	n := ParseNotification(nil, []byte(`{"type":"payment","data":{"id":12345}}`))
	require.Equal(t, KindPayment, n.Kind)
	assert.Equal(t, "12345", n.PaymentReference)
}

func TestParseNotificationActionFallback(t *testing.T) {
	n := ParseNotification(nil, []byte(`{"action":"payment.updated","data":{"id":"777"}}`))
	require.Equal(t, KindPayment, n.Kind)
	assert.Equal(t, "777", n.PaymentReference)
}

func TestParseNotificationOtherType(t *testing.T) {
	n := ParseNotification(nil, []byte(`{"type":"merchant_order","data":{"id":"1"}}`))
	assert.Equal(t, KindOther, n.Kind)
}

func TestParseNotificationMalformedJSON(t *testing.T) {
	body := []byte(`{"type":"payment"`)
	n := ParseNotification(nil, body)
	assert.Equal(t, KindOther, n.Kind)
	assert.Equal(t, body, n.RawBody)
}

func TestParseNotificationMissingPaymentID(t *testing.T) {
	n := ParseNotification(nil, []byte(`{"type":"payment","data":{}}`))
	require.Equal(t, KindPayment, n.Kind)
	assert.Empty(t, n.PaymentReference)
}

func TestNormalizeHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("X-Signature", "ts=1,v1=ab")
	h.Set("X-Request-Id", "req-1")
	h.Add("Accept", "application/json")
	h.Add("Accept", "text/plain")

	out := NormalizeHeaders(h)
	assert.Equal(t, "ts=1,v1=ab", out["x-signature"])
	assert.Equal(t, "req-1", out["x-request-id"])
	assert.Equal(t, "application/json", out["accept"], "first value wins")
}
