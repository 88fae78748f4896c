package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/ledger"
)

// Kind classifies an inbound notification. Only payment notifications
// are reconciled; everything else is acknowledged and dropped.
type Kind string

const (
	KindPayment Kind = "payment"
	KindOther   Kind = "other"
)

// Notification is one inbound event from a payment processor, captured
// exactly as received. RawBody keeps the original bytes because signature
// verification recomputes over header-derived values tied to this delivery.
type Notification struct {
	Kind             Kind
	PaymentReference string
	Headers          map[string]string // lowercase keys
	RawBody          []byte
}

type OutcomeStatus string

const (
	OutcomeAccepted OutcomeStatus = "accepted"
	OutcomeIgnored  OutcomeStatus = "ignored"
	OutcomeRejected OutcomeStatus = "rejected"
)

// Outcome is the terminal result of handling a notification.
type Outcome struct {
	Status OutcomeStatus
	Reason string
}

func Accepted() Outcome              { return Outcome{Status: OutcomeAccepted} }
func Ignored(reason string) Outcome  { return Outcome{Status: OutcomeIgnored, Reason: reason} }
func Rejected(reason string) Outcome { return Outcome{Status: OutcomeRejected, Reason: reason} }

// Adapter is the capability a payment processor integration provides.
// BuildPaymentRequest returns a hosted checkout URL for an invoice.
// HandleNotification applies an inbound notification against the ledger;
// the error return is reserved for ledger write failures, which the
// front door must surface distinctly (the processor will not retry
// a delivery it believes was handled).
type Adapter interface {
	Name() string
	BuildPaymentRequest(ctx context.Context, inv ledger.Invoice) (string, error)
	HandleNotification(ctx context.Context, n Notification) (Outcome, error)
}

type notificationPayload struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID flexibleID `json:"id"`
	} `json:"data"`
}

// flexibleID absorbs both `"id":"123"` and `"id":123`; the processor has
// shipped both shapes.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	*f = flexibleID(s)
	return nil
}

// ParseNotification classifies a raw webhook delivery. Malformed JSON or
// a non-payment type yields KindOther; the caller acknowledges those
// without further processing.
func ParseNotification(headers map[string]string, body []byte) Notification {
	n := Notification{Kind: KindOther, Headers: headers, RawBody: body}

	var p notificationPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return n
	}

	typ := p.Type
	if typ == "" {
		typ = p.Action
	}
	if typ != "payment" && !strings.Contains(typ, "payment") {
		return n
	}

	n.Kind = KindPayment
	n.PaymentReference = string(p.Data.ID)
	return n
}

// NormalizeHeaders flattens an http.Header into the lowercase-keyed map
// the adapters consume. First value wins.
func NormalizeHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) == 0 {
			continue
		}
		out[strings.ToLower(k)] = vs[0]
	}
	return out
}
