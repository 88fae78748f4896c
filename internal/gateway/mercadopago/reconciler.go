package mercadopago

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/gateway"
	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/ledger"
)

// Payment ids the processor sends when an operator tests the webhook
// configuration from its dashboard. They never correspond to a real
// payment.
var testPaymentIDs = map[string]bool{
	"123456":   true,
	"12345678": true,
}

// HandleNotification runs the reconciliation pipeline: classify, verify,
// fetch authoritative state, gate on status, correlate to an invoice and
// apply the paid transition. Each step short-circuits to an Outcome.
//
// The error return is non-nil only when the ledger write itself failed;
// every other condition, including invalid signatures and remote lookup
// trouble, resolves to an Outcome so the front door can acknowledge the
// delivery.
func (g *Gateway) HandleNotification(ctx context.Context, n gateway.Notification) (gateway.Outcome, error) {
	if n.Kind != gateway.KindPayment {
		return gateway.Ignored("not a payment event"), nil
	}
	if n.PaymentReference == "" {
		return gateway.Ignored("missing payment id"), nil
	}

	// Dashboard webhook test: acknowledge before signature validation,
	// the test delivery is not signed against a real payment.
	if testPaymentIDs[n.PaymentReference] {
		g.logger.InfoContext(ctx, "webhook test notification acknowledged", "payment_id", n.PaymentReference)
		return gateway.Ignored("test payment id"), nil
	}

	if g.cfg.SecretKey != "" {
		if out, ok := g.verify(ctx, n); !ok {
			return out, nil
		}
	} else {
		g.logger.WarnContext(ctx, "processing webhook without signature verification, no secret configured",
			"payment_id", n.PaymentReference)
	}

	payment, err := g.fetchPayment(ctx, n.PaymentReference)
	if err != nil {
		// The processor retries on its own schedule; nothing to do here.
		g.logger.WarnContext(ctx, "payment lookup failed", "payment_id", n.PaymentReference, "err", err)
		return gateway.Ignored("payment lookup failed"), nil
	}

	// Already processed? Repeat deliveries are the normal case, not an
	// edge case; answer before touching anything else.
	if _, err := g.ledger.GetTransactionByReference(ctx, n.PaymentReference); err == nil {
		g.logger.InfoContext(ctx, "payment already processed, skipping duplicate",
			"payment_id", n.PaymentReference)
		return gateway.Accepted(), nil
	} else if !errors.Is(err, ledger.ErrNotFound) {
		// Local read trouble is transient; let the processor redeliver.
		g.logger.ErrorContext(ctx, "transaction lookup failed", "payment_id", n.PaymentReference, "err", err)
		return gateway.Ignored("ledger lookup failed"), nil
	}

	if payment.Status != StatusApproved {
		g.logger.InfoContext(ctx, "payment not approved yet",
			"payment_id", n.PaymentReference, "status", payment.Status)
		return gateway.Ignored("not approved yet"), nil
	}

	invoiceID, err := ParseReference(payment.ExternalReference)
	if err != nil {
		g.logger.ErrorContext(ctx, "webhook carries unparseable external reference",
			"payment_id", n.PaymentReference, "external_reference", payment.ExternalReference)
		return gateway.Rejected("unparseable reference"), nil
	}

	inv, err := g.ledger.GetInvoice(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			g.logger.ErrorContext(ctx, "webhook references unknown invoice",
				"payment_id", n.PaymentReference, "invoice_id", invoiceID)
			return gateway.Rejected("unknown invoice"), nil
		}
		g.logger.ErrorContext(ctx, "invoice lookup failed", "invoice_id", invoiceID, "err", err)
		return gateway.Ignored("ledger lookup failed"), nil
	}
	if inv.Paid() {
		g.logger.InfoContext(ctx, "invoice already paid, skipping duplicate",
			"payment_id", n.PaymentReference, "invoice_id", invoiceID)
		return gateway.Accepted(), nil
	}

	note := fmt.Sprintf("Paid via Mercado Pago (ID: %s)", n.PaymentReference)
	err = g.ledger.MarkPaid(ctx, ledger.MarkPaidInput{
		InvoiceID:  invoiceID,
		PaymentRef: n.PaymentReference,
		Amount:     payment.Amount,
		Currency:   payment.Currency,
		Note:       note,
	})
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrAlreadyPaid), errors.Is(err, ledger.ErrDuplicateTransaction):
		// Lost a race against a concurrent duplicate delivery; the
		// transition happened exactly once, which is all that matters.
		return gateway.Accepted(), nil
	default:
		g.logger.ErrorContext(ctx, "ledger write failed, manual reconciliation required",
			"payment_id", n.PaymentReference, "invoice_id", invoiceID, "err", err)
		return gateway.Outcome{}, err
	}

	g.logger.InfoContext(ctx, "invoice marked paid",
		"invoice_id", invoiceID, "payment_id", n.PaymentReference,
		"amount", payment.Amount, "currency", payment.Currency)
	return gateway.Accepted(), nil
}

// verify checks the delivery signature. The second return is false when
// the pipeline must stop with the given outcome.
func (g *Gateway) verify(ctx context.Context, n gateway.Notification) (gateway.Outcome, bool) {
	proof, err := parseSignatureProof(n.Headers)
	if err != nil {
		if g.cfg.StrictSignature {
			g.logger.ErrorContext(ctx, "rejecting webhook with unusable signature headers",
				"payment_id", n.PaymentReference, "err", err)
			return gateway.Rejected("invalid signature"), false
		}
		g.logger.WarnContext(ctx, "accepting webhook with unusable signature headers",
			"payment_id", n.PaymentReference, "err", err)
		return gateway.Outcome{}, true
	}

	if err := verifySignature(g.cfg.SecretKey, n.PaymentReference, proof); err != nil {
		g.logger.ErrorContext(ctx, "webhook signature mismatch, possible forgery",
			"payment_id", n.PaymentReference, "request_id", proof.RequestID)
		return gateway.Rejected("invalid signature"), false
	}
	return gateway.Outcome{}, true
}
