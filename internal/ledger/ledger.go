// Package ledger is the boundary to the billing system that owns invoice
// and transaction state. The gateway only reads invoices and applies the
// paid transition through it; it holds no storage of its own.
package ledger

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrDuplicateTransaction means a transaction with the same payment
	// reference already exists. Callers treat it as an idempotent no-op.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrAlreadyPaid means the invoice was marked paid by an earlier or
	// concurrent delivery. Also an idempotent no-op.
	ErrAlreadyPaid = errors.New("invoice already paid")
)

// WriteError wraps a persistence failure during the paid transition.
// It must stay distinguishable from business no-ops: the processor
// believes the notification was handled and will not retry forever,
// so the front door escalates these.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("ledger write failed: %v", e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

type MarkPaidInput struct {
	InvoiceID  int64
	PaymentRef string
	Amount     float64
	Currency   string
	Note       string
}

// Ledger exposes the invoice/transaction state owned by the billing system.
//
// MarkPaid records the transaction keyed by PaymentRef and marks the
// invoice paid as one atomic unit: either both writes land or neither
// does. Duplicate deliveries surface as ErrDuplicateTransaction or
// ErrAlreadyPaid, never as a second paid transition.
type Ledger interface {
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	GetTransactionByReference(ctx context.Context, paymentRef string) (Transaction, error)
	MarkPaid(ctx context.Context, in MarkPaidInput) error
}
