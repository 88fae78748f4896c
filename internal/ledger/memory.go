package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var errInjectedWriteFailure = errors.New("injected write failure")

// MemoryLedger is an in-process Ledger used by tests and the mock
// gateway driver. It mirrors the GormLedger semantics, including the
// at-most-once paid transition under concurrent MarkPaid calls.
type MemoryLedger struct {
	mu       sync.Mutex
	invoices map[int64]Invoice
	txns     map[string]Transaction // keyed by payment ref

	// FailWrites forces MarkPaid to fail after passing the business
	// checks; tests use it to exercise the write-failure path.
	FailWrites bool
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		invoices: make(map[int64]Invoice),
		txns:     make(map[string]Transaction),
	}
}

func (l *MemoryLedger) PutInvoice(inv Invoice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if inv.Status == "" {
		inv.Status = InvoiceStatusUnpaid
	}
	l.invoices[inv.ID] = inv
}

func (l *MemoryLedger) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	inv, ok := l.invoices[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	return inv, nil
}

func (l *MemoryLedger) GetTransactionByReference(ctx context.Context, paymentRef string) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.txns[paymentRef]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return t, nil
}

func (l *MemoryLedger) MarkPaid(ctx context.Context, in MarkPaidInput) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	inv, ok := l.invoices[in.InvoiceID]
	if !ok {
		return ErrNotFound
	}
	if inv.Status == InvoiceStatusPaid {
		return ErrAlreadyPaid
	}
	if _, ok := l.txns[in.PaymentRef]; ok {
		return ErrDuplicateTransaction
	}
	if l.FailWrites {
		return &WriteError{Err: errInjectedWriteFailure}
	}

	now := time.Now()
	l.txns[in.PaymentRef] = Transaction{
		ID:         uuid.NewString(),
		InvoiceID:  inv.ID,
		PaymentRef: in.PaymentRef,
		Amount:     in.Amount,
		Currency:   in.Currency,
		Status:     "processed",
		Note:       in.Note,
		CreatedAt:  now,
	}
	inv.Status = InvoiceStatusPaid
	inv.PaidAt = &now
	inv.UpdatedAt = now
	l.invoices[in.InvoiceID] = inv
	return nil
}

// TransactionCount reports how many transactions were recorded; test helper.
func (l *MemoryLedger) TransactionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.txns)
}
