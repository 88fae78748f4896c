package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLedger persists invoices and transactions through gorm/MySQL.
type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	var inv Invoice
	if err := l.db.WithContext(ctx).First(&inv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, err
	}
	return inv, nil
}

func (l *GormLedger) GetTransactionByReference(ctx context.Context, paymentRef string) (Transaction, error) {
	var t Transaction
	if err := l.db.WithContext(ctx).First(&t, "payment_ref = ?", paymentRef).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, err
	}
	return t, nil
}

func (l *GormLedger) MarkPaid(ctx context.Context, in MarkPaidInput) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv Invoice
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&inv, "id = ?", in.InvoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if inv.Status == InvoiceStatusPaid {
			return ErrAlreadyPaid
		}

		now := time.Now()
		t := Transaction{
			ID:         uuid.NewString(),
			InvoiceID:  inv.ID,
			PaymentRef: in.PaymentRef,
			Amount:     in.Amount,
			Currency:   in.Currency,
			Status:     "processed",
			Note:       in.Note,
			CreatedAt:  now,
		}
		// dedupe: unique(payment_ref)
		if err := tx.WithContext(ctx).Create(&t).Error; err != nil {
			if isDup(err) {
				return ErrDuplicateTransaction
			}
			return err
		}

		paidAt := now
		return tx.WithContext(ctx).Model(&Invoice{}).
			Where("id = ? AND status = ?", inv.ID, InvoiceStatusUnpaid).
			Updates(map[string]any{
				"status":     InvoiceStatusPaid,
				"paid_at":    &paidAt,
				"updated_at": now,
			}).Error
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyPaid) || errors.Is(err, ErrDuplicateTransaction) || errors.Is(err, ErrNotFound) {
			return err
		}
		return &WriteError{Err: err}
	}
	return nil
}

func isDup(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
