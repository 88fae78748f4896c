package ledger

import "time"

const (
	InvoiceStatusUnpaid = "unpaid"
	InvoiceStatusPaid   = "paid"
)

type Invoice struct {
	ID       int64   `gorm:"primaryKey;autoIncrement"`
	Nr       string  `gorm:"type:varchar(32)"`
	Hash     string  `gorm:"type:varchar(64);index:ix_invoices_hash"`
	Status   string  `gorm:"type:varchar(32);not null;default:'unpaid'"`
	Total    float64 `gorm:"type:decimal(18,2);not null"`
	Currency string  `gorm:"type:char(3);not null"`

	BuyerFirstName string `gorm:"type:varchar(100)"`
	BuyerLastName  string `gorm:"type:varchar(100)"`
	BuyerEmail     string `gorm:"type:varchar(255)"`

	PaidAt    *time.Time `gorm:"type:datetime(3)"`
	CreatedAt time.Time  `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time  `gorm:"type:datetime(3);not null"`
}

func (Invoice) TableName() string { return "invoices" }

func (i Invoice) Paid() bool { return i.Status == InvoiceStatusPaid }

type Transaction struct {
	ID        string  `gorm:"type:char(36);primaryKey"`
	InvoiceID int64   `gorm:"not null;index:ix_transactions_invoice_id"`
	// Unique index carries the at-most-once guarantee under concurrent
	// duplicate deliveries.
	PaymentRef string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_transactions_payment_ref"`
	Amount     float64   `gorm:"type:decimal(18,2);not null"`
	Currency   string    `gorm:"type:char(3);not null"`
	Status     string    `gorm:"type:varchar(32);not null"`
	Note       string    `gorm:"type:varchar(255)"`
	CreatedAt  time.Time `gorm:"type:datetime(3);not null"`
}

func (Transaction) TableName() string { return "transactions" }
