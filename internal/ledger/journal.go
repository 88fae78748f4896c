package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationRecord is the audit trail of inbound webhook deliveries.
// The raw payload is kept so an operator can replay or manually reconcile
// a delivery whose ledger write failed.
type NotificationRecord struct {
	ID          string         `gorm:"type:char(36);primaryKey"`
	Provider    string         `gorm:"type:varchar(64);not null;index:ix_provider_events_provider"`
	PaymentRef  string         `gorm:"type:varchar(128);index:ix_provider_events_payment_ref"`
	Kind        string         `gorm:"type:varchar(32);not null"`
	PayloadJSON datatypes.JSON `gorm:"type:json;not null"`

	Outcome      string    `gorm:"type:varchar(32)"`
	Reason       string    `gorm:"type:varchar(255)"`
	ProcessError *string   `gorm:"type:varchar(255)"`
	ReceivedAt   time.Time `gorm:"type:datetime(3);not null"`
}

func (NotificationRecord) TableName() string { return "provider_events" }

// Journal records every inbound notification with its outcome.
type Journal interface {
	Record(ctx context.Context, rec NotificationRecord)
}

type GormJournal struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewGormJournal(db *gorm.DB) *GormJournal {
	return &GormJournal{db: db, logger: slog.Default()}
}

func (j *GormJournal) SetLogger(logger *slog.Logger) { j.logger = logger }

// Record is best effort: a journal failure is logged, never propagated.
// The acknowledgment contract to the processor does not depend on it.
func (j *GormJournal) Record(ctx context.Context, rec NotificationRecord) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now()
	}
	if len(rec.PayloadJSON) == 0 {
		rec.PayloadJSON = datatypes.JSON(json.RawMessage(`{}`))
	}
	rec.Reason = truncate(rec.Reason, 250)
	if rec.ProcessError != nil {
		msg := truncate(*rec.ProcessError, 250)
		rec.ProcessError = &msg
	}
	if err := j.db.WithContext(ctx).Create(&rec).Error; err != nil {
		j.logger.ErrorContext(ctx, "failed to persist provider event",
			"provider", rec.Provider, "payment_ref", rec.PaymentRef, "err", err)
	}
}

// NopJournal discards records; used when no database is configured.
type NopJournal struct{}

func (NopJournal) Record(context.Context, NotificationRecord) {}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
