package finance

import (
	"github.com/google/uuid"
	"github.com/pesaflow/backend/internal/domain/shared"
)

// NotificationLog is the audit record of one inbound payment notification,
// malformed ones included. It is written once on arrival and updated at most
// once to record the outcome; rows are never deleted.
type NotificationLog struct {
	shared.BaseEntity
	ReceiptNumber string     `gorm:"type:varchar(64);not null;index"`
	CorrelationID string     `gorm:"type:varchar(64);index"`
	RawPayload    string     `gorm:"type:text"`
	Processed     bool       `gorm:"not null;default:false"`
	Duplicate     bool       `gorm:"not null;default:false"`
	ErrorText     string     `gorm:"type:text"`
	PaymentID     *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (NotificationLog) TableName() string {
	return "notification_logs"
}

// NewNotificationLog records an inbound notification before processing starts
func NewNotificationLog(receiptNumber, correlationID, rawPayload string) *NotificationLog {
	return &NotificationLog{
		BaseEntity:    shared.NewBaseEntity(),
		ReceiptNumber: receiptNumber,
		CorrelationID: correlationID,
		RawPayload:    rawPayload,
	}
}

// MarkProcessed records a successful settlement
func (n *NotificationLog) MarkProcessed(paymentID uuid.UUID) {
	n.Processed = true
	n.PaymentID = &paymentID
	n.Touch()
}

// MarkDuplicate records a rejected duplicate delivery
func (n *NotificationLog) MarkDuplicate(existingPaymentID *uuid.UUID) {
	n.Duplicate = true
	n.Processed = false
	n.PaymentID = existingPaymentID
	n.Touch()
}

// MarkFailed records the processing error for operational follow-up
func (n *NotificationLog) MarkFailed(errorText string) {
	n.Processed = false
	n.ErrorText = errorText
	n.Touch()
}
