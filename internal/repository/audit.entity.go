package repository

import (
	"time"

	"github.com/nimasrn/payment-gateway/internal/model"
)

type PaymentAuditEntity struct {
	ID              int64     `db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	PaymentID       int64     `db:"payment_id"       gorm:"column:payment_id;not null;index"`
	TransactionType string    `db:"transaction_type" gorm:"column:transaction_type;not null"`
	Status          string    `db:"status"           gorm:"column:status"`
	Success         bool      `db:"success"          gorm:"column:success;not null;default:false"`
	Amount          float64   `db:"amount"           gorm:"column:amount;not null"`
	OrderID         *int64    `db:"order_id"         gorm:"column:order_id;index"`
	InvoiceID       *int64    `db:"invoice_id"       gorm:"column:invoice_id;index"`
	CreatedAt       time.Time `db:"created_at"       gorm:"column:created_at;autoCreateTime"`
}

func (PaymentAuditEntity) TableName() string {
	return "payment_audits"
}

func toPaymentAuditEntity(m *model.PaymentAudit) *PaymentAuditEntity {
	if m == nil {
		return nil
	}
	return &PaymentAuditEntity{
		ID:              m.ID,
		PaymentID:       m.PaymentID,
		TransactionType: string(m.TransactionType),
		Status:          m.Status,
		Success:         m.Success,
		Amount:          m.Amount,
		OrderID:         m.OrderID,
		InvoiceID:       m.InvoiceID,
		CreatedAt:       m.CreatedAt,
	}
}

func toPaymentAuditModel(e *PaymentAuditEntity) *model.PaymentAudit {
	if e == nil {
		return nil
	}
	return &model.PaymentAudit{
		ID:              e.ID,
		PaymentID:       e.PaymentID,
		TransactionType: model.TransactionType(e.TransactionType),
		Status:          e.Status,
		Success:         e.Success,
		Amount:          e.Amount,
		OrderID:         e.OrderID,
		InvoiceID:       e.InvoiceID,
		CreatedAt:       e.CreatedAt,
	}
}
