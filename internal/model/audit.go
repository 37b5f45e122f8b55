package model

import "time"

// PaymentAudit is one consumed payment event, persisted by the events
// consumer as an immutable audit trail alongside the ledger.
type PaymentAudit struct {
	ID              int64           `json:"id"`
	PaymentID       int64           `json:"payment_id"`
	TransactionType TransactionType `json:"transaction_type"`
	Status          string          `json:"status"`
	Success         bool            `json:"success"`
	Amount          float64         `json:"amount"`
	OrderID         *int64          `json:"order_id,omitempty"`
	InvoiceID       *int64          `json:"invoice_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (PaymentAudit) TableName() string { return "payment_audits" }
