package repository

import (
	"time"

	"github.com/nimasrn/payment-gateway/internal/model"
)

type PaymentEntity struct {
	ID              int64      `db:"id"                  gorm:"primaryKey;autoIncrement;column:id"`
	TransactionType string     `db:"transaction_type"    gorm:"column:transaction_type;not null;index"`
	Provider        string     `db:"provider"            gorm:"column:provider;not null"`
	Status          string     `db:"status"              gorm:"column:status"`
	StatusDetail    string     `db:"status_detail"       gorm:"column:status_detail"`
	Reference       string     `db:"reference"           gorm:"column:reference;index"`
	Amount          float64    `db:"amount"              gorm:"column:amount;not null"`
	OrderID         *int64     `db:"order_id"            gorm:"column:order_id;index"`
	InvoiceID       *int64     `db:"invoice_id"          gorm:"column:invoice_id;index"`
	Moto            bool       `db:"moto"                gorm:"column:moto;not null;default:false"`
	Cancelled       bool       `db:"cancelled"           gorm:"column:cancelled;not null;default:false"`
	FraudScreened   bool       `db:"fraud_screened"      gorm:"column:fraud_screened;not null;default:false"`
	FraudTotalScore *int64     `db:"fraud_total_score"   gorm:"column:fraud_total_score"`
	FraudResult     *string    `db:"fraud_screen_result" gorm:"column:fraud_screen_result"`
	AddressResult   *string    `db:"address_result"      gorm:"column:address_result"`
	PostcodeResult  *string    `db:"postcode_result"     gorm:"column:postcode_result"`
	CV2Result       *string    `db:"cv2_result"          gorm:"column:cv2_result"`
	CardType        *string    `db:"card_type"           gorm:"column:card_type"`
	CardNumber      *string    `db:"card_number"         gorm:"column:card_number"`
	CardExpires     *string    `db:"card_expires"        gorm:"column:card_expires"`
	ThreeDSecure    bool       `db:"three_d_secure"      gorm:"column:three_d_secure;not null;default:false"`
	ExpiresOn       *time.Time `db:"expires_on"          gorm:"column:expires_on"`
	CreatedAt       time.Time  `db:"created_at"          gorm:"column:created_at;autoCreateTime"`
}

func (PaymentEntity) TableName() string {
	return "payments"
}

func toPaymentEntity(m *model.Payment) *PaymentEntity {
	if m == nil {
		return nil
	}
	return &PaymentEntity{
		ID:              m.ID,
		TransactionType: string(m.TransactionType),
		Provider:        string(m.Provider),
		Status:          m.Status,
		StatusDetail:    m.StatusDetail,
		Reference:       m.Reference,
		Amount:          m.Amount,
		OrderID:         m.OrderID,
		InvoiceID:       m.InvoiceID,
		Moto:            m.Moto,
		Cancelled:       m.Cancelled,
		FraudScreened:   m.FraudScreened,
		FraudTotalScore: m.FraudTotalScore,
		FraudResult:     m.FraudScreenResult,
		AddressResult:   m.AddressResult,
		PostcodeResult:  m.PostcodeResult,
		CV2Result:       m.CV2Result,
		CardType:        m.CardType,
		CardNumber:      m.CardNumber,
		CardExpires:     m.CardExpires,
		ThreeDSecure:    m.ThreeDSecure,
		ExpiresOn:       m.ExpiresOn,
		CreatedAt:       m.CreatedAt,
	}
}

func toPaymentModel(e *PaymentEntity) *model.Payment {
	if e == nil {
		return nil
	}
	return &model.Payment{
		ID:                e.ID,
		TransactionType:   model.TransactionType(e.TransactionType),
		Provider:          model.Provider(e.Provider),
		Status:            e.Status,
		StatusDetail:      e.StatusDetail,
		Reference:         e.Reference,
		Amount:            e.Amount,
		OrderID:           e.OrderID,
		InvoiceID:         e.InvoiceID,
		Moto:              e.Moto,
		Cancelled:         e.Cancelled,
		FraudScreened:     e.FraudScreened,
		FraudTotalScore:   e.FraudTotalScore,
		FraudScreenResult: e.FraudResult,
		AddressResult:     e.AddressResult,
		PostcodeResult:    e.PostcodeResult,
		CV2Result:         e.CV2Result,
		CardType:          e.CardType,
		CardNumber:        e.CardNumber,
		CardExpires:       e.CardExpires,
		ThreeDSecure:      e.ThreeDSecure,
		ExpiresOn:         e.ExpiresOn,
		CreatedAt:         e.CreatedAt,
	}
}

func toPaymentModels(entities []*PaymentEntity) []*model.Payment {
	if entities == nil {
		return nil
	}
	models := make([]*model.Payment, len(entities))
	for i, e := range entities {
		models[i] = toPaymentModel(e)
	}
	return models
}
