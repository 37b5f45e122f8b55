package repository

import (
	"github.com/nimasrn/payment-gateway/internal/model"
)

type OrderEntity struct {
	ID          int64   `db:"id"           gorm:"primaryKey;autoIncrement;column:id"`
	ContactID   *int64  `db:"contact_id"   gorm:"column:contact_id;index"`
	Total       float64 `db:"total"        gorm:"column:total;not null"`
	CardType    *string `db:"card_type"    gorm:"column:card_type"`
	CardNumber  *string `db:"card_number"  gorm:"column:card_number"`
	CardExpires *string `db:"card_expires" gorm:"column:card_expires"`
}

func (OrderEntity) TableName() string {
	return "orders"
}

func toOrderEntity(m *model.Order) *OrderEntity {
	if m == nil {
		return nil
	}
	return &OrderEntity{
		ID:          m.ID,
		ContactID:   m.ContactID,
		Total:       m.Total,
		CardType:    m.CardType,
		CardNumber:  m.CardNumber,
		CardExpires: m.CardExpires,
	}
}

func toOrderModel(e *OrderEntity) *model.Order {
	if e == nil {
		return nil
	}
	return &model.Order{
		ID:          e.ID,
		ContactID:   e.ContactID,
		Total:       e.Total,
		CardType:    e.CardType,
		CardNumber:  e.CardNumber,
		CardExpires: e.CardExpires,
	}
}
