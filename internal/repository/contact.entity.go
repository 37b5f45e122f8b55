package repository

import (
	"github.com/nimasrn/payment-gateway/internal/model"
)

type ContactEntity struct {
	ID              int64   `db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	FirstName       string  `db:"first_name"       gorm:"column:first_name;not null"`
	LastName        string  `db:"last_name"        gorm:"column:last_name;not null"`
	Email           string  `db:"email"            gorm:"column:email"`
	Phone           string  `db:"phone"            gorm:"column:phone"`
	ProcessorRef    *string `db:"processor_ref"    gorm:"column:processor_ref;index"`
	BillingCity     string  `db:"billing_city"     gorm:"column:billing_city"`
	BillingCountry  string  `db:"billing_country"  gorm:"column:billing_country"`
	BillingLine1    string  `db:"billing_line1"    gorm:"column:billing_line1"`
	BillingLine2    string  `db:"billing_line2"    gorm:"column:billing_line2"`
	BillingPostcode string  `db:"billing_postcode" gorm:"column:billing_postcode"`
	BillingRegion   string  `db:"billing_region"   gorm:"column:billing_region"`
}

func (ContactEntity) TableName() string {
	return "contacts"
}

func toContactEntity(m *model.Contact) *ContactEntity {
	if m == nil {
		return nil
	}
	return &ContactEntity{
		ID:              m.ID,
		FirstName:       m.FirstName,
		LastName:        m.LastName,
		Email:           m.Email,
		Phone:           m.Phone,
		ProcessorRef:    m.ProcessorRef,
		BillingCity:     m.BillingCity,
		BillingCountry:  m.BillingCountry,
		BillingLine1:    m.BillingLine1,
		BillingLine2:    m.BillingLine2,
		BillingPostcode: m.BillingPostcode,
		BillingRegion:   m.BillingRegion,
	}
}

func toContactModel(e *ContactEntity) *model.Contact {
	if e == nil {
		return nil
	}
	return &model.Contact{
		ID:              e.ID,
		FirstName:       e.FirstName,
		LastName:        e.LastName,
		Email:           e.Email,
		Phone:           e.Phone,
		ProcessorRef:    e.ProcessorRef,
		BillingCity:     e.BillingCity,
		BillingCountry:  e.BillingCountry,
		BillingLine1:    e.BillingLine1,
		BillingLine2:    e.BillingLine2,
		BillingPostcode: e.BillingPostcode,
		BillingRegion:   e.BillingRegion,
	}
}
