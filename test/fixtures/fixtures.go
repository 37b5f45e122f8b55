package fixtures

import (
	"time"

	"github.com/nimasrn/payment-gateway/internal/model"
)

var (
	TestContact1 = model.Contact{
		ID:              1,
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@example.com",
		BillingLine1:    "1 High Street",
		BillingCity:     "London",
		BillingPostcode: "N1 1AA",
		BillingCountry:  "GB",
	}

	TestContact2 = model.Contact{
		ID:        2,
		FirstName: "Alan",
		LastName:  "Turing",
		Email:     "alan@example.com",
	}
)

func NewTestOrder(contactID int64, total float64) *model.Order {
	return &model.Order{
		ID:        0,
		ContactID: &contactID,
		Total:     total,
	}
}

func NewTestPayment(orderID int64, transactionType model.TransactionType, status string, amount float64) *model.Payment {
	return &model.Payment{
		ID:              0,
		TransactionType: transactionType,
		Provider:        model.ProviderStripe,
		Status:          status,
		Amount:          amount,
		OrderID:         &orderID,
		CreatedAt:       time.Now(),
	}
}

func RegisterRequestForOrder(orderID int64, total float64) model.RegisterRequest {
	return model.RegisterRequest{
		OrderID: &orderID,
		Total:   total,
	}
}

func RegisterRequestForInvoice(invoiceID int64, total float64) model.RegisterRequest {
	return model.RegisterRequest{
		InvoiceID: &invoiceID,
		Total:     total,
	}
}

func RegisterRequestMoto(orderID int64, total float64, paymentMethodID string) model.RegisterRequest {
	return model.RegisterRequest{
		OrderID:         &orderID,
		Total:           total,
		PaymentMethodID: paymentMethodID,
	}
}

func RegisterRequestInvalidTotal(orderID int64) model.RegisterRequest {
	return model.RegisterRequest{
		OrderID: &orderID,
		Total:   0,
	}
}

var (
	AuthoriseSuccessStatuses = []string{"requires_capture", "succeeded"}
	RefundSuccessStatuses    = []string{"succeeded", "pending"}
)

func PaymentFilterByOrder(orderID int64) model.PaymentFilter {
	return model.PaymentFilter{
		OrderID: &orderID,
		Limit:   50,
		Offset:  0,
		Desc:    false,
	}
}

func PaymentFilterByType(orderID int64, types ...model.TransactionType) model.PaymentFilter {
	return model.PaymentFilter{
		OrderID: &orderID,
		Types:   types,
		Limit:   50,
		Offset:  0,
		Desc:    false,
	}
}

func PaymentFilterByTimeRange(orderID int64, from, to time.Time) model.PaymentFilter {
	return model.PaymentFilter{
		OrderID: &orderID,
		From:    &from,
		To:      &to,
		Limit:   50,
		Offset:  0,
		Desc:    false,
	}
}
