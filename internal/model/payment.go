package model

import (
	"errors"
	"math"
	"time"
)

// TransactionType is the lifecycle step a payment row records.
type TransactionType string

const (
	TypeRegister  TransactionType = "REGISTER"
	TypeAuthorise TransactionType = "AUTHORISE"
	TypeCapture   TransactionType = "CAPTURE"
	TypeRefund    TransactionType = "REFUND"
	TypeCancel    TransactionType = "CANCEL"
	TypeUpdate    TransactionType = "UPDATE"
	TypeVoid      TransactionType = "VOID"
)

type Provider string

const ProviderStripe Provider = "stripe"

// StatusError is the sentinel status recorded when the processor call
// itself failed. StatusDetail carries the processor message in that case.
const StatusError = "error"

// Payment is one ledger row per lifecycle attempt. Rows are never
// deleted; cancellation is a new row plus the Cancelled flag on the
// prior authorisation row.
type Payment struct {
	ID              int64           `json:"id"`
	TransactionType TransactionType `json:"transaction_type"`
	Provider        Provider        `json:"provider"`
	Status          string          `json:"status"`
	StatusDetail    string          `json:"status_detail,omitempty"`
	// Reference is the processor-side id for this step: a payment-intent
	// id, a charge id (capture) or a refund id (refund).
	Reference string `json:"reference,omitempty"`
	// Amount in major currency units. Refunds are stored negative.
	Amount    float64 `json:"amount"`
	OrderID   *int64  `json:"order_id,omitempty"`
	InvoiceID *int64  `json:"invoice_id,omitempty"`
	Moto      bool    `json:"moto"`
	Cancelled bool    `json:"cancelled"`

	FraudScreened     bool    `json:"fraud_screened"`
	FraudTotalScore   *int64  `json:"fraud_total_score,omitempty"`
	FraudScreenResult *string `json:"fraud_screen_result,omitempty"`

	// Card verification outcomes. Nil means the check was not performed.
	AddressResult  *string `json:"address_result,omitempty"`
	PostcodeResult *string `json:"postcode_result,omitempty"`
	CV2Result      *string `json:"cv2_result,omitempty"`

	CardType     *string `json:"card_type,omitempty"`
	CardNumber   *string `json:"card_number,omitempty"` // last 4 digits only
	CardExpires  *string `json:"card_expires,omitempty"`
	ThreeDSecure bool    `json:"three_d_secure"`

	// ExpiresOn is the authorisation hold deadline. Only meaningful for
	// AUTHORISE rows.
	ExpiresOn *time.Time `json:"expires_on,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Payment) TableName() string { return "payments" }

// MinorUnits converts a major-unit amount to the integer minor units the
// processor expects, e.g. 49.99 -> 4999.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// MajorUnits converts processor minor units back to major units at rest.
func MajorUnits(amount int64) float64 {
	return float64(amount) / 100
}

// successStatuses holds, per provider and transaction type, the processor
// statuses that count as success. Types absent here (REGISTER, UPDATE,
// CANCEL) succeed on any non-error outcome.
var successStatuses = map[Provider]map[TransactionType][]string{
	ProviderStripe: {
		TypeAuthorise: {"requires_capture", "succeeded"},
		TypeCapture:   {"succeeded"},
		TypeRefund:    {"succeeded", "pending"},
	},
}

// IsSuccessStatus reports whether status is in the accepted set for the
// given provider and transaction type.
func IsSuccessStatus(provider Provider, typ TransactionType, status string) bool {
	for _, s := range successStatuses[provider][typ] {
		if s == status {
			return true
		}
	}
	return false
}

// RegisterRequest is the input for registering a payment intent.
type RegisterRequest struct {
	ContactID       *int64
	OrderID         *int64
	InvoiceID       *int64
	Total           float64
	PaymentMethodID string
	ReturnURL       string
}

func (p RegisterRequest) Validate() error {
	if p.Total <= 0 {
		return errors.New("total must be positive")
	}
	if p.OrderID != nil && p.InvoiceID != nil {
		return errors.New("order_id and invoice_id are mutually exclusive")
	}
	return nil
}

// PaymentFilter controls List queries over the ledger.
type PaymentFilter struct {
	OrderID   *int64
	InvoiceID *int64
	Types     []TransactionType
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
	Desc      bool
}

// PaymentEvent is published onto the payment event stream after every
// persisted ledger row. Observational only.
type PaymentEvent struct {
	PaymentID       int64           `json:"payment_id"`
	TransactionType TransactionType `json:"transaction_type"`
	Status          string          `json:"status"`
	Success         bool            `json:"success"`
	Amount          float64         `json:"amount"`
	OrderID         *int64          `json:"order_id,omitempty"`
	InvoiceID       *int64          `json:"invoice_id,omitempty"`
}
