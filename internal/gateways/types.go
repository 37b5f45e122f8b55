package gateway

import (
	"fmt"
	"net/url"
	"strconv"
)

// Error is the decoded processor error envelope. It is returned for any
// request the processor rejects, card declines included.
type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("stripe: %s", e.Message)
}

type errorWrapper struct {
	Error *Error `json:"error"`
}

type Customer struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

type PaymentMethod struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Customer string `json:"customer"`
}

type paymentMethodList struct {
	Data []PaymentMethod `json:"data"`
}

type PaymentIntent struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	Amount         int64  `json:"amount"`
	AmountReceived int64  `json:"amount_received"`
	Currency       string `json:"currency"`
	Customer       string `json:"customer"`
	LatestCharge   string `json:"latest_charge"`
	ClientSecret   string `json:"client_secret"`
}

type ChargeOutcome struct {
	RiskLevel     string `json:"risk_level"`
	RiskScore     int64  `json:"risk_score"`
	SellerMessage string `json:"seller_message"`
	Type          string `json:"type"`
}

type CardChecks struct {
	AddressLine1Check      *string `json:"address_line1_check"`
	AddressPostalCodeCheck *string `json:"address_postal_code_check"`
	CVCCheck               *string `json:"cvc_check"`
}

type ThreeDSecureDetails struct {
	Result string `json:"result"`
}

type CardDetails struct {
	Brand         string               `json:"brand"`
	Last4         string               `json:"last4"`
	ExpMonth      int64                `json:"exp_month"`
	ExpYear       int64                `json:"exp_year"`
	CaptureBefore int64                `json:"capture_before"`
	Checks        *CardChecks          `json:"checks"`
	ThreeDSecure  *ThreeDSecureDetails `json:"three_d_secure"`
}

type PaymentMethodDetails struct {
	Type string       `json:"type"`
	Card *CardDetails `json:"card"`
}

type Charge struct {
	ID                   string                `json:"id"`
	Status               string                `json:"status"`
	Amount               int64                 `json:"amount"`
	Outcome              *ChargeOutcome        `json:"outcome"`
	PaymentMethodDetails *PaymentMethodDetails `json:"payment_method_details"`
}

type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

// Address is the billing address block sent on customer create/update.
type Address struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

func (a *Address) encodeInto(v url.Values, prefix string) {
	set := func(key, val string) {
		if val != "" {
			v.Set(prefix+"["+key+"]", val)
		}
	}
	set("line1", a.Line1)
	set("line2", a.Line2)
	set("city", a.City)
	set("state", a.State)
	set("postal_code", a.PostalCode)
	set("country", a.Country)
}

type CustomerParams struct {
	Name     string
	Email    string
	Phone    string
	Address  *Address
	Metadata map[string]string
}

func (p *CustomerParams) Encode() url.Values {
	v := url.Values{}
	if p.Name != "" {
		v.Set("name", p.Name)
	}
	if p.Email != "" {
		v.Set("email", p.Email)
	}
	if p.Phone != "" {
		v.Set("phone", p.Phone)
	}
	if p.Address != nil {
		p.Address.encodeInto(v, "address")
	}
	for k, val := range p.Metadata {
		v.Set("metadata["+k+"]", val)
	}
	return v
}

type PaymentIntentParams struct {
	Amount             int64
	Currency           string
	CaptureMethod      string
	Customer           string
	PaymentMethod      string
	PaymentMethodTypes []string
	SetupFutureUsage   string
	ReturnURL          string
	Confirm            bool
	Moto               bool
	Metadata           map[string]string
}

func (p *PaymentIntentParams) Encode() url.Values {
	v := url.Values{}
	if p.Amount > 0 {
		v.Set("amount", strconv.FormatInt(p.Amount, 10))
	}
	if p.Currency != "" {
		v.Set("currency", p.Currency)
	}
	if p.CaptureMethod != "" {
		v.Set("capture_method", p.CaptureMethod)
	}
	if p.Customer != "" {
		v.Set("customer", p.Customer)
	}
	if p.PaymentMethod != "" {
		v.Set("payment_method", p.PaymentMethod)
	}
	for i, t := range p.PaymentMethodTypes {
		v.Set("payment_method_types["+strconv.Itoa(i)+"]", t)
	}
	if p.SetupFutureUsage != "" {
		v.Set("setup_future_usage", p.SetupFutureUsage)
	}
	if p.ReturnURL != "" {
		v.Set("return_url", p.ReturnURL)
	}
	if p.Confirm {
		v.Set("confirm", "true")
	}
	if p.Moto {
		v.Set("payment_method_options[card][moto]", "true")
	}
	for k, val := range p.Metadata {
		v.Set("metadata["+k+"]", val)
	}
	return v
}

type CaptureParams struct {
	AmountToCapture int64
}

func (p *CaptureParams) Encode() url.Values {
	v := url.Values{}
	if p.AmountToCapture > 0 {
		v.Set("amount_to_capture", strconv.FormatInt(p.AmountToCapture, 10))
	}
	return v
}

type RefundParams struct {
	Charge string
	Amount int64
	Reason string
}

func (p *RefundParams) Encode() url.Values {
	v := url.Values{}
	if p.Charge != "" {
		v.Set("charge", p.Charge)
	}
	if p.Amount > 0 {
		v.Set("amount", strconv.FormatInt(p.Amount, 10))
	}
	if p.Reason != "" {
		v.Set("reason", p.Reason)
	}
	return v
}
