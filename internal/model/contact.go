package model

// Contact is the local party a payment is collected from. ProcessorRef
// links it to the remote customer record; when set it must reference a
// live remote customer (the resolver self-heals stale links).
type Contact struct {
	ID           int64   `json:"id"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	ProcessorRef *string `json:"processor_ref,omitempty"`

	BillingCity     string `json:"billing_city,omitempty"`
	BillingCountry  string `json:"billing_country,omitempty"`
	BillingLine1    string `json:"billing_line1,omitempty"`
	BillingLine2    string `json:"billing_line2,omitempty"`
	BillingPostcode string `json:"billing_postcode,omitempty"`
	BillingRegion   string `json:"billing_region,omitempty"`
}

func (Contact) TableName() string { return "contacts" }

// HasBillingAddress reports whether enough address fields are present to
// send an address block to the processor.
func (c *Contact) HasBillingAddress() bool {
	return c.BillingLine1 != "" || c.BillingPostcode != "" || c.BillingCity != ""
}
