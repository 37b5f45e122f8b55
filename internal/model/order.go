package model

// Order carries the fields this core reads and writes: the total used at
// registration and the card summary copied on from a successful charge.
type Order struct {
	ID          int64   `json:"id"`
	ContactID   *int64  `json:"contact_id,omitempty"`
	Total       float64 `json:"total"`
	CardType    *string `json:"card_type,omitempty"`
	CardNumber  *string `json:"card_number,omitempty"`
	CardExpires *string `json:"card_expires,omitempty"`
}

func (Order) TableName() string { return "orders" }
