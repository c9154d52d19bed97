package models

// Customer is a user-entered customer profile used as context for
// strategy matching.
type Customer struct {
	ID           string  `json:"id"` // cust_{uuid}
	Name         string  `json:"name" validate:"required,max=200"`
	Equipment    string  `json:"equipment"`
	Capacity     string  `json:"capacity"`
	RawMaterials string  `json:"raw_materials"`
	Products     string  `json:"products"`
	GrossMargin  float64 `json:"gross_margin" validate:"gte=-100,lte=100"` // percent
}
