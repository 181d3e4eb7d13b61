package inventory

import "time"

// Level is the current value of one stock counter: the base stock of a simple
// product, or one option value of a variant product.
type Level struct {
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Category    string    `json:"category"`
	Group       string    `json:"group,omitempty"`
	Value       string    `json:"value,omitempty"`
	Stock       int       `json:"stock"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Filter narrows a stock report.
type Filter struct {
	Category string
	// Below keeps only counters with stock strictly below the threshold. Zero
	// keeps everything.
	Below int
}

// CategoryTotal sums every counter of a category.
type CategoryTotal struct {
	Category string `json:"category"`
	Products int    `json:"products"`
	Counters int    `json:"counters"`
	Stock    int    `json:"stock"`
	SoldOut  int    `json:"sold_out"`
}
