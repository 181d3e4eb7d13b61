package order

import (
	"time"
)

// Status represents the lifecycle state of a supply order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusApproved, StatusShipped, StatusDelivered}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Requester is who asked for the supplies, captured when the order is placed.
type Requester struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Recipient is where the supplies go. Free text.
type Recipient struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Address string `json:"address"`
}

// Order is a supply request for one product. Product fields are a snapshot
// taken at order time; later catalog edits do not change them.
type Order struct {
	ID              string            `json:"id"`
	OrderNumber     string            `json:"order_number"`
	Requester       Requester         `json:"requester"`
	ProductID       string            `json:"product_id"`
	ProductName     string            `json:"product_name"`
	ProductCategory string            `json:"product_category"`
	Quantity        int               `json:"quantity"`
	Selections      map[string]string `json:"selections"`
	Recipient       Recipient         `json:"recipient"`
	Status          Status            `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Clone returns a deep copy of o.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Selections = make(map[string]string, len(o.Selections))
	for k, v := range o.Selections {
		c.Selections[k] = v
	}
	return &c
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status      Status
	RequesterID string
	ProductID   string
}

// Matches reports whether o passes the filter.
func (f Filter) Matches(o *Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.RequesterID != "" && o.Requester.ID != f.RequesterID {
		return false
	}
	if f.ProductID != "" && o.ProductID != f.ProductID {
		return false
	}
	return true
}

// PlaceOrderRequest is the payload for creating a new order.
type PlaceOrderRequest struct {
	Requester  Requester         `json:"-"`
	ProductID  string            `json:"product_id"`
	Selections map[string]string `json:"selections"`
	Quantity   int               `json:"quantity"`
	Recipient  Recipient         `json:"recipient"`
}

// UpdateStatusRequest is the payload for moving an order to another status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}
