package domain

import "time"

// Inventory unit state constants.
const (
	UnitStateOnHand   = "on_hand"
	UnitStateShipped  = "shipped"
	UnitStateReturned = "returned"
)

// Order is the read-side order aggregate this service evaluates return
// requests against. The order service owns the write side; here the
// aggregate is loaded fully (line items, inventory units, adjustments)
// because proration and eligibility both need the whole picture.
type Order struct {
	ID          string       `json:"id"`
	Number      string       `json:"number"`
	UserID      string       `json:"user_id,omitempty"` // empty for anonymous (guest) orders
	Email       string       `json:"email"`
	Token       string       `json:"-"` // opaque bearer secret, never serialized
	Currency    string       `json:"currency"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	LineItems   []LineItem   `json:"line_items"`
	Adjustments []Adjustment `json:"adjustments,omitempty"` // order-level promotions
}

// LineItem is one purchasable line of an order.
type LineItem struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	VariantID   string          `json:"variant_id"`
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Price       int64           `json:"price"` // unit price in cents
	Quantity    int             `json:"quantity"`
	Adjustments []Adjustment    `json:"adjustments,omitempty"` // line-level promotions
	Units       []InventoryUnit `json:"units"`
}

// InventoryUnit is one physical unit tracked for a line item.
type InventoryUnit struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	LineItemID string `json:"line_item_id"`
	VariantID  string `json:"variant_id"`
	State      string `json:"state"`
}

// Adjustment is a promotion applied either to a single line item or to the
// order as a whole. Amount is negative for discounts.
type Adjustment struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

// IsComplete reports whether checkout has finished for the order.
func (o *Order) IsComplete() bool {
	return o.CompletedAt != nil
}

// Units returns every inventory unit of the order in line-item order.
// This ordering is the stable order proration relies on.
func (o *Order) Units() []InventoryUnit {
	var units []InventoryUnit
	for _, li := range o.LineItems {
		units = append(units, li.Units...)
	}
	return units
}

// ShippedUnits returns the order's units currently in the shipped state.
func (o *Order) ShippedUnits() []InventoryUnit {
	var shipped []InventoryUnit
	for _, u := range o.Units() {
		if u.State == UnitStateShipped {
			shipped = append(shipped, u)
		}
	}
	return shipped
}

// LineItemByID returns the line item with the given ID, or nil.
func (o *Order) LineItemByID(id string) *LineItem {
	for i := range o.LineItems {
		if o.LineItems[i].ID == id {
			return &o.LineItems[i]
		}
	}
	return nil
}
