package woocommerce

import "strconv"

// Order is one wc/v3 order payload, trimmed to the fields the sync reads.
type Order struct {
	ID            int64      `json:"id"`
	Status        string     `json:"status"`
	DateCreated   string     `json:"date_created"`
	DatePaid      string     `json:"date_paid"`
	Total         string     `json:"total"`
	DiscountTotal string     `json:"discount_total"`
	Billing       Billing    `json:"billing"`
	LineItems     []LineItem `json:"line_items"`
}

type Billing struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type LineItem struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Total     string `json:"total"`
}

// Page carries the list totals reported through the X-WP-* response headers.
type Page struct {
	Total      int
	TotalPages int
}

// HasProduct reports whether any line item is for the given product.
func (o Order) HasProduct(productID int64) bool {
	for _, item := range o.LineItems {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// PaymentTime returns the paid timestamp, falling back to the created one
// for orders the store never marked as paid.
func (o Order) PaymentTime() string {
	if o.DatePaid != "" {
		return o.DatePaid
	}
	return o.DateCreated
}

// money reads a wc/v3 money string. The API quotes every amount; fractions
// truncate because the table stores whole currency units.
func money(s string) int {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f)
}
