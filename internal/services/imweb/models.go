package imweb

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Text decodes JSON strings, numbers, and null into a plain string. The
// order API switches identifier fields between all three shapes.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	s, err := scalarToken(b)
	if err != nil {
		return err
	}
	*t = Text(s)
	return nil
}

// Amount decodes JSON numbers, numeric strings, and null into an int,
// truncating fractional prices. Unparseable values become zero so one
// malformed field cannot sink a whole page.
type Amount int

func (a *Amount) UnmarshalJSON(b []byte) error {
	s, err := scalarToken(b)
	if err != nil {
		return err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*a = 0
		return nil
	}
	*a = Amount(int(f))
	return nil
}

// Epoch is a unix-seconds timestamp with the same decoding tolerance as
// Amount. Zero means the platform never recorded the event.
type Epoch int64

func (e *Epoch) UnmarshalJSON(b []byte) error {
	s, err := scalarToken(b)
	if err != nil {
		return err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*e = 0
		return nil
	}
	*e = Epoch(int64(f))
	return nil
}

// scalarToken strips quoting from a JSON scalar and maps null to "".
func scalarToken(b []byte) (string, error) {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return "", nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var v string
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return "", err
		}
		return v, nil
	}
	return s, nil
}

// apiResponse is the envelope every endpoint wraps its payload in. Data is
// kept raw because its shape differs per endpoint (object for lists, array
// for prod-orders).
type apiResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// rateLimited reports the throttle response the API hides inside HTTP 200.
func (r apiResponse) rateLimited() bool {
	return r.Code == -7 && strings.Contains(r.Msg, "TOO MANY REQUEST")
}

// Pagination mirrors the list endpoint's counters. The json tag keeps the
// API's spelling.
type Pagination struct {
	DataCount   Amount `json:"data_count"`
	Pagesize    Amount `json:"pagesize"`
	TotalPage   Amount `json:"total_page"`
	CurrentPage Amount `json:"current_page"`
}

// PageSize returns the effective page size, defaulting to the API maximum.
func (p Pagination) PageSize() int {
	if p.Pagesize <= 0 {
		return 100
	}
	return int(p.Pagesize)
}

// Pages returns the page count, derived from the row count when the API
// omits total_page.
func (p Pagination) Pages() int {
	if p.TotalPage > 0 {
		return int(p.TotalPage)
	}
	size := p.PageSize()
	pages := (int(p.DataCount) + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	return pages
}

// OrderList is the data payload of the order list endpoint.
type OrderList struct {
	List       []Order    `json:"list"`
	Pagination Pagination `json:"pagenation"`
}

type Orderer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Call  Text   `json:"call"`
}

type DeliveryAddress struct {
	Name          string `json:"name"`
	Phone         Text   `json:"phone"`
	Postcode      Text   `json:"postcode"`
	Address       string `json:"address"`
	AddressDetail string `json:"address_detail"`
}

type Delivery struct {
	Address DeliveryAddress `json:"address"`
}

type Payment struct {
	PayType       string `json:"pay_type"`
	TotalPrice    Amount `json:"total_price"`
	PriceSale     Amount `json:"price_sale"`
	DelivPrice    Amount `json:"deliv_price"`
	Coupon        Amount `json:"coupon"`
	Point         Amount `json:"point"`
	PaymentAmount Amount `json:"payment_amount"`
	PaymentTime   Epoch  `json:"payment_time"`
}

type Device struct {
	Type string `json:"type"`
}

// Order is one order as the list and detail endpoints report it.
type Order struct {
	OrderCode    Text     `json:"order_code"`
	OrderNo      Text     `json:"order_no"`
	OrderType    string   `json:"order_type"`
	OrderTime    Epoch    `json:"order_time"`
	CompleteTime Epoch    `json:"complete_time"`
	Orderer      Orderer  `json:"orderer"`
	Delivery     Delivery `json:"delivery"`
	Payment      Payment  `json:"payment"`
	Device       Device   `json:"device"`
	IsGift       Text     `json:"is_gift"`
}

// ProdOrder is one fulfillment group of an order; its status applies to
// every item inside it.
type ProdOrder struct {
	Status string          `json:"status"`
	Items  []ProdOrderItem `json:"items"`
}

type ProdOrderItem struct {
	ProdNo   Text        `json:"prod_no"`
	ProdName string      `json:"prod_name"`
	Payment  ItemPayment `json:"payment"`
}

// ItemPayment carries the per-item amounts. Count is a pointer because the
// API omits it for single-quantity items.
type ItemPayment struct {
	Count     *Amount `json:"count"`
	Price     Amount  `json:"price"`
	PriceSale Amount  `json:"price_sale"`
}

// Product is one sellable line flattened out of a prod-orders response.
type Product struct {
	ProdNo    string
	ProdName  string
	Quantity  int
	Price     int
	PriceSale int
	Status    string
}

// flattenProducts expands prod-order groups into per-item products, skipping
// items without a name. A missing count means quantity one.
func flattenProducts(prodOrders []ProdOrder) []Product {
	var products []Product
	for _, po := range prodOrders {
		for _, item := range po.Items {
			if item.ProdName == "" {
				continue
			}
			quantity := 1
			if item.Payment.Count != nil {
				quantity = int(*item.Payment.Count)
			}
			products = append(products, Product{
				ProdNo:    string(item.ProdNo),
				ProdName:  item.ProdName,
				Quantity:  quantity,
				Price:     int(item.Payment.Price),
				PriceSale: int(item.Payment.PriceSale),
				Status:    po.Status,
			})
		}
	}
	return products
}
