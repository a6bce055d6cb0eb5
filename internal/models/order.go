package models

// SentinelProductName marks rows stored for orders whose product lookup
// returned nothing. The retry-missing-products pipeline re-resolves them.
const SentinelProductName = "상품 정보 없음"

// OrderRow is one row of the uzu_orders table: one order/product pair.
// Multi-product orders expand into several rows sharing the order-level
// fields. Every column is marshalled on every row because PostgREST bulk
// upserts require uniform keys across the payload; absent timestamps stay
// nil so timestamptz columns receive NULL instead of an empty string.
type OrderRow struct {
	OrderCode   string `json:"order_code"`
	OrderNo     string `json:"order_no"`
	OrderType   string `json:"order_type"`
	OrderStatus string `json:"order_status"`

	OrderTime    *string `json:"order_time"`
	PaymentTime  *string `json:"payment_time"`
	CompleteTime *string `json:"complete_time"`

	OrdererName  string `json:"orderer_name"`
	OrdererEmail string `json:"orderer_email"`
	OrdererPhone string `json:"orderer_phone"`

	DeliveryName          string `json:"delivery_name"`
	DeliveryPhone         string `json:"delivery_phone"`
	DeliveryPostcode      string `json:"delivery_postcode"`
	DeliveryAddress       string `json:"delivery_address"`
	DeliveryAddressDetail string `json:"delivery_address_detail"`

	PaymentType         string `json:"payment_type"`
	OrderTotalAmount    int    `json:"order_total_amount"`
	OrderDiscountAmount int    `json:"order_discount_amount"`
	DeliveryFee         int    `json:"delivery_fee"`
	CouponDiscount      int    `json:"coupon_discount"`
	PointUsed           int    `json:"point_used"`
	OrderPaymentAmount  int    `json:"order_payment_amount"`

	DeviceType string `json:"device_type"`
	IsGift     string `json:"is_gift"`

	ProdNo             string `json:"prod_no"`
	ProdName           string `json:"prod_name"`
	ProdQuantity       int    `json:"prod_quantity"`
	ProdPrice          int    `json:"prod_price"`
	ProdDiscountAmount int    `json:"prod_discount_amount"`
}

// Key identifies a row by the default conflict columns (order_no, prod_no).
func (r OrderRow) Key() string {
	return r.OrderNo + "\x1f" + r.ProdNo
}

// CodeKey identifies a row by (order_code, prod_no). WooCommerce CSV exports
// upsert on these columns because their order numbers collide with native
// imweb order numbers only through the prefixed code.
func (r OrderRow) CodeKey() string {
	return r.OrderCode + "\x1f" + r.ProdNo
}

// DedupLast collapses rows sharing a key. The last occurrence wins, at the
// position where the key first appeared, so re-collected orders overwrite
// stale rows without reshuffling the batch layout.
func DedupLast(rows []OrderRow, key func(OrderRow) string) []OrderRow {
	if len(rows) == 0 {
		return rows
	}
	index := make(map[string]int, len(rows))
	out := make([]OrderRow, 0, len(rows))
	for _, row := range rows {
		k := key(row)
		if at, ok := index[k]; ok {
			out[at] = row
			continue
		}
		index[k] = len(out)
		out = append(out, row)
	}
	return out
}
