package woocommerce

import (
	"strconv"
	"strings"

	"github.com/noisycontents/uzu-orders/internal/models"
	"github.com/noisycontents/uzu-orders/internal/normalize"
)

// sentinelProdNo keys rows stored for orders without line items. The store
// has no product to resolve, so a fixed non-null code keeps the conflict key
// usable.
const sentinelProdNo = "0"

// statusNames maps wc/v3 statuses onto the labels the rest of the table uses.
var statusNames = map[string]string{
	"pending":    "결제대기",
	"processing": "주문접수",
	"on-hold":    "보류",
	"completed":  "배송완료",
	"cancelled":  "CANCEL",
	"refunded":   "환불됨",
	"failed":     "결제실패",
}

// Mapper turns store orders into table rows, one per target-product line.
type Mapper struct {
	phones        *normalize.PhoneNormalizer
	targetProduct int64
}

func NewMapper(phones *normalize.PhoneNormalizer, targetProduct int64) *Mapper {
	return &Mapper{phones: phones, targetProduct: targetProduct}
}

// Rows maps one order. An order without line items keeps its sentinel row;
// an order whose items all miss the target product contributes nothing.
func (m *Mapper) Rows(o Order) []models.OrderRow {
	base := m.orderFields(o)
	total := money(o.Total)
	discount := money(o.DiscountTotal)

	if len(o.LineItems) == 0 {
		row := base
		row.ProdNo = sentinelProdNo
		row.ProdName = models.SentinelProductName
		row.ProdQuantity = 1
		row.ProdPrice = total
		row.CouponDiscount = discount
		row.OrderPaymentAmount = total
		return []models.OrderRow{row}
	}

	var rows []models.OrderRow
	for _, item := range o.LineItems {
		if item.ProductID != m.targetProduct {
			continue
		}
		row := base
		row.ProdNo = strconv.FormatInt(item.ProductID, 10)
		row.ProdName = item.Name
		row.ProdQuantity = item.Quantity
		if row.ProdQuantity == 0 {
			row.ProdQuantity = 1
		}
		row.ProdPrice = money(item.Total) + discount
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil
	}

	// Order-level amounts split across the emitted rows; the first row
	// absorbs the integer remainder.
	discountShare := discount / len(rows)
	paymentShare := total / len(rows)
	for i := range rows {
		rows[i].CouponDiscount = discountShare
		rows[i].OrderPaymentAmount = paymentShare
	}
	rows[0].CouponDiscount += discount - discountShare*len(rows)
	rows[0].OrderPaymentAmount += total - paymentShare*len(rows)

	return rows
}

func (m *Mapper) orderFields(o Order) models.OrderRow {
	id := strconv.FormatInt(o.ID, 10)
	phone := m.phones.Normalize(o.Billing.Phone)
	return models.OrderRow{
		OrderCode:   "w" + id,
		OrderNo:     id,
		OrderStatus: statusName(o.Status),

		OrderTime:   normalize.FromISO(o.DateCreated),
		PaymentTime: normalize.FromISO(o.PaymentTime()),

		OrdererName:   strings.TrimSpace(o.Billing.FirstName + " " + o.Billing.LastName),
		OrdererEmail:  o.Billing.Email,
		OrdererPhone:  phone,
		DeliveryPhone: phone,

		OrderTotalAmount:    money(o.Total),
		OrderDiscountAmount: money(o.DiscountTotal),

		IsGift: "N",
	}
}

func statusName(status string) string {
	if name, ok := statusNames[status]; ok {
		return name
	}
	return status
}
