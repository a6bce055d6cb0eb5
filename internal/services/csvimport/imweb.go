package csvimport

import (
	"github.com/noisycontents/uzu-orders/internal/models"
	"github.com/noisycontents/uzu-orders/internal/normalize"
)

// ImwebDialect maps the storefront's Korean-header order export. Rows join
// the same table the live API sync writes, so product codes resolve through
// the shared resolver and order codes reuse the stored ones where the API
// already assigned them.
type ImwebDialect struct {
	phones   *normalize.PhoneNormalizer
	products *normalize.ProductCodeResolver
	codes    map[string]string
}

// NewImwebDialect builds the dialect. codes maps order numbers to stored
// order codes; numbers without an entry synthesize "o"+number.
func NewImwebDialect(phones *normalize.PhoneNormalizer, products *normalize.ProductCodeResolver, codes map[string]string) *ImwebDialect {
	return &ImwebDialect{phones: phones, products: products, codes: codes}
}

// Rows maps every record with an order number.
func (d *ImwebDialect) Rows(records []Record) []models.OrderRow {
	rows := make([]models.OrderRow, 0, len(records))
	for _, rec := range records {
		if row, ok := d.Row(rec); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// Row maps one export line. Records without an order number are skipped.
func (d *ImwebDialect) Row(rec Record) (models.OrderRow, bool) {
	orderNo := rec.Get("주문번호")
	if orderNo == "" {
		return models.OrderRow{}, false
	}

	code, ok := d.codes[orderNo]
	if !ok {
		code = "o" + orderNo
	}
	prodName := rec.Get("상품명")
	paymentTime := normalize.FromCivil16(rec.Get("PG처리일시"))

	return models.OrderRow{
		OrderCode:   code,
		OrderNo:     orderNo,
		OrderType:   "shopping",
		OrderStatus: rec.Get("주문상태"),

		OrderTime:    normalize.FromCivil16(rec.Get("주문일")),
		PaymentTime:  paymentTime,
		CompleteTime: paymentTime,

		OrdererName:  rec.Get("주문자 이름"),
		OrdererEmail: rec.Get("주문자 이메일"),
		OrdererPhone: d.phones.Normalize(rec.Get("주문자 번호")),

		OrderTotalAmount:    parseInt(rec.Get("최종주문금액"), 0),
		OrderDiscountAmount: parseInt(rec.Get("품목쿠폰할인금액"), 0),
		CouponDiscount:      parseInt(rec.Get("품목쿠폰할인금액"), 0),
		PointUsed:           parseInt(rec.Get("품목포인트사용금액"), 0),
		OrderPaymentAmount:  parseInt(rec.Get("품목실결제가"), 0),

		IsGift: "N",

		ProdNo:             d.products.Resolve(prodName),
		ProdName:           prodName,
		ProdQuantity:       parseInt(rec.Get("구매수량"), 1),
		ProdPrice:          parseInt(rec.Get("판매가"), 0),
		ProdDiscountAmount: parseInt(rec.Get("품목실결제가"), 0),
	}, true
}
