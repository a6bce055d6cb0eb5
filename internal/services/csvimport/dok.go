package csvimport

import (
	"strconv"

	"github.com/noisycontents/uzu-orders/internal/models"
	"github.com/noisycontents/uzu-orders/internal/normalize"
)

// DokDialect maps the German store's WooCommerce order export. Every line is
// the one target product, Item Cost is the amount actually paid, and the
// list price is cost plus the logged discount. Rows key on (order_code,
// prod_no): the export's bare order numbers collide with native storefront
// numbers, the "w" prefix keeps them apart.
type DokDialect struct {
	phones *normalize.PhoneNormalizer
	prodNo string
}

func NewDokDialect(phones *normalize.PhoneNormalizer, targetProduct int64) *DokDialect {
	return &DokDialect{phones: phones, prodNo: strconv.FormatInt(targetProduct, 10)}
}

// Rows maps every record with an order number.
func (d *DokDialect) Rows(records []Record) []models.OrderRow {
	rows := make([]models.OrderRow, 0, len(records))
	for _, rec := range records {
		if row, ok := d.Row(rec); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// Row maps one export line. Records without an order number are skipped.
func (d *DokDialect) Row(rec Record) (models.OrderRow, bool) {
	number := rec.Get("Order Number")
	if number == "" {
		return models.OrderRow{}, false
	}

	cost := parseInt(rec.Get("Item Cost"), 0)
	discount := parseInt(rec.Get("Discount Amount"), 0)
	price := cost + discount
	paidTime := normalize.FromCivil16(rec.Get("Paid Date"))

	return models.OrderRow{
		OrderCode:   "w" + number,
		OrderNo:     number,
		OrderType:   "shopping",
		OrderStatus: rec.Get("Order Status"),

		OrderTime:    paidTime,
		PaymentTime:  paidTime,
		CompleteTime: paidTime,

		OrdererName:  rec.Get("Full Name (Billing)"),
		OrdererEmail: rec.Get("Customer User Email"),
		OrdererPhone: d.phones.Normalize(rec.Get("Phone (Billing)")),

		OrderTotalAmount:    price,
		OrderDiscountAmount: discount,
		CouponDiscount:      discount,
		OrderPaymentAmount:  cost,

		IsGift: "N",

		ProdNo:             d.prodNo,
		ProdName:           rec.Get("Item Name"),
		ProdQuantity:       parseInt(rec.Get("Quantity"), 1),
		ProdPrice:          price,
		ProdDiscountAmount: cost,
	}, true
}
