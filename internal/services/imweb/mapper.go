package imweb

import (
	"github.com/noisycontents/uzu-orders/internal/models"
	"github.com/noisycontents/uzu-orders/internal/normalize"
)

// Mapper turns API orders and their product lines into table rows.
type Mapper struct {
	phones   *normalize.PhoneNormalizer
	products *normalize.ProductCodeResolver
}

func NewMapper(phones *normalize.PhoneNormalizer, products *normalize.ProductCodeResolver) *Mapper {
	return &Mapper{phones: phones, products: products}
}

// Rows expands one order into one row per product line. An order whose
// product lookup came back empty still yields its sentinel row, so the order
// itself is never lost and the retry pipeline can find it later.
func (m *Mapper) Rows(o Order, products []Product) []models.OrderRow {
	if len(products) == 0 {
		return []models.OrderRow{m.SentinelRow(o)}
	}
	rows := make([]models.OrderRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, m.Row(o, p))
	}
	return rows
}

// Row builds the table row for one order/product pair.
func (m *Mapper) Row(o Order, p Product) models.OrderRow {
	row := m.orderFields(o)
	row.ProdNo = p.ProdNo
	row.ProdName = p.ProdName
	row.ProdQuantity = p.Quantity
	row.ProdPrice = p.Price
	row.ProdDiscountAmount = p.PriceSale
	row.OrderStatus = p.Status
	return row
}

// SentinelRow builds the placeholder stored when an order has no product
// lines. Its product code comes from the resolver so the row still lands on
// a non-null conflict key and upserts stay idempotent.
func (m *Mapper) SentinelRow(o Order) models.OrderRow {
	row := m.orderFields(o)
	row.ProdNo = m.products.Resolve(models.SentinelProductName)
	row.ProdName = models.SentinelProductName
	row.ProdQuantity = 1
	return row
}

func (m *Mapper) orderFields(o Order) models.OrderRow {
	isGift := string(o.IsGift)
	if isGift == "" {
		isGift = "N"
	}
	return models.OrderRow{
		OrderCode: string(o.OrderCode),
		OrderNo:   string(o.OrderNo),
		OrderType: o.OrderType,

		OrderTime:    normalize.FromEpoch(int64(o.OrderTime)),
		PaymentTime:  normalize.FromEpoch(int64(o.Payment.PaymentTime)),
		CompleteTime: normalize.FromEpoch(int64(o.CompleteTime)),

		OrdererName:  o.Orderer.Name,
		OrdererEmail: o.Orderer.Email,
		OrdererPhone: m.phones.Normalize(string(o.Orderer.Call)),

		DeliveryName:          o.Delivery.Address.Name,
		DeliveryPhone:         m.phones.Normalize(string(o.Delivery.Address.Phone)),
		DeliveryPostcode:      string(o.Delivery.Address.Postcode),
		DeliveryAddress:       o.Delivery.Address.Address,
		DeliveryAddressDetail: o.Delivery.Address.AddressDetail,

		PaymentType:         o.Payment.PayType,
		OrderTotalAmount:    int(o.Payment.TotalPrice),
		OrderDiscountAmount: int(o.Payment.PriceSale),
		DeliveryFee:         int(o.Payment.DelivPrice),
		CouponDiscount:      int(o.Payment.Coupon),
		PointUsed:           int(o.Payment.Point),
		OrderPaymentAmount:  int(o.Payment.PaymentAmount),

		DeviceType: o.Device.Type,
		IsGift:     isGift,
	}
}
