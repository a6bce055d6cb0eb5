package csvimport_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noisycontents/uzu-orders/internal/normalize"
	"github.com/noisycontents/uzu-orders/internal/services/csvimport"
)

func imwebDialect(codes map[string]string) *csvimport.ImwebDialect {
	return csvimport.NewImwebDialect(
		normalize.NewPhoneNormalizer(normalize.DefaultPhoneRules()),
		normalize.NewProductCodeResolver(map[string]string{"필사클럽": "12345"}, normalize.DefaultDurationSuffixes()),
		codes,
	)
}

func TestImwebDialectMapsExportLine(t *testing.T) {
	dialect := imwebDialect(map[string]string{"28656": "o1234567890"})

	row, ok := dialect.Row(csvimport.Record{
		"주문번호":      "28656",
		"주문일":       "2025-01-24 16:39",
		"PG처리일시":    "2025-01-24 16:40",
		"주문자 이름":    "김철수",
		"주문자 이메일":   "kim@example.com",
		"주문자 번호":    "1012345678",
		"상품명":       "필사클럽 30일권",
		"구매수량":      "1",
		"판매가":       "39000",
		"품목실결제가":    "35000",
		"주문상태":      "입금완료",
		"최종주문금액":    "35000",
		"품목쿠폰할인금액":  "4000",
		"품목포인트사용금액": "0",
	})

	require.True(t, ok)
	require.Equal(t, "o1234567890", row.OrderCode)
	require.Equal(t, "28656", row.OrderNo)
	// Suffix-stripped table hit, not a hash fallback.
	require.Equal(t, "12345", row.ProdNo)
	require.Equal(t, "01012345678", row.OrdererPhone)
	require.NotNil(t, row.OrderTime)
	require.Equal(t, "2025-01-24T16:39:00+09:00", *row.OrderTime)
	require.Equal(t, 35000, row.OrderPaymentAmount)
	require.Equal(t, 4000, row.CouponDiscount)
}

func TestImwebDialectSynthesizesMissingOrderCode(t *testing.T) {
	dialect := imwebDialect(nil)

	row, ok := dialect.Row(csvimport.Record{"주문번호": "99", "상품명": "필사클럽"})
	require.True(t, ok)
	require.Equal(t, "o99", row.OrderCode)

	_, ok = dialect.Row(csvimport.Record{"상품명": "필사클럽"})
	require.False(t, ok)
}

func TestDokDialectMapsExportLine(t *testing.T) {
	dialect := csvimport.NewDokDialect(
		normalize.NewPhoneNormalizer(normalize.GermanShopPhoneRules()),
		237513,
	)

	row, ok := dialect.Row(csvimport.Record{
		"Order Number":        "5001",
		"Order Status":        "completed",
		"Paid Date":           "2025-01-24 16:39",
		"Full Name (Billing)": "Anna Schmidt",
		"Customer User Email": "anna@example.com",
		"Phone (Billing)":     "491701234567",
		"Item Name":           "Deutschkurs",
		"Quantity":            "1",
		"Item Cost":           "49000",
		"Discount Amount":     "1000",
	})

	require.True(t, ok)
	require.Equal(t, "w5001", row.OrderCode)
	require.Equal(t, "5001", row.OrderNo)
	require.Equal(t, "237513", row.ProdNo)
	require.Equal(t, "+49701234567", row.OrdererPhone)
	// List price reconstructed from the paid cost plus the logged discount.
	require.Equal(t, 50000, row.ProdPrice)
	require.Equal(t, 49000, row.OrderPaymentAmount)
	require.Equal(t, 1000, row.OrderDiscountAmount)
}

func TestDokDialectSkipsRecordsWithoutOrderNumber(t *testing.T) {
	dialect := csvimport.NewDokDialect(normalize.NewPhoneNormalizer(normalize.GermanShopPhoneRules()), 237513)
	rows := dialect.Rows([]csvimport.Record{
		{"Order Number": "1", "Item Name": "Deutschkurs"},
		{"Item Name": "Deutschkurs"},
	})
	require.Len(t, rows, 1)
}
