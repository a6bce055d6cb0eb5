package imweb

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrderListDecodeTolerantScalars(t *testing.T) {
	// The API mixes strings and numbers for the same fields page to page,
	// and misspells the pagination key.
	payload := `{
		"code": 200,
		"msg": "SUCCESS",
		"data": {
			"list": [
				{
					"order_code": "o20250124abcd",
					"order_no": 28656,
					"order_type": "shopping",
					"order_time": "1737700740",
					"complete_time": null,
					"orderer": {"name": "김서연", "email": "seoyeon@example.com", "call": 1012345678},
					"payment": {
						"pay_type": "card",
						"total_price": "39000.00",
						"price_sale": 0,
						"deliv_price": null,
						"coupon": "not-a-number",
						"point": 500,
						"payment_amount": 38500,
						"payment_time": 1737700801
					},
					"device": {"type": "mobile"},
					"is_gift": null
				}
			],
			"pagenation": {"data_count": "137", "pagesize": 100, "total_page": "2", "current_page": 1}
		}
	}`

	var env apiResponse
	require.NoError(t, json.Unmarshal([]byte(payload), &env))
	require.False(t, env.rateLimited())

	var list OrderList
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.List, 1)

	o := list.List[0]
	require.Equal(t, Text("28656"), o.OrderNo)
	require.Equal(t, Text("o20250124abcd"), o.OrderCode)
	require.Equal(t, Epoch(1737700740), o.OrderTime)
	require.Equal(t, Epoch(0), o.CompleteTime)
	require.Equal(t, Text("1012345678"), o.Orderer.Call)
	require.Equal(t, Amount(39000), o.Payment.TotalPrice)
	require.Equal(t, Amount(0), o.Payment.DelivPrice)
	require.Equal(t, Amount(0), o.Payment.Coupon)
	require.Equal(t, Text(""), o.IsGift)

	require.Equal(t, 137, int(list.Pagination.DataCount))
	require.Equal(t, 2, list.Pagination.Pages())
	require.Equal(t, 100, list.Pagination.PageSize())
}

func TestPaginationDerivesPages(t *testing.T) {
	// total_page omitted: derive from the row count.
	p := Pagination{DataCount: 250, Pagesize: 100}
	require.Equal(t, 3, p.Pages())

	// Everything omitted: one page of the default size.
	require.Equal(t, 1, Pagination{}.Pages())
	require.Equal(t, 100, Pagination{}.PageSize())
}

func TestRateLimitedDetection(t *testing.T) {
	require.True(t, apiResponse{Code: -7, Msg: "TOO MANY REQUEST (limit 1/sec)"}.rateLimited())
	require.False(t, apiResponse{Code: -7, Msg: "BAD REQUEST"}.rateLimited())
	require.False(t, apiResponse{Code: 200, Msg: "SUCCESS"}.rateLimited())
}

func TestFlattenProducts(t *testing.T) {
	two := Amount(2)
	prodOrders := []ProdOrder{
		{
			Status: "배송완료",
			Items: []ProdOrderItem{
				{ProdNo: "30", ProdName: "[시크릿]왕초보 영단어 1000 30일권", Payment: ItemPayment{Count: &two, Price: 39000, PriceSale: 5000}},
				{ProdNo: "33", ProdName: "", Payment: ItemPayment{Price: 12000}},
			},
		},
		{
			Status: "주문접수",
			Items: []ProdOrderItem{
				{ProdNo: Text("724286"), ProdName: "필사클럽", Payment: ItemPayment{Price: 15000}},
			},
		},
	}

	products := flattenProducts(prodOrders)

	require.Len(t, products, 2)
	require.Equal(t, Product{
		ProdNo:    "30",
		ProdName:  "[시크릿]왕초보 영단어 1000 30일권",
		Quantity:  2,
		Price:     39000,
		PriceSale: 5000,
		Status:    "배송완료",
	}, products[0])
	// Missing count means one unit.
	require.Equal(t, "724286", products[1].ProdNo)
	require.Equal(t, 1, products[1].Quantity)
	require.Equal(t, "주문접수", products[1].Status)
}
