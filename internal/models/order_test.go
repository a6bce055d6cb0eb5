package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noisycontents/uzu-orders/internal/models"
)

func TestDedupLast(t *testing.T) {
	rows := []models.OrderRow{
		{OrderNo: "100", ProdNo: "1", OrderStatus: "주문접수"},
		{OrderNo: "200", ProdNo: "1", OrderStatus: "주문접수"},
		{OrderNo: "100", ProdNo: "1", OrderStatus: "CANCEL"},
		{OrderNo: "100", ProdNo: "2", OrderStatus: "주문접수"},
	}

	out := models.DedupLast(rows, models.OrderRow.Key)

	require.Len(t, out, 3)
	require.Equal(t, "100", out[0].OrderNo)
	require.Equal(t, "CANCEL", out[0].OrderStatus, "later occurrence must win")
	require.Equal(t, "200", out[1].OrderNo, "first-seen positions must be preserved")
	require.Equal(t, "2", out[2].ProdNo)
}

func TestDedupLastByCodeKey(t *testing.T) {
	rows := []models.OrderRow{
		{OrderCode: "w4000", ProdNo: "237513", ProdPrice: 10000},
		{OrderCode: "w4000", ProdNo: "237513", ProdPrice: 12000},
		{OrderCode: "w4001", ProdNo: "237513", ProdPrice: 9000},
	}

	out := models.DedupLast(rows, models.OrderRow.CodeKey)

	require.Len(t, out, 2)
	require.Equal(t, 12000, out[0].ProdPrice)
	require.Equal(t, "w4001", out[1].OrderCode)
}

func TestOrderRowMarshalUniformColumns(t *testing.T) {
	when := "2025-01-24T16:39:00+09:00"
	row := models.OrderRow{
		OrderCode: "o123",
		OrderNo:   "123",
		OrderTime: &when,
	}

	raw, err := json.Marshal(row)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	require.Len(t, decoded, 28, "every column must appear on every row")
	require.Equal(t, when, decoded["order_time"])
	require.Nil(t, decoded["payment_time"], "absent timestamps must encode as null")
	require.Equal(t, float64(0), decoded["order_total_amount"])
	require.Equal(t, "", decoded["device_type"])
}
