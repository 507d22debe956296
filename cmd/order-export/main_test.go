package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/bookie/internal/domain/order"
	"github.com/xenking/bookie/internal/storage/memory"
)

func seed(t *testing.T, repo order.Repository, owner string, status order.Status) {
	t.Helper()
	o := &order.Order{
		OwnerID:      owner,
		OwnerContact: owner + "@example.com",
		Items: []order.LineItem{{
			ItemID: "b1", Title: "Dune", UnitPrice: decimal.RequireFromString("9.99"), Currency: "USD", Quantity: 2,
		}},
		Subtotal: decimal.RequireFromString("19.98"),
		Shipping: decimal.RequireFromString("5.99"),
		Total:    decimal.RequireFromString("25.97"),
		Currency: "USD",
		Status:   order.StatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), o))
	if status != order.StatusPending {
		_, err := repo.UpdateStatus(context.Background(), o.ID, status)
		require.NoError(t, err)
	}
}

func readRecords(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	gz, err := pgzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = gz.Close() }()

	var out []map[string]any
	sc := bufio.NewScanner(gz)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		out = append(out, rec)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestExport(t *testing.T) {
	repo := memory.NewOrderRepository()
	seed(t, repo, "u1", order.StatusPending)
	seed(t, repo, "u2", order.StatusShipped)
	seed(t, repo, "u3", order.StatusPending)

	var buf bytes.Buffer
	n, err := export(context.Background(), repo, order.Filter{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	recs := readRecords(t, buf.Bytes())
	require.Len(t, recs, 3)
	assert.Equal(t, "u3", recs[0]["userId"], "newest first")
	assert.Equal(t, "25.97", jsonNumber(recs[0]["total"]))
	items := recs[0]["items"].([]any)
	require.Len(t, items, 1)
	assert.EqualValues(t, 2, items[0].(map[string]any)["quantity"])
}

func TestExport_StatusFilter(t *testing.T) {
	repo := memory.NewOrderRepository()
	seed(t, repo, "u1", order.StatusPending)
	seed(t, repo, "u2", order.StatusShipped)

	var buf bytes.Buffer
	n, err := export(context.Background(), repo, order.Filter{Status: order.StatusShipped}, &buf)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	recs := readRecords(t, buf.Bytes())
	require.Len(t, recs, 1)
	assert.Equal(t, "shipped", recs[0]["status"])
}

func TestExport_Empty(t *testing.T) {
	var buf bytes.Buffer
	n, err := export(context.Background(), memory.NewOrderRepository(), order.Filter{}, &buf)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, readRecords(t, buf.Bytes()))
}

func jsonNumber(v any) string {
	return decimal.NewFromFloat(v.(float64)).StringFixed(2)
}
