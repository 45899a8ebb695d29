package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/librarydesk/internal/domain"
	"github.com/xiaot623/librarydesk/internal/toolargs"
	"github.com/xiaot623/librarydesk/tests/helpers"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	store := helpers.NewSeededStore(t)
	return NewDispatcher(store, toolargs.NewNormalizer(toolargs.DefaultPolicy()))
}

func dispatch(t *testing.T, d *Dispatcher, tool domain.ToolName, args string) *Outcome {
	t.Helper()
	return d.Dispatch(context.Background(), toolargs.RawCall{Tool: tool, Args: json.RawMessage(args)})
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	noop := func(context.Context, toolargs.Args) (interface{}, error) { return nil, nil }
	require.NoError(t, r.Register(Definition{Name: domain.ToolFindBooks}, noop))
	assert.Error(t, r.Register(Definition{Name: domain.ToolFindBooks}, noop))
	assert.Error(t, r.Register(Definition{}, noop))
	assert.Error(t, r.Register(Definition{Name: domain.ToolOrderStatus}, nil))
}

func TestDefinitionsCoverAllTools(t *testing.T) {
	d := newTestDispatcher(t)
	defs := d.Registry().Definitions()
	require.Len(t, defs, len(domain.AllTools))
	for i, def := range defs {
		assert.Equal(t, domain.AllTools[i], def.Name)
		assert.Equal(t, def.Name.Mutating(), def.Mutating)
		assert.Equal(t, "object", def.Parameters.Type)
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	d := newTestDispatcher(t)
	out := dispatch(t, d, "delete_everything", `{}`)
	require.False(t, out.OK())
	assert.Equal(t, domain.ErrorCodeUnknownTool, out.Err.Code)
	assert.Equal(t, "Unknown tool name: delete_everything", out.Err.Message)
	assert.JSONEq(t, "null", string(out.ArgsJSON()))
}

func TestDispatchFindBooksKeepsDuplicates(t *testing.T) {
	d := newTestDispatcher(t)
	out := dispatch(t, d, domain.ToolFindBooks, `{"q": "Dune, Frank Herbert"}`)
	require.True(t, out.OK(), "%v", out.Err)

	books := out.Result.([]domain.Book)
	require.Len(t, books, 2)
	assert.Equal(t, helpers.ISBNDune, books[0].ISBN)
	assert.Equal(t, helpers.ISBNDune, books[1].ISBN)
}

func TestDispatchFindBooksNoMatch(t *testing.T) {
	d := newTestDispatcher(t)
	out := dispatch(t, d, domain.ToolFindBooks, `{"q": "Necronomicon"}`)
	require.True(t, out.OK())
	assert.Empty(t, out.Result)
	assert.JSONEq(t, "[]", string(out.ResultJSON()))
}

func TestDispatchCreateOrderMergesWarnings(t *testing.T) {
	d := newTestDispatcher(t)
	out := dispatch(t, d, domain.ToolCreateOrder, `{
		"customer_id": 1,
		"items": [
			{"isbn": "`+helpers.ISBNDune+`", "qty": 2},
			{"qty": 1},
			{"title": "Missing Book", "qty": 1},
			{"isbn": "`+helpers.ISBNHobbit+`", "qty": 5}
		]
	}`)
	require.True(t, out.OK(), "%v", out.Err)

	receipt := out.Result.(*domain.OrderReceipt)
	require.Len(t, receipt.Processed, 1)
	assert.Equal(t, 1, receipt.Processed[0].RemainingStock)
	require.Len(t, receipt.Warnings, 3)
	assert.Contains(t, receipt.Warnings[0], "missing both")
	assert.Equal(t, "Book 'Missing Book' not found, skipped.", receipt.Warnings[1])
	assert.Equal(t, "Not enough stock for 'The Hobbit'. Requested 5, available 2.", receipt.Warnings[2])
}

func TestDispatchCreateOrderNoValidItems(t *testing.T) {
	d := newTestDispatcher(t)
	out := dispatch(t, d, domain.ToolCreateOrder, `{"customer_id": 1, "items": [{"qty": 0, "isbn": "x"}, {"title": "Nope"}]}`)
	require.False(t, out.OK())
	assert.Equal(t, domain.ErrorCodeNoValidItems, out.Err.Code)
	require.Len(t, out.Err.Warnings, 2)
	assert.Contains(t, out.Err.Message, "No valid books found to create the order.")
}

func TestDispatchCreateOrderUnknownCustomer(t *testing.T) {
	d := newTestDispatcher(t)
	out := dispatch(t, d, domain.ToolCreateOrder, `{"customer_id": 42, "items": [{"isbn": "`+helpers.ISBNDune+`"}]}`)
	require.False(t, out.OK())
	assert.Equal(t, domain.ErrorCodeNotFound, out.Err.Code)
}

func TestDispatchRestockBook(t *testing.T) {
	d := newTestDispatcher(t)
	out := dispatch(t, d, domain.ToolRestockBook, `{isbn: '`+helpers.ISBNHobbit+`', qty: 10}`)
	require.True(t, out.OK(), "%v", out.Err)
	assert.Equal(t, &RestockResult{ISBN: helpers.ISBNHobbit, Title: "The Hobbit", NewStock: 12}, out.Result)

	out = dispatch(t, d, domain.ToolRestockBook, `{"qty": null, "isbn": "`+helpers.ISBNHobbit+`"}`)
	require.True(t, out.OK(), "%v", out.Err)
	assert.Equal(t, &RestockResult{ISBN: helpers.ISBNHobbit, Title: "The Hobbit", NewStock: 13}, out.Result)

	out = dispatch(t, d, domain.ToolRestockBook, `{"isbn": "000", "qty": 1}`)
	require.False(t, out.OK())
	assert.Equal(t, domain.ErrorCodeNotFound, out.Err.Code)

	out = dispatch(t, d, domain.ToolRestockBook, `{"qty": 1}`)
	require.False(t, out.OK())
	assert.Equal(t, domain.ErrorCodeInvalidArgs, out.Err.Code)
}

func TestDispatchUpdatePrice(t *testing.T) {
	d := newTestDispatcher(t)
	out := dispatch(t, d, domain.ToolUpdatePrice, `{"isbn": "`+helpers.ISBNDune+`", "price": "$12.50"}`)
	require.True(t, out.OK(), "%v", out.Err)
	assert.Equal(t, &PriceResult{ISBN: helpers.ISBNDune, Title: "Dune", UpdatedPrice: 12.5}, out.Result)

	out = dispatch(t, d, domain.ToolUpdatePrice, `{"isbn": "`+helpers.ISBNDune+`", "price": -1}`)
	require.False(t, out.OK())
	assert.Equal(t, domain.ErrorCodeInvalidArgs, out.Err.Code)
}

func TestDispatchOrderStatus(t *testing.T) {
	d := newTestDispatcher(t)
	created := dispatch(t, d, domain.ToolCreateOrder, `{"customer_id": 1, "items": [{"isbn": "`+helpers.ISBNFoundation+`", "qty": 2}]}`)
	require.True(t, created.OK(), "%v", created.Err)
	orderID := created.Result.(*domain.OrderReceipt).OrderID

	out := dispatch(t, d, domain.ToolOrderStatus, `{"order_id": "#`+jsonInt(orderID)+`"}`)
	require.True(t, out.OK(), "%v", out.Err)
	order := out.Result.(*domain.Order)
	assert.Equal(t, orderID, order.ID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Foundation", order.Items[0].Title)
	assert.Equal(t, 2, order.Items[0].Qty)

	out = dispatch(t, d, domain.ToolOrderStatus, `{"order_id": 999}`)
	require.False(t, out.OK())
	assert.Equal(t, domain.ErrorCodeNotFound, out.Err.Code)
}

func TestDispatchInventorySummary(t *testing.T) {
	d := newTestDispatcher(t)
	out := dispatch(t, d, domain.ToolInventorySummary, `{}`)
	require.True(t, out.OK(), "%v", out.Err)
	summary := out.Result.(*InventorySummary)
	assert.Equal(t, 5, summary.Threshold)
	require.Len(t, summary.LowStockBooks, 2)
	assert.Equal(t, "The Hobbit", summary.LowStockBooks[0].Title)
	assert.Equal(t, "Dune", summary.LowStockBooks[1].Title)
	assert.Empty(t, summary.Message)

	out = dispatch(t, d, domain.ToolInventorySummary, `{"threshold": 0}`)
	require.True(t, out.OK())
	summary = out.Result.(*InventorySummary)
	assert.Empty(t, summary.LowStockBooks)
	assert.Equal(t, "No books found below stock threshold (0).", summary.Message)
}

func TestDispatchRecoversPanics(t *testing.T) {
	d := newTestDispatcher(t)
	d.registry = NewRegistry()
	d.registry.MustRegister(Definition{Name: domain.ToolOrderStatus}, func(context.Context, toolargs.Args) (interface{}, error) {
		panic("boom")
	})
	out := dispatch(t, d, domain.ToolOrderStatus, `{"order_id": 1}`)
	require.False(t, out.OK())
	assert.Equal(t, domain.ErrorCodeInternal, out.Err.Code)
}

func jsonInt(v int64) string {
	data, _ := json.Marshal(v)
	return string(data)
}
