package order

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/supply-backend/internal/apperr"
	"github.com/georgemunganga/supply-backend/internal/modules/catalog"
	"github.com/georgemunganga/supply-backend/internal/modules/events"
	"github.com/georgemunganga/supply-backend/internal/modules/stock"
)

// brokenOrders fails every CreateOrder.
type brokenOrders struct{ Repository }

func (brokenOrders) CreateOrder(context.Context, *Order) error { return errors.New("disk full") }

type fixture struct {
	products catalog.Repository
	orders   Repository
	events   *events.Recorder
	svc      Service
}

func newFixture(t *testing.T, orders Repository) *fixture {
	t.Helper()
	products := catalog.NewMemoryRepository()
	require.NoError(t, products.Create(context.Background(), &catalog.Product{
		ID:       "harness",
		Category: "견옷",
		Name:     "하네스",
		Stock: catalog.VariantStock{Groups: []catalog.OptionGroup{{
			Name: "사이즈",
			Values: []catalog.OptionValue{
				{Label: "1호", Stock: 200},
				{Label: "2호", Stock: 34},
				{Label: "3호", Stock: 22},
				{Label: "4호", Stock: 1},
			},
		}}},
	}))
	require.NoError(t, products.Create(context.Background(), &catalog.Product{
		ID: "food", Category: "사료", Name: "성견 사료", Stock: catalog.SimpleStock{Count: 10},
	}))
	if orders == nil {
		orders = NewMemoryRepository()
	}
	rec := events.NewRecorder()
	svc := NewService(orders, products, stock.NewLedger(products, nil), rec, nil, Config{})
	return &fixture{products: products, orders: orders, events: rec, svc: svc}
}

func (f *fixture) sizeStock(t *testing.T, label string) int {
	t.Helper()
	p, err := f.products.GetByID(context.Background(), "harness")
	require.NoError(t, err)
	g, _ := p.Stock.(catalog.VariantStock).Group("사이즈")
	v, ok := g.Value(label)
	require.True(t, ok)
	return v.Stock
}

func request(productID string, selections map[string]string, qty int) PlaceOrderRequest {
	return PlaceOrderRequest{
		Requester:  Requester{ID: "trainer-1", Name: "김훈련"},
		ProductID:  productID,
		Selections: selections,
		Quantity:   qty,
		Recipient:  Recipient{Name: "김훈련", Contact: "010-0000-0000", Address: "경기도 용인시"},
	}
}

func TestPlaceOrderDecrementsSelectedValue(t *testing.T) {
	f := newFixture(t, nil)
	o, err := f.svc.PlaceOrder(context.Background(), request("harness", map[string]string{"사이즈": "1호"}, 5))
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "하네스", o.ProductName)
	assert.Regexp(t, `^SUP-\d{8}-[0-9A-Z]{16}$`, o.OrderNumber)
	assert.Equal(t, 195, f.sizeStock(t, "1호"))
	assert.Equal(t, []string{events.TypeOrderPlaced}, f.events.Types())

	stored, err := f.svc.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"사이즈": "1호"}, stored.Selections)
}

func TestOrderNumbersAreUniqueWithinADay(t *testing.T) {
	day := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		n := generateOrderNumber(day)
		require.True(t, strings.HasPrefix(n, "SUP-20261018-"), n)
		require.False(t, seen[n], "duplicate order number %s", n)
		seen[n] = true
	}
}

func TestPlaceOrderInsufficientStockNamesValue(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.PlaceOrder(context.Background(), request("harness", map[string]string{"사이즈": "3호"}, 30))

	var ise *stock.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "사이즈", ise.Group)
	assert.Equal(t, "3호", ise.Value)
	assert.Equal(t, 30, ise.Requested)
	assert.Equal(t, 22, ise.Available)

	assert.Equal(t, 22, f.sizeStock(t, "3호"))
	assert.Equal(t, 200, f.sizeStock(t, "1호"))
	orders, err := f.svc.ListOrders(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, f.events.Events())
}

func TestConcurrentOrdersForLastUnit(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.PlaceOrder(ctx, request("harness", map[string]string{"사이즈": "4호"}, 1))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var ise *stock.InsufficientStockError
		assert.ErrorAs(t, err, &ise)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, f.sizeStock(t, "4호"))
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t, nil)
	tests := []struct {
		name  string
		mut   func(*PlaceOrderRequest)
		field string
	}{
		{"no requester", func(r *PlaceOrderRequest) { r.Requester.ID = "" }, "requester.id"},
		{"no product", func(r *PlaceOrderRequest) { r.ProductID = " " }, "product_id"},
		{"zero quantity", func(r *PlaceOrderRequest) { r.Quantity = 0 }, "quantity"},
		{"no recipient", func(r *PlaceOrderRequest) { r.Recipient.Name = "" }, "recipient.name"},
		{"no contact", func(r *PlaceOrderRequest) { r.Recipient.Contact = "" }, "recipient.contact"},
		{"no address", func(r *PlaceOrderRequest) { r.Recipient.Address = "" }, "recipient.address"},
		{"missing selection", func(r *PlaceOrderRequest) { r.Selections = nil }, "selections.사이즈"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request("harness", map[string]string{"사이즈": "1호"}, 1)
			tt.mut(&req)
			_, err := f.svc.PlaceOrder(context.Background(), req)
			var ve *apperr.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
	assert.Equal(t, 200, f.sizeStock(t, "1호"))
}

func TestPlaceOrderUnknownProduct(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.PlaceOrder(context.Background(), request("ghost", nil, 1))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPlaceOrderReleasesStockWhenOrderCannotBeSaved(t *testing.T) {
	f := newFixture(t, brokenOrders{NewMemoryRepository()})
	_, err := f.svc.PlaceOrder(context.Background(), request("food", nil, 4))
	require.Error(t, err)

	p, err := f.products.GetByID(context.Background(), "food")
	require.NoError(t, err)
	assert.Equal(t, catalog.SimpleStock{Count: 10}, p.Stock)
	assert.Equal(t, []string{events.TypeStockReleased}, f.events.Types())
}

func TestPublishFailureDoesNotFailOrder(t *testing.T) {
	f := newFixture(t, nil)
	f.events.FailWith(errors.New("broker down"))

	_, err := f.svc.PlaceOrder(context.Background(), request("food", nil, 1))
	assert.NoError(t, err)
}

func TestAdvanceAllowsSkippingAhead(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	o, err := f.svc.PlaceOrder(ctx, request("food", nil, 2))
	require.NoError(t, err)

	advanced, err := f.svc.Advance(ctx, o.ID, "Delivered")
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, advanced.Status)

	back, err := f.svc.Advance(ctx, o.ID, StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, back.Status)

	_, err = f.svc.Advance(ctx, o.ID, "lost")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = f.svc.Advance(ctx, "missing", StatusShipped)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	p, err := f.products.GetByID(ctx, "food")
	require.NoError(t, err)
	assert.Equal(t, catalog.SimpleStock{Count: 8}, p.Stock)
}

func TestDeleteOrderKeepsStock(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	o, err := f.svc.PlaceOrder(ctx, request("harness", map[string]string{"사이즈": "2호"}, 4))
	require.NoError(t, err)
	_, err = f.svc.Advance(ctx, o.ID, StatusDelivered)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteOrder(ctx, o.ID))

	_, err = f.svc.GetOrder(ctx, o.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, 30, f.sizeStock(t, "2호"))
	assert.Equal(t, []string{events.TypeOrderPlaced, events.TypeOrderStatusChanged, events.TypeOrderDeleted}, f.events.Types())

	assert.ErrorIs(t, f.svc.DeleteOrder(ctx, o.ID), apperr.ErrNotFound)
}

func TestListOrdersFilters(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	first, err := f.svc.PlaceOrder(ctx, request("food", nil, 1))
	require.NoError(t, err)
	other := request("harness", map[string]string{"사이즈": "1호"}, 1)
	other.Requester = Requester{ID: "trainer-2", Name: "이훈련"}
	_, err = f.svc.PlaceOrder(ctx, other)
	require.NoError(t, err)

	mine, err := f.svc.ListOrders(ctx, Filter{RequesterID: "trainer-1"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	_, err = f.svc.ListOrders(ctx, Filter{Status: "lost"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
