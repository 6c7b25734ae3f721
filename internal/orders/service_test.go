package orders_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-order-inventory/internal/orders"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateOrderReservesStock(t *testing.T) {
	ctx := context.Background()
	svc, st := newFixture()
	addProduct(st, "A", 10, "3.00")
	addProduct(st, "B", 10, "4.00")

	o, err := svc.CreateOrder(ctx, orders.CreateOrderInput{
		UserID:      "user-1",
		Description: "two products",
		TotalAmount: dec("10.00"),
		Items: []orders.ItemInput{
			{ProductID: "A", Quantity: 2, Price: dec("3.00")},
			{ProductID: "B", Quantity: 1, Price: dec("4.00")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 8, st.Stock("A"))
	assert.Equal(t, 9, st.Stock("B"))
	assert.Equal(t, orders.StatusPending, o.Status)
	assert.Len(t, o.Items, 2)
	require.NotNil(t, o.User)
	assert.Equal(t, "Mario Rossi", o.User.Name)
	for _, it := range o.Items {
		require.NotNil(t, it.Product)
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	ctx := context.Background()
	svc, st := newFixture()
	addProduct(st, "P", 2, "1.00")

	before := st.Snapshot()
	_, err := svc.CreateOrder(ctx, orders.CreateOrderInput{
		UserID:      "user-1",
		TotalAmount: dec("3.00"),
		Items:       []orders.ItemInput{{ProductID: "P", Quantity: 3, Price: dec("1.00")}},
	})

	var ins *orders.InsufficientStockError
	require.ErrorAs(t, err, &ins)
	assert.Equal(t, "P", ins.ProductID)
	assert.Equal(t, 3, ins.Requested)
	assert.Equal(t, 2, ins.Available)

	assert.Equal(t, 2, st.Stock("P"))
	assert.Equal(t, before, st.Snapshot(), "failed create must leave no trace")
}

func TestCreateOrderAtomicOnPartialFailure(t *testing.T) {
	ctx := context.Background()
	svc, st := newFixture()
	addProduct(st, "A", 10, "3.00")

	before := st.Snapshot()
	_, err := svc.CreateOrder(ctx, orders.CreateOrderInput{
		UserID:      "user-1",
		TotalAmount: dec("9.00"),
		Items: []orders.ItemInput{
			{ProductID: "A", Quantity: 2, Price: dec("3.00")},
			{ProductID: "missing", Quantity: 1, Price: dec("3.00")},
		},
	})

	var pnf *orders.ProductNotFoundError
	require.ErrorAs(t, err, &pnf)
	// A's reservation from step one must have been rolled back with the rest
	assert.Equal(t, 10, st.Stock("A"))
	assert.Equal(t, before, st.Snapshot())
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture()

	_, err := svc.CreateOrder(ctx, orders.CreateOrderInput{UserID: "user-1"})
	require.ErrorIs(t, err, orders.ErrNoItems)
}

func TestCreateOrderUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc, st := newFixture()
	addProduct(st, "A", 10, "3.00")

	_, err := svc.CreateOrder(ctx, orders.CreateOrderInput{
		UserID: "nobody",
		Items:  []orders.ItemInput{{ProductID: "A", Quantity: 1, Price: dec("3.00")}},
	})
	require.ErrorIs(t, err, orders.ErrUserNotFound)
	assert.Equal(t, 10, st.Stock("A"))
}

func TestCreateOrderKeepsClientTotalVerbatim(t *testing.T) {
	ctx := context.Background()
	svc, st := newFixture()
	addProduct(st, "A", 10, "3.00")

	// client total deliberately disagrees with items; it is stored as-is
	o, err := svc.CreateOrder(ctx, orders.CreateOrderInput{
		UserID:      "user-1",
		TotalAmount: dec("999.99"),
		Items:       []orders.ItemInput{{ProductID: "A", Quantity: 1, Price: dec("3.00")}},
	})
	require.NoError(t, err)
	assert.True(t, o.TotalAmount.Equal(dec("999.99")))
}

func TestUpdateOrderFullReplace(t *testing.T) {
	ctx := context.Background()
	svc, st := newFixture()
	addProduct(st, "A", 10, "3.00")
	addProduct(st, "B", 10, "4.00")
	addProduct(st, "C", 5, "5.00")

	o, err := svc.CreateOrder(ctx, orders.CreateOrderInput{
		UserID:      "user-1",
		TotalAmount: dec("10.00"),
		Items: []orders.ItemInput{
			{ProductID: "A", Quantity: 2, Price: dec("3.00")},
			{ProductID: "B", Quantity: 1, Price: dec("4.00")},
		},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateOrder(ctx, o.ID, orders.UpdateOrderInput{
		Items: []orders.ItemInput{
			{ProductID: "B", Quantity: 2, Price: dec("4.00")},
			{ProductID: "C", Quantity: 1, Price: dec("5.00")},
		},
	})
	require.NoError(t, err)

	// A restored; B restored then re-reserved; C newly reserved
	assert.Equal(t, 10, st.Stock("A"))
	assert.Equal(t, 8, st.Stock("B"))
	assert.Equal(t, 4, st.Stock("C"))
	assert.Len(t, updated.Items, 2)
}

func TestUpdateOrderRollsBackOnShortage(t *testing.T) {
	ctx := context.Background()
	svc, st := newFixture()
	addProduct(st, "A", 10, "3.00")
	addProduct(st, "C", 1, "5.00")

	o, err := svc.CreateOrder(ctx, orders.CreateOrderInput{
		UserID:      "user-1",
		TotalAmount: dec("6.00"),
		Items:       []orders.ItemInput{{ProductID: "A", Quantity: 2, Price: dec("3.00")}},
	})
	require.NoError(t, err)

	before := st.Snapshot()
	_, err = svc.UpdateOrder(ctx, o.ID, orders.UpdateOrderInput{
		Items: []orders.ItemInput{{ProductID: "C", Quantity: 3, Price: dec("5.00")}},
	})
	var ins *orders.InsufficientStockError
	require.ErrorAs(t, err, &ins)

	// the restore of A performed in step one is rolled back too
	assert.Equal(t, 8, st.Stock("A"))
	assert.Equal(t, 1, st.Stock("C"))
	assert.Equal(t, before, st.Snapshot())

	got, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "A", got.Items[0].ProductID)
}

func TestUpdateOrderScalarsOnlyMovesNoStock(t *testing.T) {
	ctx := context.Background()
	svc, st := newFixture()
	addProduct(st, "A", 10, "3.00")

	o, err := svc.CreateOrder(ctx, orders.CreateOrderInput{
		UserID:      "user-1",
		TotalAmount: dec("6.00"),
		Items:       []orders.ItemInput{{ProductID: "A", Quantity: 2, Price: dec("3.00")}},
	})
	require.NoError(t, err)

	desc := "updated description"
	status := orders.StatusCompleted
	updated, err := svc.UpdateOrder(ctx, o.ID, orders.UpdateOrderInput{
		Description: &desc,
		Status:      &status,
	})
	require.NoError(t, err)

	assert.Equal(t, 8, st.Stock("A"), "no stock movement without items patch")
	assert.Equal(t, desc, updated.Description)
	assert.Equal(t, status, updated.Status)
	assert.True(t, updated.TotalAmount.Equal(dec("6.00")), "absent fields keep prior values")
	assert.Len(t, updated.Items, 1)
}

func TestStatusHasNoTransitionRules(t *testing.T) {
	ctx := context.Background()
	svc, st := newFixture()
	addProduct(st, "A", 10, "3.00")

	o, err := svc.CreateOrder(ctx, orders.CreateOrderInput{
		UserID:      "user-1",
		TotalAmount: dec("3.00"),
		Status:      orders.StatusCompleted,
		Items:       []orders.ItemInput{{ProductID: "A", Quantity: 1, Price: dec("3.00")}},
	})
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCompleted, o.Status)

	// completed -> pending is allowed; status is a tag, not a workflow
	back := orders.StatusPending
	updated, err := svc.UpdateOrder(ctx, o.ID, orders.UpdateOrderInput{Status: &back})
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, updated.Status)
}

func TestDeleteOrderRestoresStock(t *testing.T) {
	ctx := context.Background()
	svc, st := newFixture()
	addProduct(st, "B", 10, "4.00")
	addProduct(st, "C", 5, "5.00")

	o, err := svc.CreateOrder(ctx, orders.CreateOrderInput{
		UserID:      "user-1",
		TotalAmount: dec("13.00"),
		Items: []orders.ItemInput{
			{ProductID: "B", Quantity: 2, Price: dec("4.00")},
			{ProductID: "C", Quantity: 1, Price: dec("5.00")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 8, st.Stock("B"))
	assert.Equal(t, 4, st.Stock("C"))

	require.NoError(t, svc.DeleteOrder(ctx, o.ID))
	assert.Equal(t, 10, st.Stock("B"))
	assert.Equal(t, 5, st.Stock("C"))

	_, err = svc.GetOrder(ctx, o.ID)
	require.ErrorIs(t, err, orders.ErrOrderNotFound)

	items, err := svc.ListItems(ctx, o.ID)
	require.ErrorIs(t, err, orders.ErrOrderNotFound)
	assert.Nil(t, items)
}

func TestCreateThenDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, st := newFixture()
	addProduct(st, "A", 7, "3.00")
	addProduct(st, "B", 13, "4.00")

	o, err := svc.CreateOrder(ctx, orders.CreateOrderInput{
		UserID:      "user-1",
		TotalAmount: dec("17.00"),
		Items: []orders.ItemInput{
			{ProductID: "A", Quantity: 3, Price: dec("3.00")},
			{ProductID: "B", Quantity: 2, Price: dec("4.00")},
		},
	})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteOrder(ctx, o.ID))

	assert.Equal(t, 7, st.Stock("A"))
	assert.Equal(t, 13, st.Stock("B"))
}

// Updating an order to a new item list must land on the same per-product
// stock state as deleting it and creating a fresh order with that list.
func TestUpdateEquivalentToDeleteAndRecreate(t *testing.T) {
	ctx := context.Background()

	oldItems := []orders.ItemInput{
		{ProductID: "A", Quantity: 2, Price: dec("3.00")},
		{ProductID: "B", Quantity: 1, Price: dec("4.00")},
	}
	newItems := []orders.ItemInput{
		{ProductID: "B", Quantity: 3, Price: dec("4.00")},
		{ProductID: "C", Quantity: 2, Price: dec("5.00")},
	}

	svcU, stU := newFixture()
	svcR, stR := newFixture()
	addProduct(stU, "A", 10, "3.00")
	addProduct(stU, "B", 10, "4.00")
	addProduct(stU, "C", 10, "5.00")
	addProduct(stR, "A", 10, "3.00")
	addProduct(stR, "B", 10, "4.00")
	addProduct(stR, "C", 10, "5.00")

	oU, err := svcU.CreateOrder(ctx, orders.CreateOrderInput{UserID: "user-1", TotalAmount: dec("10.00"), Items: oldItems})
	require.NoError(t, err)
	_, err = svcU.UpdateOrder(ctx, oU.ID, orders.UpdateOrderInput{Items: newItems})
	require.NoError(t, err)

	oR, err := svcR.CreateOrder(ctx, orders.CreateOrderInput{UserID: "user-1", TotalAmount: dec("10.00"), Items: oldItems})
	require.NoError(t, err)
	require.NoError(t, svcR.DeleteOrder(ctx, oR.ID))
	_, err = svcR.CreateOrder(ctx, orders.CreateOrderInput{UserID: "user-1", TotalAmount: dec("22.00"), Items: newItems})
	require.NoError(t, err)

	for _, id := range []string{"A", "B", "C"} {
		assert.Equal(t, stR.Stock(id), stU.Stock(id), "product %s", id)
	}
}

func TestConcurrentCreatesNeverOversell(t *testing.T) {
	ctx := context.Background()
	svc, st := newFixture()
	addProduct(st, "X", 6, "2.00")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateOrder(ctx, orders.CreateOrderInput{
				UserID:      "user-1",
				TotalAmount: dec("10.00"),
				Items:       []orders.ItemInput{{ProductID: "X", Quantity: 5, Price: dec("2.00")}},
			})
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		var ins *orders.InsufficientStockError
		require.ErrorAs(t, err, &ins)
		insufficient++
	}
	assert.Equal(t, 1, ok, "exactly one create wins")
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, 1, st.Stock("X"))
}

func TestConcurrentDecreasesExactAdmission(t *testing.T) {
	ctx := context.Background()
	svc, st := newFixture()

	const stock, q, n = 10, 3, 7 // floor(10/3) = 3 winners
	addProduct(st, "X", stock, "2.00")

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.DecreaseStock(ctx, "X", q)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			var ins *orders.InsufficientStockError
			require.ErrorAs(t, err, &ins)
		}
	}
	assert.Equal(t, stock/q, ok)
	assert.Equal(t, stock-(stock/q)*q, st.Stock("X"))
	assert.GreaterOrEqual(t, st.Stock("X"), 0)
}

// Conservation: stock + open reservations stays constant through a series
// of create/update/delete operations.
func TestStockConservation(t *testing.T) {
	ctx := context.Background()
	svc, st := newFixture()
	const initial = 20
	addProduct(st, "A", initial, "3.00")

	reservedA := func() int {
		total := 0
		page, err := svc.ListOrders(ctx, orders.OrderFilter{}, 1)
		require.NoError(t, err)
		for _, o := range page.Orders {
			items, err := svc.ListItems(ctx, o.ID)
			require.NoError(t, err)
			for _, it := range items {
				if it.ProductID == "A" {
					total += it.Quantity
				}
			}
		}
		return total
	}
	check := func() {
		assert.Equal(t, initial, st.Stock("A")+reservedA())
	}

	o1, err := svc.CreateOrder(ctx, orders.CreateOrderInput{
		UserID: "user-1", TotalAmount: dec("9.00"),
		Items: []orders.ItemInput{{ProductID: "A", Quantity: 3, Price: dec("3.00")}},
	})
	require.NoError(t, err)
	check()

	o2, err := svc.CreateOrder(ctx, orders.CreateOrderInput{
		UserID: "user-1", TotalAmount: dec("15.00"),
		Items: []orders.ItemInput{{ProductID: "A", Quantity: 5, Price: dec("3.00")}},
	})
	require.NoError(t, err)
	check()

	_, err = svc.UpdateOrder(ctx, o1.ID, orders.UpdateOrderInput{
		Items: []orders.ItemInput{{ProductID: "A", Quantity: 7, Price: dec("3.00")}},
	})
	require.NoError(t, err)
	check()

	require.NoError(t, svc.DeleteOrder(ctx, o2.ID))
	check()

	require.NoError(t, svc.DeleteOrder(ctx, o1.ID))
	check()
	assert.Equal(t, initial, st.Stock("A"))
}

func TestListOrdersFilters(t *testing.T) {
	ctx := context.Background()
	svc, st := newFixture()
	addProduct(st, "A", 100, "3.00")

	mk := func(desc string, status orders.Status, daysAgo int) {
		date := time.Now().UTC().Add(-time.Duration(daysAgo) * 24 * time.Hour)
		_, err := svc.CreateOrder(ctx, orders.CreateOrderInput{
			UserID:      "user-1",
			Description: desc,
			TotalAmount: dec("3.00"),
			OrderDate:   &date,
			Status:      status,
			Items:       []orders.ItemInput{{ProductID: "A", Quantity: 1, Price: dec("3.00")}},
		})
		require.NoError(t, err)
	}
	mk("birthday gift", orders.StatusPending, 1)
	mk("office supplies", orders.StatusCompleted, 5)
	mk("birthday cake", orders.StatusCancelled, 10)

	page, err := svc.ListOrders(ctx, orders.OrderFilter{}, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	// newest first
	assert.Equal(t, "birthday gift", page.Orders[0].Description)

	page, err = svc.ListOrders(ctx, orders.OrderFilter{Search: "birthday"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	// search also matches the owning user's name
	page, err = svc.ListOrders(ctx, orders.OrderFilter{Search: "mario"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)

	page, err = svc.ListOrders(ctx, orders.OrderFilter{Status: orders.StatusCompleted}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	from := time.Now().UTC().Add(-7 * 24 * time.Hour)
	page, err = svc.ListOrders(ctx, orders.OrderFilter{StartDate: &from}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}
