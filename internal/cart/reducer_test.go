package cart

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func product(id string, price int64) domain.Product {
	return domain.Product{
		ID:       id,
		Name:     "Product " + id,
		Price:    decimal.NewFromInt(price),
		Category: domain.CategoryAudio,
		InStock:  true,
	}
}

func lineItem(id string, price int64, qty int) domain.LineItem {
	return domain.LineItem{Product: product(id, price), Quantity: qty}
}

func TestReduce_AddTwiceIncrementsWithoutDuplicate(t *testing.T) {
	state := domain.NewCartState(nil)

	state, applied := Reduce(state, AddItem{Product: product("p1", 10)})
	require.True(t, applied)
	require.Len(t, state.Items, 1)
	require.Equal(t, 1, state.Items[0].Quantity)

	state, _ = Reduce(state, AddItem{Product: product("p1", 10)})
	require.Len(t, state.Items, 1)
	require.Equal(t, 2, state.Items[0].Quantity)
	require.True(t, state.Total.Equal(decimal.NewFromInt(20)))
}

func TestReduce_AddKeepsInsertionOrder(t *testing.T) {
	state := domain.NewCartState(nil)
	for _, id := range []string{"c", "a", "b", "a"} {
		state, _ = Reduce(state, AddItem{Product: product(id, 1)})
	}

	ids := make([]string, 0, len(state.Items))
	for _, item := range state.Items {
		ids = append(ids, item.ID)
	}
	require.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestReduce_RemoveIsIdempotent(t *testing.T) {
	state := domain.NewCartState([]domain.LineItem{lineItem("p1", 10, 2)})

	next, applied := Reduce(state, RemoveItem{ProductID: "missing"})
	require.False(t, applied)
	require.Equal(t, state, next)

	next, applied = Reduce(state, RemoveItem{ProductID: "p1"})
	require.True(t, applied)
	require.Empty(t, next.Items)
	require.True(t, next.Total.IsZero())
}

func TestReduce_UpdateQuantityRejectsBelowOne(t *testing.T) {
	state := domain.NewCartState([]domain.LineItem{lineItem("p1", 10, 3)})

	for _, qty := range []int{0, -1} {
		next, applied := Reduce(state, UpdateQuantity{ProductID: "p1", Quantity: qty})
		require.False(t, applied)
		require.Equal(t, state, next)
	}

	next, applied := Reduce(state, UpdateQuantity{ProductID: "p1", Quantity: 7})
	require.True(t, applied)
	require.Equal(t, 7, next.Items[0].Quantity)
	require.True(t, next.Total.Equal(decimal.NewFromInt(70)))
	require.Equal(t, 3, state.Items[0].Quantity, "input state must not be mutated")
}

func TestReduce_UpdateQuantityUnknownID(t *testing.T) {
	state := domain.NewCartState([]domain.LineItem{lineItem("p1", 10, 3)})
	next, applied := Reduce(state, UpdateQuantity{ProductID: "p2", Quantity: 4})
	require.False(t, applied)
	require.Equal(t, state, next)
}

func TestReduce_MergeIsAdditive(t *testing.T) {
	state := domain.NewCartState([]domain.LineItem{lineItem("a", 10, 1)})

	next, applied := Reduce(state, MergeCart{Items: []domain.LineItem{
		lineItem("a", 10, 2),
		lineItem("b", 5, 4),
	}})
	require.True(t, applied)
	require.Len(t, next.Items, 2)
	require.Equal(t, "a", next.Items[0].ID)
	require.Equal(t, 3, next.Items[0].Quantity)
	require.Equal(t, lineItem("b", 5, 4), next.Items[1])
	require.True(t, next.Total.Equal(decimal.NewFromInt(50)))
	require.Equal(t, 1, state.Items[0].Quantity, "input state must not be mutated")
}

func TestReduce_MergeSameSnapshotTwiceDoubleCounts(t *testing.T) {
	snapshot := []domain.LineItem{lineItem("a", 1, 2)}
	state := domain.NewCartState(nil)

	state, _ = Reduce(state, MergeCart{Items: snapshot})
	state, _ = Reduce(state, MergeCart{Items: snapshot})
	require.Equal(t, 4, state.Items[0].Quantity)
}

func TestReduce_ClearAndSet(t *testing.T) {
	state := domain.NewCartState([]domain.LineItem{lineItem("a", 10, 1)})

	cleared, applied := Reduce(state, ClearCart{})
	require.True(t, applied)
	require.Empty(t, cleared.Items)
	require.True(t, cleared.Total.IsZero())

	set, applied := Reduce(cleared, SetCart{Items: []domain.LineItem{lineItem("x", 3, 3)}})
	require.True(t, applied)
	require.True(t, set.Total.Equal(decimal.NewFromInt(9)))
}

func TestReduce_TotalInvariantUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ids := []string{"a", "b", "c", "d"}
	prices := map[string]int64{"a": 3, "b": 7, "c": 11, "d": 0}

	state := domain.NewCartState(nil)
	for i := 0; i < 500; i++ {
		id := ids[rng.Intn(len(ids))]
		var action Action
		switch rng.Intn(3) {
		case 0:
			action = AddItem{Product: product(id, prices[id])}
		case 1:
			action = RemoveItem{ProductID: id}
		default:
			action = UpdateQuantity{ProductID: id, Quantity: rng.Intn(6) - 1}
		}
		state, _ = Reduce(state, action)

		require.True(t, state.Total.Equal(domain.CalculateTotal(state.Items)), "step %d", i)
		seen := map[string]bool{}
		for _, item := range state.Items {
			require.False(t, seen[item.ID], "duplicate line item %s", item.ID)
			require.GreaterOrEqual(t, item.Quantity, 1)
			seen[item.ID] = true
		}
	}
}
