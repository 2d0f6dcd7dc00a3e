package orderbookv1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimit(t *testing.T) {
	limit := NewLimit(4410)

	assert.Equal(t, int64(4410), limit.Price)
	assert.True(t, limit.IsEmpty())
	assert.Equal(t, 0, limit.OrderCount())
	assert.Equal(t, int64(0), limit.TotalVolume)
}

func TestLimit_AddOrder(t *testing.T) {
	limit := NewLimit(4410)

	order := NewAddOrder(1, "a1", SideSell, 4410, 100)
	err := limit.AddOrder(order)

	require.NoError(t, err)
	assert.Equal(t, 1, limit.OrderCount())
	assert.Equal(t, int64(100), limit.TotalVolume)
	assert.Equal(t, limit, order.Limit)
}

func TestLimit_AddOrder_Invalid(t *testing.T) {
	limit := NewLimit(4410)

	err := limit.AddOrder(nil)
	assert.ErrorIs(t, err, ErrNilOrder)

	err = limit.AddOrder(NewAddOrder(1, "a1", SideSell, 4410, 0))
	assert.ErrorIs(t, err, ErrBadOrderSize)

	assert.True(t, limit.IsEmpty())
	assert.Equal(t, int64(0), limit.TotalVolume)
}

func TestLimit_PreservesArrivalOrder(t *testing.T) {
	limit := NewLimit(4410)

	o1 := NewAddOrder(1, "o1", SideSell, 4410, 10)
	o2 := NewAddOrder(2, "o2", SideSell, 4410, 20)
	o3 := NewAddOrder(3, "o3", SideSell, 4410, 30)

	require.NoError(t, limit.AddOrder(o1))
	require.NoError(t, limit.AddOrder(o2))
	require.NoError(t, limit.AddOrder(o3))

	assert.Equal(t, []*Order{o1, o2, o3}, limit.Orders)

	// removing the middle order keeps the remaining arrival order
	require.NoError(t, limit.RemoveOrder(o2))
	assert.Equal(t, []*Order{o1, o3}, limit.Orders)
	assert.Equal(t, int64(40), limit.TotalVolume)
}

func TestLimit_RemoveOrder_NotFound(t *testing.T) {
	limit := NewLimit(4410)
	require.NoError(t, limit.AddOrder(NewAddOrder(1, "a1", SideSell, 4410, 100)))

	stranger := NewAddOrder(2, "a2", SideSell, 4410, 50)
	err := limit.RemoveOrder(stranger)

	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Equal(t, 1, limit.OrderCount())
	assert.Equal(t, int64(100), limit.TotalVolume)
}

func TestLimit_ReduceOrder(t *testing.T) {
	limit := NewLimit(4410)
	order := NewAddOrder(1, "a1", SideSell, 4410, 100)
	require.NoError(t, limit.AddOrder(order))

	err := limit.ReduceOrder(order, 30)

	require.NoError(t, err)
	assert.Equal(t, int64(70), order.Size)
	assert.Equal(t, int64(70), limit.TotalVolume)
	assert.Equal(t, 1, limit.OrderCount())
}

func TestLimit_ReduceOrder_RejectsFullReduction(t *testing.T) {
	limit := NewLimit(4410)
	order := NewAddOrder(1, "a1", SideSell, 4410, 100)
	require.NoError(t, limit.AddOrder(order))

	// full removals must go through RemoveOrder
	err := limit.ReduceOrder(order, 100)
	assert.ErrorIs(t, err, ErrBadOrderSize)

	err = limit.ReduceOrder(order, 0)
	assert.ErrorIs(t, err, ErrBadOrderSize)

	assert.Equal(t, int64(100), order.Size)
	assert.Equal(t, int64(100), limit.TotalVolume)
}

func TestLimit_Validate(t *testing.T) {
	limit := NewLimit(4410)
	require.NoError(t, limit.AddOrder(NewAddOrder(1, "a1", SideSell, 4410, 100)))
	require.NoError(t, limit.Validate())

	limit.TotalVolume = 99
	assert.Error(t, limit.Validate())

	badPrice := NewLimit(0)
	assert.ErrorIs(t, badPrice.Validate(), ErrInvalidPrice)
}
