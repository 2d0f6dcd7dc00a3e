package orderbook

import (
	"fmt"

	orderbookv1 "github.com/chuvpilo/pricer/internal/domain/orderbook/v1"
	"github.com/tidwall/btree"
)

const levelTreeDegree = 32

// halfBook holds one side of the book: price levels in a B-tree keyed by
// price, plus an id index pointing straight at the resting orders. The two
// structures are only ever updated together, within one call, so an id in
// the index always has a live level behind its Limit pointer.
//
// halfBook is not safe for concurrent use; Orderbook serializes access.
type halfBook struct {
	side         orderbookv1.Side
	levels       *btree.Map[int64, *orderbookv1.Limit]
	orders       map[string]*orderbookv1.Order
	openInterest int64
}

func newHalfBook(side orderbookv1.Side) *halfBook {
	return &halfBook{
		side:   side,
		levels: btree.NewMap[int64, *orderbookv1.Limit](levelTreeDegree),
		orders: make(map[string]*orderbookv1.Order),
	}
}

// insert adds a new resting order at its price level, after any orders
// already resting there. Nothing is mutated when the id is already indexed.
func (h *halfBook) insert(order *orderbookv1.Order) error {
	if order == nil {
		return orderbookv1.ErrNilOrder
	}
	if order.Size <= 0 {
		return fmt.Errorf("%w: got %d", orderbookv1.ErrBadOrderSize, order.Size)
	}
	if order.Price <= 0 {
		return fmt.Errorf("%w: got %d", orderbookv1.ErrInvalidPrice, order.Price)
	}
	if _, exists := h.orders[order.ID]; exists {
		return fmt.Errorf("%w: %s", orderbookv1.ErrDuplicateOrderID, order.ID)
	}

	level, exists := h.levels.Get(order.Price)
	if !exists {
		level = orderbookv1.NewLimit(order.Price)
		h.levels.Set(order.Price, level)
	}

	if err := level.AddOrder(order); err != nil {
		if !exists {
			h.levels.Delete(order.Price)
		}
		return err
	}

	h.orders[order.ID] = order
	h.openInterest += order.Size

	return nil
}

// find returns the resting order for an id.
func (h *halfBook) find(id string) (*orderbookv1.Order, bool) {
	order, ok := h.orders[id]
	return order, ok
}

// reduce shrinks a resting order by amount. An amount greater than or equal
// to the current size removes the order from both the price structure and
// the id index. The comparison happens before any subtraction so the size
// can never go negative. Returns how much interest was freed and whether the
// order was removed entirely.
func (h *halfBook) reduce(id string, amount int64) (freed int64, removed bool, err error) {
	if amount <= 0 {
		return 0, false, fmt.Errorf("%w: got %d", orderbookv1.ErrBadOrderSize, amount)
	}

	order, ok := h.orders[id]
	if !ok {
		return 0, false, fmt.Errorf("%w: %s", orderbookv1.ErrNoSuchOrder, id)
	}

	level := order.Limit

	if amount >= order.Size {
		freed = order.Size
		if err := level.RemoveOrder(order); err != nil {
			return 0, false, err
		}
		if level.IsEmpty() {
			h.levels.Delete(level.Price)
		}
		delete(h.orders, id)
		h.openInterest -= freed
		return freed, true, nil
	}

	if err := level.ReduceOrder(order, amount); err != nil {
		return 0, false, err
	}
	h.openInterest -= amount
	return amount, false, nil
}

// walk visits price levels in this side's priority order: descending price
// for bids, ascending for asks. Iteration stops when fn returns false.
// Orders within a visited level are already in arrival order.
func (h *halfBook) walk(fn func(*orderbookv1.Limit) bool) {
	iter := func(_ int64, level *orderbookv1.Limit) bool {
		return fn(level)
	}
	if h.side == orderbookv1.SideBuy {
		h.levels.Reverse(iter)
	} else {
		h.levels.Scan(iter)
	}
}

// levelCount returns the number of occupied price levels.
func (h *halfBook) levelCount() int {
	return h.levels.Len()
}

// orderCount returns the number of resting orders.
func (h *halfBook) orderCount() int {
	return len(h.orders)
}
