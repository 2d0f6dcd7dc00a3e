package orderbookv1

import "fmt"

// Limit represents a price level in the order book with its resting orders.
// Orders holds arrival order: appends go to the tail and nothing ever
// reorders the slice, so index order IS time priority within the level.
//
// A Limit is not safe for concurrent use; the owning book serializes access.
type Limit struct {
	Price       int64    `json:"price"` // minor units
	Orders      []*Order `json:"orders"`
	TotalVolume int64    `json:"totalVolume"`
}

// NewLimit creates a new Limit with the specified price.
func NewLimit(price int64) *Limit {
	return &Limit{
		Price:  price,
		Orders: make([]*Order, 0),
	}
}

// AddOrder appends an order to the limit and updates the total volume.
func (l *Limit) AddOrder(order *Order) error {
	if order == nil {
		return ErrNilOrder
	}
	if order.Size <= 0 {
		return fmt.Errorf("%w: got %d", ErrBadOrderSize, order.Size)
	}

	order.Limit = l
	l.Orders = append(l.Orders, order)
	l.TotalVolume += order.Size

	return nil
}

// RemoveOrder removes an order from the limit and updates the total volume.
func (l *Limit) RemoveOrder(order *Order) error {
	if order == nil {
		return ErrNilOrder
	}

	for i, o := range l.Orders {
		if o == order {
			l.Orders = append(l.Orders[:i], l.Orders[i+1:]...)
			l.TotalVolume -= order.Size
			order.Limit = nil
			return nil
		}
	}

	return ErrOrderNotFound
}

// ReduceOrder shrinks a resting order in place, keeping the level volume in
// sync. The caller guarantees amount < order.Size; full removals go through
// RemoveOrder so the order also leaves the level.
func (l *Limit) ReduceOrder(order *Order, amount int64) error {
	if order == nil {
		return ErrNilOrder
	}
	if amount <= 0 || amount >= order.Size {
		return fmt.Errorf("%w: reduce by %d against resting %d", ErrBadOrderSize, amount, order.Size)
	}

	order.Size -= amount
	l.TotalVolume -= amount

	return nil
}

// IsEmpty checks if the limit has no orders
func (l *Limit) IsEmpty() bool {
	return len(l.Orders) == 0
}

// OrderCount returns the number of orders at this limit
func (l *Limit) OrderCount() int {
	return len(l.Orders)
}

// Validate performs basic validation of the limit's state
func (l *Limit) Validate() error {
	if l.Price <= 0 {
		return fmt.Errorf("%w: limit price %d", ErrInvalidPrice, l.Price)
	}

	var calculatedVolume int64
	for _, order := range l.Orders {
		if order == nil {
			return fmt.Errorf("nil order found in limit")
		}
		if order.Size <= 0 {
			return fmt.Errorf("%w: resting order has size %d", ErrBadOrderSize, order.Size)
		}
		calculatedVolume += order.Size
	}

	if calculatedVolume != l.TotalVolume {
		return fmt.Errorf("volume mismatch: calculated %d, stored %d", calculatedVolume, l.TotalVolume)
	}

	return nil
}
