package orderbookv1

// OrderType represents the type of order event.
type OrderType string

const (
	// OrderTypeAdd represents a new resting order entering the book.
	OrderTypeAdd OrderType = "add"
	// OrderTypeReduce represents a reduction of an existing resting order.
	OrderTypeReduce OrderType = "reduce"
)

// Side represents the side of the book an order rests on.
type Side string

const (
	// SideBuy represents a bid.
	SideBuy Side = "buy"
	// SideSell represents an ask.
	SideSell Side = "sell"
)

// Order represents a single order event. A successful add turns the same
// value into a resting order whose Size is decremented by later reduces.
// Price and Size are integer minor currency units and shares, never floats.
type Order struct {
	ID        string    `json:"id"`
	Type      OrderType `json:"type"`
	Side      Side      `json:"side,omitempty"` // add only
	Price     int64     `json:"price"`          // minor units (cents), add only
	Size      int64     `json:"size"`           // for reduce: quantity to subtract
	Timestamp int64     `json:"timestamp"`      // milliseconds since reference point
	Limit     *Limit    `json:"-"`              // owning price level while resting
}

// NewAddOrder creates an add event.
func NewAddOrder(timestamp int64, id string, side Side, price, size int64) *Order {
	return &Order{
		ID:        id,
		Type:      OrderTypeAdd,
		Side:      side,
		Price:     price,
		Size:      size,
		Timestamp: timestamp,
	}
}

// NewReduceOrder creates a reduce event.
func NewReduceOrder(timestamp int64, id string, size int64) *Order {
	return &Order{
		ID:        id,
		Type:      OrderTypeReduce,
		Size:      size,
		Timestamp: timestamp,
	}
}

// IsBid checks if the order rests on the bid side.
func (o *Order) IsBid() bool {
	return o.Side == SideBuy
}

// IsAsk checks if the order rests on the ask side.
func (o *Order) IsAsk() bool {
	return o.Side == SideSell
}
