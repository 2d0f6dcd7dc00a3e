package orderbook

import (
	"fmt"
	"strings"
	"sync"
	"time"

	orderbookv1 "github.com/chuvpilo/pricer/internal/domain/orderbook/v1"
	snapshotv1 "github.com/chuvpilo/pricer/internal/domain/snapshot/v1"
	"github.com/shopspring/decimal"
)

const priceScale = 100

// Orderbook maintains both sides of a single instrument's limit order book
// and answers market-order pricing queries without mutating state.
//
// Writes come from a single feed loop; the RWMutex exists so the snapshot
// manager can read a consistent book from its own goroutine. Both half-book
// structures are only ever touched inside the same critical section.
type Orderbook struct {
	mu   sync.RWMutex
	bids *halfBook
	asks *halfBook
}

// NewOrderbook creates a new empty orderbook.
func NewOrderbook() *Orderbook {
	return &Orderbook{
		bids: newHalfBook(orderbookv1.SideBuy),
		asks: newHalfBook(orderbookv1.SideSell),
	}
}

// Apply dispatches an order event into the book. On any error the book is
// left exactly as it was; all errors wrap one of the orderbookv1 sentinels.
func (ob *Orderbook) Apply(order *orderbookv1.Order) error {
	if order == nil {
		return orderbookv1.ErrNilOrder
	}
	if order.Size <= 0 {
		return fmt.Errorf("%w: got %d", orderbookv1.ErrBadOrderSize, order.Size)
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	switch order.Type {
	case orderbookv1.OrderTypeAdd:
		switch order.Side {
		case orderbookv1.SideBuy:
			return ob.bids.insert(order)
		case orderbookv1.SideSell:
			return ob.asks.insert(order)
		default:
			// defensive; a conforming decoder never produces this
			return fmt.Errorf("%w: %q", orderbookv1.ErrBadOrderSide, order.Side)
		}

	case orderbookv1.OrderTypeReduce:
		// ids are unique across sides, so try bids first, then asks
		if _, ok := ob.bids.find(order.ID); ok {
			_, _, err := ob.bids.reduce(order.ID, order.Size)
			return err
		}
		if _, ok := ob.asks.find(order.ID); ok {
			_, _, err := ob.asks.reduce(order.ID, order.Size)
			return err
		}
		return fmt.Errorf("%w: %s", orderbookv1.ErrNoSuchOrder, order.ID)

	default:
		// defensive; should be unreachable given a conforming decoder
		return fmt.Errorf("%w: %q", orderbookv1.ErrBadOrderType, order.Type)
	}
}

// QuoteMarketOrder prices a hypothetical market order of targetSize without
// touching book state. A buy consumes the asks (lowest offers first), a sell
// consumes the bids (highest bids first), FIFO within a level. When the
// side's open interest cannot cover targetSize it reports sufficient=false
// immediately, without walking levels. The notional is in minor units.
func (ob *Orderbook) QuoteMarketOrder(side orderbookv1.Side, targetSize int64) (notional int64, sufficient bool, err error) {
	if targetSize < 1 {
		return 0, false, fmt.Errorf("%w: got %d", orderbookv1.ErrBadOrderSize, targetSize)
	}

	var book *halfBook
	switch side {
	case orderbookv1.SideBuy:
		book = ob.asks
	case orderbookv1.SideSell:
		book = ob.bids
	default:
		return 0, false, fmt.Errorf("%w: %q", orderbookv1.ErrBadOrderSide, side)
	}

	ob.mu.RLock()
	defer ob.mu.RUnlock()

	if targetSize > book.openInterest {
		return 0, false, nil
	}

	var filled int64
	book.walk(func(level *orderbookv1.Limit) bool {
		for _, resting := range level.Orders {
			take := resting.Size
			if remaining := targetSize - filled; take > remaining {
				take = remaining
			}
			filled += take
			notional += take * level.Price
			if filled == targetSize {
				return false
			}
		}
		return true
	})

	return notional, true, nil
}

// OpenInterest returns the total size resting on one side of the book.
func (ob *Orderbook) OpenInterest(side orderbookv1.Side) int64 {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	if side == orderbookv1.SideBuy {
		return ob.bids.openInterest
	}
	return ob.asks.openInterest
}

// WalkBids visits bid levels best (highest) price first, FIFO within each
// level, until fn returns false. Read-only.
func (ob *Orderbook) WalkBids(fn func(*orderbookv1.Limit) bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	ob.bids.walk(fn)
}

// WalkAsks visits ask levels best (lowest) price first, FIFO within each
// level, until fn returns false. Read-only.
func (ob *Orderbook) WalkAsks(fn func(*orderbookv1.Limit) bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	ob.asks.walk(fn)
}

// Render returns a human-readable view of the book: asks best to worst,
// bids best to worst, then both open interest totals. Purely derived from
// the priority walks.
func (ob *Orderbook) Render() string {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	var b strings.Builder
	b.WriteString("order book:\n")

	b.WriteString("asks:\n")
	ob.asks.walk(func(level *orderbookv1.Limit) bool {
		for _, o := range level.Orders {
			fmt.Fprintf(&b, "  %s x %d\t(id=%s)\n", displayPrice(level.Price), o.Size, o.ID)
		}
		return true
	})

	b.WriteString("bids:\n")
	ob.bids.walk(func(level *orderbookv1.Limit) bool {
		for _, o := range level.Orders {
			fmt.Fprintf(&b, "  %s x %d\t(id=%s)\n", displayPrice(level.Price), o.Size, o.ID)
		}
		return true
	})

	fmt.Fprintf(&b, "open bids = %d\n", ob.bids.openInterest)
	fmt.Fprintf(&b, "open asks = %d\n", ob.asks.openInterest)

	return b.String()
}

// Snapshot captures every resting order on both sides, in priority order,
// tagged with the feed offset the state corresponds to.
func (ob *Orderbook) Snapshot(instrument string, offset int64) *snapshotv1.Snapshot {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	snapshot := &snapshotv1.Snapshot{
		Instrument: instrument,
		Bids:       make([]*orderbookv1.Order, 0, ob.bids.orderCount()),
		Asks:       make([]*orderbookv1.Order, 0, ob.asks.orderCount()),
		Offset:     offset,
		Timestamp:  time.Now().UnixNano(),
	}

	collect := func(dst *[]*orderbookv1.Order) func(*orderbookv1.Limit) bool {
		return func(level *orderbookv1.Limit) bool {
			for _, o := range level.Orders {
				clone := *o
				clone.Limit = nil
				*dst = append(*dst, &clone)
			}
			return true
		}
	}
	ob.bids.walk(collect(&snapshot.Bids))
	ob.asks.walk(collect(&snapshot.Asks))

	return snapshot
}

// Restore rebuilds the book from a snapshot. The receiver must be empty;
// snapshot orders arrive in priority order so re-inserting them preserves
// time priority within each level.
func (ob *Orderbook) Restore(snapshot *snapshotv1.Snapshot) error {
	if snapshot == nil {
		return nil
	}

	for _, o := range append(append([]*orderbookv1.Order{}, snapshot.Bids...), snapshot.Asks...) {
		order := *o
		order.Type = orderbookv1.OrderTypeAdd
		order.Limit = nil
		if err := ob.Apply(&order); err != nil {
			return fmt.Errorf("restore order %s: %w", order.ID, err)
		}
	}

	return nil
}

// Validate recomputes both sides' invariants: open interest equals the sum
// of resting sizes, every level's stored volume matches its orders, and no
// id is indexed on both sides.
func (ob *Orderbook) Validate() error {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	for _, h := range []*halfBook{ob.bids, ob.asks} {
		var total int64
		var walkErr error
		h.walk(func(level *orderbookv1.Limit) bool {
			if err := level.Validate(); err != nil {
				walkErr = err
				return false
			}
			total += level.TotalVolume
			return true
		})
		if walkErr != nil {
			return walkErr
		}
		if total != h.openInterest {
			return fmt.Errorf("open interest mismatch on %s: levels hold %d, counter says %d", h.side, total, h.openInterest)
		}
	}

	for id := range ob.bids.orders {
		if _, ok := ob.asks.orders[id]; ok {
			return fmt.Errorf("order id %s indexed on both sides", id)
		}
	}

	return nil
}

func displayPrice(price int64) string {
	return decimal.NewFromInt(price).Div(decimal.NewFromInt(priceScale)).StringFixed(2)
}
