package snapshotv1

import (
	orderbookv1 "github.com/chuvpilo/pricer/internal/domain/orderbook/v1"
)

// Snapshot captures the full structural state of the book: every resting
// order on both sides, each side in priority order, plus the feed offset the
// state corresponds to. Restoring it and replaying from Offset+1 rebuilds
// the exact book.
type Snapshot struct {
	Instrument string               `json:"instrument"`
	Bids       []*orderbookv1.Order `json:"bids"` // best to worst, FIFO within level
	Asks       []*orderbookv1.Order `json:"asks"` // best to worst, FIFO within level
	Offset     int64                `json:"offset"`
	Timestamp  int64                `json:"timestamp"` // wall clock, unix nanoseconds
}
