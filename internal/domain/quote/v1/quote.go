package quotev1

import (
	orderbookv1 "github.com/chuvpilo/pricer/internal/domain/orderbook/v1"
	"github.com/shopspring/decimal"
)

const priceScale = 100

// Quote is the answer to "what would a market order of TargetSize cost right
// now". Notional is in minor units and only meaningful when Sufficient.
type Quote struct {
	EventID    string           `json:"eventID"`
	Instrument string           `json:"instrument"`
	Side       orderbookv1.Side `json:"side"` // direction of the hypothetical market order
	TargetSize int64            `json:"targetSize"`
	Notional   int64            `json:"notional"` // minor units
	Sufficient bool             `json:"sufficient"`
	Timestamp  int64            `json:"timestamp"` // feed timestamp of the triggering event
}

// DisplayNotional renders the notional in display units with two decimal
// places, or "NA" when the book cannot fill the target size.
func (q *Quote) DisplayNotional() string {
	if !q.Sufficient {
		return "NA"
	}
	return decimal.NewFromInt(q.Notional).
		Div(decimal.NewFromInt(priceScale)).
		StringFixed(2)
}

// Equal reports whether two quotes carry the same priced answer. EventID and
// Timestamp are identity fields, not part of the answer.
func (q *Quote) Equal(other *Quote) bool {
	if other == nil {
		return false
	}
	return q.Side == other.Side &&
		q.TargetSize == other.TargetSize &&
		q.Notional == other.Notional &&
		q.Sufficient == other.Sufficient
}
