package feedv1

import (
	"context"

	orderbookv1 "github.com/chuvpilo/pricer/internal/domain/orderbook/v1"
)

// OrderReader defines the interface for reading order events from a feed source.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=feedv1_mock
type OrderReader interface {
	// ReadMessage blocks until the next feed event is available and returns
	// it together with its offset in the stream. A drained finite source
	// returns io.EOF.
	ReadMessage(ctx context.Context) (*orderbookv1.Order, int64, error)
	// SetOffset positions the reader so the next message returned is the
	// one at offset; used when resuming from a snapshot
	SetOffset(offset int64) error
	// Close closes the reader
	Close() error
}
