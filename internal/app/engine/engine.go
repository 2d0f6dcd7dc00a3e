package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	feedv1 "github.com/chuvpilo/pricer/internal/domain/feed/v1"
	orderbookv1 "github.com/chuvpilo/pricer/internal/domain/orderbook/v1"
	quotev1 "github.com/chuvpilo/pricer/internal/domain/quote/v1"
	snapshotv1 "github.com/chuvpilo/pricer/internal/domain/snapshot/v1"
	"github.com/chuvpilo/pricer/internal/usecase/orderbook"
	"github.com/chuvpilo/pricer/pkg/config"
	"github.com/chuvpilo/pricer/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"
)

// Engine is the driving loop: it feeds decoded order events into the book,
// re-prices a market order of the configured target size after every
// accepted event, and emits each side's quote whenever it changes.
type Engine struct {
	// Core components
	book           *orderbook.Orderbook
	orderReader    feedv1.OrderReader
	quotePublisher quotev1.QuotePublisher // optional
	snapshotStore  snapshotv1.Store       // optional
	logger         *logger.Logger
	config         *config.Config
	out            io.Writer

	// Simple state management with mutex instead of atomics
	mu                 sync.RWMutex
	orderOffset        int64
	lastSnapshotOffset int64

	// Feed ordering and quote change detection; only the processor
	// goroutine touches these
	lastTimestamp int64
	lastQuotes    map[orderbookv1.Side]*quotev1.Quote

	// Simple shutdown coordination
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Configuration
	snapshotInterval    time.Duration
	snapshotOffsetDelta int64
}

// NewEngine creates a new instance of Engine with the provided dependencies.
// quotePublisher and snapshotStore may be nil when those outputs are disabled.
func NewEngine(
	book *orderbook.Orderbook,
	orderReader feedv1.OrderReader,
	snapshotStore snapshotv1.Store,
	quotePublisher quotev1.QuotePublisher,
	logger *logger.Logger,
	config *config.Config,
) *Engine {
	return NewEngineWithOptions(book, orderReader, snapshotStore, quotePublisher, logger, config, DefaultEngineOptions())
}

// NewEngineWithOptions creates a new engine with custom options
func NewEngineWithOptions(
	book *orderbook.Orderbook,
	orderReader feedv1.OrderReader,
	snapshotStore snapshotv1.Store,
	quotePublisher quotev1.QuotePublisher,
	log *logger.Logger,
	cfg *config.Config,
	options *Options,
) *Engine {
	e := &Engine{
		book:           book,
		orderReader:    orderReader,
		snapshotStore:  snapshotStore,
		quotePublisher: quotePublisher,
		logger:         log,
		config:         cfg,
		out:            os.Stdout,

		snapshotInterval:    options.SnapshotInterval,
		snapshotOffsetDelta: options.SnapshotOffsetDelta,
		orderOffset:         -1,
		lastQuotes:          make(map[orderbookv1.Side]*quotev1.Quote),
	}

	// nothing emitted yet on either side equals an insufficient quote, so
	// an empty book does not produce a leading NA line
	for _, side := range []orderbookv1.Side{orderbookv1.SideBuy, orderbookv1.SideSell} {
		e.lastQuotes[side] = &quotev1.Quote{
			Side:       side,
			TargetSize: cfg.TargetSize,
			Sufficient: false,
		}
	}

	// Load snapshot during initialization
	if err := e.loadSnapshot(context.Background()); err != nil {
		e.logger.GetZap().Fatal("Failed to load snapshot", zapcore.Field{
			Key:       "error",
			Type:      zapcore.ErrorType,
			Interface: err,
		})
	}

	return e
}

// SetOutput redirects console quote output; defaults to os.Stdout.
func (e *Engine) SetOutput(w io.Writer) {
	e.out = w
}

// Start initializes the engine and starts processing routines.
func (e *Engine) Start(ctx context.Context) error {
	// Create cancellable context
	e.ctx, e.cancel = context.WithCancel(ctx)

	e.wg.Add(1)
	go e.runOrderProcessor()

	if e.snapshotStore != nil {
		e.wg.Add(1)
		go e.runSnapshotManager()
	}

	e.logger.Info("Engine started", logger.Field{
		Key:   "instrument",
		Value: e.config.Instrument,
	}, logger.Field{
		Key:   "targetSize",
		Value: e.config.TargetSize,
	})

	return nil
}

// Stop gracefully shuts down the engine
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}

	// Wait for goroutines to finish with timeout
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("Engine stopped gracefully")
		return nil
	case <-ctx.Done():
		e.logger.Warn("Engine stop timeout exceeded")
		return ctx.Err()
	}
}

// Done is closed when the engine has finished on its own, e.g. a feed file
// being fully replayed.
func (e *Engine) Done() <-chan struct{} {
	return e.ctx.Done()
}

// runOrderProcessor combines feed reading and book processing in a single
// goroutine; the book therefore has exactly one writer.
func (e *Engine) runOrderProcessor() {
	defer e.wg.Done()

	e.logger.Info("Starting order processor", logger.Field{
		Key:   "instrument",
		Value: e.config.Instrument,
	})

	// Resume after the last applied event
	currentOffset := e.getOrderOffset()
	if currentOffset >= 0 {
		if err := e.orderReader.SetOffset(currentOffset + 1); err != nil {
			e.logger.GetZap().Fatal("Failed to set offset for order reader", zapcore.Field{
				Key:       "error",
				Type:      zapcore.ErrorType,
				Interface: err,
			})
		}
	}

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("Order processor shutting down")
			e.orderReader.Close()
			return
		default:
			order, offset, err := e.orderReader.ReadMessage(e.ctx)
			if err != nil {
				switch {
				case errors.Is(err, io.EOF):
					// finite feed fully replayed
					e.logger.Info("Feed drained, stopping engine", logger.Field{
						Key:   "offset",
						Value: offset,
					})
					e.cancel()
					continue
				case errors.Is(err, context.Canceled):
					continue
				case errors.Is(err, feedv1.ErrBadParse):
					// one bad message never aborts the stream
					e.logger.Warn("Skipping message due to parsing errors", logger.Field{
						Key:   "error",
						Value: err.Error(),
					}, logger.Field{
						Key:   "offset",
						Value: offset,
					})
					e.setOrderOffset(offset)
					continue
				default:
					e.logger.Error(err, logger.Field{
						Key:   "action",
						Value: "read_order_message",
					})
					// Simple backoff
					time.Sleep(100 * time.Millisecond)
					continue
				}
			}

			// Process order immediately
			if err := e.processOrder(order); err != nil {
				e.logger.Error(err, logger.Field{
					Key:   "action",
					Value: "process_order",
				}, logger.Field{
					Key:   "orderID",
					Value: order.ID,
				})
				e.setOrderOffset(offset)
				continue
			}

			// Update offset
			e.setOrderOffset(offset)
		}
	}
}

// runSnapshotManager handles periodic snapshots
func (e *Engine) runSnapshotManager() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.snapshotInterval)
	defer ticker.Stop()

	e.logger.Info("Starting snapshot manager")

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("Snapshot manager shutting down")
			return
		case <-ticker.C:
			if e.shouldCreateSnapshot() {
				e.createAndStoreSnapshot()
			}
		}
	}
}

// processOrder applies a single order event and re-quotes both directions.
// Events whose timestamp regresses are dropped before they reach the book.
func (e *Engine) processOrder(order *orderbookv1.Order) error {
	if order.Timestamp < e.lastTimestamp {
		e.logger.Warn("Skipping out of order message", logger.Field{
			Key:   "timestamp",
			Value: order.Timestamp,
		}, logger.Field{
			Key:   "lastTimestamp",
			Value: e.lastTimestamp,
		})
		return nil
	}
	e.lastTimestamp = order.Timestamp

	if err := e.book.Apply(order); err != nil {
		return err
	}

	e.logger.Debug("Applied order",
		logger.Field{Key: "orderID", Value: order.ID},
		logger.Field{Key: "type", Value: order.Type},
		logger.Field{Key: "openBids", Value: e.book.OpenInterest(orderbookv1.SideBuy)},
		logger.Field{Key: "openAsks", Value: e.book.OpenInterest(orderbookv1.SideSell)},
	)

	e.quoteBothSides(order.Timestamp)
	return nil
}

// quoteBothSides prices a buy and a sell of the target size and emits each
// side whose answer changed since it was last emitted.
func (e *Engine) quoteBothSides(timestamp int64) {
	for _, side := range []orderbookv1.Side{orderbookv1.SideBuy, orderbookv1.SideSell} {
		notional, sufficient, err := e.book.QuoteMarketOrder(side, e.config.TargetSize)
		if err != nil {
			e.logger.Error(err, logger.Field{
				Key:   "action",
				Value: "quote_market_order",
			})
			continue
		}

		quote := &quotev1.Quote{
			EventID:    uuid.NewString(),
			Instrument: e.config.Instrument,
			Side:       side,
			TargetSize: e.config.TargetSize,
			Notional:   notional,
			Sufficient: sufficient,
			Timestamp:  timestamp,
		}

		if quote.Equal(e.lastQuotes[side]) {
			continue
		}
		e.lastQuotes[side] = quote

		fmt.Fprintf(e.out, "%d %s %s\n", timestamp, sideLetter(side), quote.DisplayNotional())

		if e.quotePublisher != nil {
			if err := e.quotePublisher.PublishQuote(e.ctx, quote); err != nil {
				e.logger.Error(err, logger.Field{
					Key:   "action",
					Value: "publish_quote",
				})
			}
		}
	}
}

// loadSnapshot restores the book from the latest stored snapshot, if any.
func (e *Engine) loadSnapshot(ctx context.Context) error {
	if e.snapshotStore == nil {
		return nil
	}

	snapshot, err := e.snapshotStore.LoadStore(ctx)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return nil
	}

	if err := e.book.Restore(snapshot); err != nil {
		return err
	}

	e.setOrderOffset(snapshot.Offset)
	e.setLastSnapshotOffset(snapshot.Offset)

	e.logger.Info("Restored book from snapshot", logger.Field{
		Key:   "offset",
		Value: snapshot.Offset,
	}, logger.Field{
		Key:   "openBids",
		Value: e.book.OpenInterest(orderbookv1.SideBuy),
	}, logger.Field{
		Key:   "openAsks",
		Value: e.book.OpenInterest(orderbookv1.SideSell),
	})

	return nil
}

// shouldCreateSnapshot checks if a snapshot should be created
func (e *Engine) shouldCreateSnapshot() bool {
	e.mu.RLock()
	currentOffset := e.orderOffset
	lastSnapshotOffset := e.lastSnapshotOffset
	e.mu.RUnlock()

	if currentOffset <= 0 {
		return false
	}

	delta := currentOffset - lastSnapshotOffset
	return delta >= e.snapshotOffsetDelta
}

// createAndStoreSnapshot creates and stores a snapshot
func (e *Engine) createAndStoreSnapshot() {
	currentOffset := e.getOrderOffset()

	snapshot := e.book.Snapshot(e.config.Instrument, currentOffset)

	if err := e.snapshotStore.Store(e.ctx, snapshot); err != nil {
		e.logger.Error(err, logger.Field{
			Key:   "action",
			Value: "store_snapshot",
		})
		return
	}

	e.setLastSnapshotOffset(currentOffset)
}

// Thread-safe getters and setters
func (e *Engine) getOrderOffset() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.orderOffset
}

func (e *Engine) setOrderOffset(offset int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.orderOffset = offset
}

func (e *Engine) setLastSnapshotOffset(offset int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSnapshotOffset = offset
}

func sideLetter(side orderbookv1.Side) string {
	if side == orderbookv1.SideBuy {
		return "B"
	}
	return "S"
}
