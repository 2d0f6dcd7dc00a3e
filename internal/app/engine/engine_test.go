package engine

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderbookv1 "github.com/chuvpilo/pricer/internal/domain/orderbook/v1"
	quotev1 "github.com/chuvpilo/pricer/internal/domain/quote/v1"
	snapshotv1 "github.com/chuvpilo/pricer/internal/domain/snapshot/v1"
	"github.com/chuvpilo/pricer/internal/usecase/feed"
	"github.com/chuvpilo/pricer/internal/usecase/orderbook"
	"github.com/chuvpilo/pricer/pkg/config"
	"github.com/chuvpilo/pricer/pkg/logger"
)

type fakeQuotePublisher struct {
	mu     sync.Mutex
	quotes []*quotev1.Quote
}

func (p *fakeQuotePublisher) PublishQuote(_ context.Context, quote *quotev1.Quote) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes = append(p.quotes, quote)
	return nil
}

func (p *fakeQuotePublisher) Close() error { return nil }

func (p *fakeQuotePublisher) published() []*quotev1.Quote {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*quotev1.Quote{}, p.quotes...)
}

type fakeSnapshotStore struct {
	mu      sync.Mutex
	initial *snapshotv1.Snapshot
	saved   []*snapshotv1.Snapshot
}

func (s *fakeSnapshotStore) Store(_ context.Context, snapshot *snapshotv1.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, snapshot)
	return nil
}

func (s *fakeSnapshotStore) LoadStore(_ context.Context) (*snapshotv1.Snapshot, error) {
	return s.initial, nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.WithLoggingLevel(logger.ErrorLevel))
	require.NoError(t, err)
	return log
}

func newTestConfig(targetSize int64) *config.Config {
	return &config.Config{
		Instrument: "AMZN",
		TargetSize: targetSize,
		Source:     config.SourceFile,
	}
}

func newTestEngine(t *testing.T, feedText string, targetSize int64, store snapshotv1.Store, publisher quotev1.QuotePublisher) (*Engine, *bytes.Buffer) {
	t.Helper()

	log := newTestLogger(t)
	reader := feed.NewLineReader(strings.NewReader(feedText), log)
	engine := NewEngineWithOptions(
		orderbook.NewOrderbook(),
		reader,
		store,
		publisher,
		log,
		newTestConfig(targetSize),
		DefaultEngineOptions(),
	)

	out := &bytes.Buffer{}
	engine.SetOutput(out)
	return engine, out
}

// runToCompletion starts the engine, waits for the feed to drain, and stops it.
func runToCompletion(t *testing.T, engine *Engine) {
	t.Helper()

	require.NoError(t, engine.Start(context.Background()))

	select {
	case <-engine.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not drain the feed in time")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, engine.Stop(stopCtx))
}

func TestEngine_EmitsQuoteOnChangeOnly(t *testing.T) {
	// target size 100:
	//   line 1 puts 100 on the asks, a buy costs 100 x 44.26
	//   line 2 puts 100 on the bids, a sell earns 100 x 44.10
	//   line 3 undercuts the ask, a buy now costs 100 x 44.20
	//   line 4 drains the bids, a sell becomes unfillable
	feedText := strings.Join([]string{
		"1 A a S 44.26 100",
		"2 A b B 44.10 100",
		"3 A c S 44.20 100",
		"4 R b 100",
	}, "\n")

	engine, out := newTestEngine(t, feedText, 100, nil, nil)
	runToCompletion(t, engine)

	expected := strings.Join([]string{
		"1 B 4426.00",
		"2 S 4410.00",
		"3 B 4420.00",
		"4 S NA",
	}, "\n") + "\n"
	assert.Equal(t, expected, out.String())
}

func TestEngine_NoLeadingInsufficientQuote(t *testing.T) {
	// events that leave a side unfillable before it ever had a price must
	// not produce an NA line for that side
	feedText := strings.Join([]string{
		"1 A a S 44.26 50",
		"2 R a 50",
	}, "\n")

	engine, out := newTestEngine(t, feedText, 100, nil, nil)
	runToCompletion(t, engine)

	assert.Equal(t, "", out.String())
}

func TestEngine_SkipsMalformedMessages(t *testing.T) {
	feedText := strings.Join([]string{
		"1 A a S 44.26 100",
		"garbage in the stream",
		"2 A b S 44.20 100",
	}, "\n")

	engine, out := newTestEngine(t, feedText, 100, nil, nil)
	runToCompletion(t, engine)

	expected := "1 B 4426.00\n2 B 4420.00\n"
	assert.Equal(t, expected, out.String())
}

func TestEngine_SkipsUnknownReduceTarget(t *testing.T) {
	feedText := strings.Join([]string{
		"1 A a S 44.26 100",
		"2 R ghost 50",
		"3 A b S 44.20 100",
	}, "\n")

	engine, out := newTestEngine(t, feedText, 100, nil, nil)
	runToCompletion(t, engine)

	// the bad reduce is logged and skipped, processing continues
	expected := "1 B 4426.00\n3 B 4420.00\n"
	assert.Equal(t, expected, out.String())
}

func TestEngine_SkipsOutOfOrderTimestamps(t *testing.T) {
	feedText := strings.Join([]string{
		"10 A a S 44.26 100",
		"5 A b S 44.20 100",
		"11 A c S 44.30 100",
	}, "\n")

	engine, out := newTestEngine(t, feedText, 100, nil, nil)
	runToCompletion(t, engine)

	// line 2 regresses in time and never reaches the book; line 3 does,
	// but at a worse price, so the buy quote stays at 44.26 throughout
	assert.Equal(t, "10 B 4426.00\n", out.String())
	assert.Equal(t, int64(200), engine.book.OpenInterest(orderbookv1.SideSell))
}

func TestEngine_ProcessOrder_OutOfOrder(t *testing.T) {
	engine, _ := newTestEngine(t, "", 100, nil, nil)

	require.NoError(t, engine.processOrder(orderbookv1.NewAddOrder(10, "a", orderbookv1.SideSell, 4426, 100)))
	require.NoError(t, engine.processOrder(orderbookv1.NewAddOrder(5, "b", orderbookv1.SideSell, 4420, 100)))

	assert.Equal(t, int64(10), engine.lastTimestamp)
	assert.Equal(t, int64(100), engine.book.OpenInterest(orderbookv1.SideSell))
}

func TestEngine_PublishesEmittedQuotes(t *testing.T) {
	feedText := strings.Join([]string{
		"1 A a S 44.26 100",
		"2 A b B 44.10 100",
	}, "\n")

	publisher := &fakeQuotePublisher{}
	engine, out := newTestEngine(t, feedText, 100, nil, publisher)
	runToCompletion(t, engine)

	quotes := publisher.published()
	require.Len(t, quotes, 2)

	assert.Equal(t, orderbookv1.SideBuy, quotes[0].Side)
	assert.Equal(t, int64(442600), quotes[0].Notional)
	assert.True(t, quotes[0].Sufficient)
	assert.Equal(t, "AMZN", quotes[0].Instrument)
	assert.NotEmpty(t, quotes[0].EventID)

	assert.Equal(t, orderbookv1.SideSell, quotes[1].Side)
	assert.Equal(t, int64(441000), quotes[1].Notional)

	// published quotes mirror the console lines one for one
	assert.Equal(t, 2, strings.Count(out.String(), "\n"))
}

func TestEngine_RestoresFromSnapshot(t *testing.T) {
	store := &fakeSnapshotStore{
		initial: &snapshotv1.Snapshot{
			Instrument: "AMZN",
			Asks: []*orderbookv1.Order{
				{ID: "a", Type: orderbookv1.OrderTypeAdd, Side: orderbookv1.SideSell, Price: 4426, Size: 100, Timestamp: 1},
			},
			Bids: []*orderbookv1.Order{
				{ID: "b", Type: orderbookv1.OrderTypeAdd, Side: orderbookv1.SideBuy, Price: 4410, Size: 40, Timestamp: 1},
			},
			Offset: 10,
		},
	}

	engine, _ := newTestEngine(t, "", 100, store, nil)

	assert.Equal(t, int64(100), engine.book.OpenInterest(orderbookv1.SideSell))
	assert.Equal(t, int64(40), engine.book.OpenInterest(orderbookv1.SideBuy))
	assert.Equal(t, int64(10), engine.getOrderOffset())
}

func TestEngine_SnapshotOffsetThreshold(t *testing.T) {
	engine, _ := newTestEngine(t, "", 100, &fakeSnapshotStore{}, nil)
	engine.snapshotOffsetDelta = 100

	assert.False(t, engine.shouldCreateSnapshot())

	engine.setOrderOffset(99)
	assert.False(t, engine.shouldCreateSnapshot())

	engine.setOrderOffset(100)
	assert.True(t, engine.shouldCreateSnapshot())

	engine.setLastSnapshotOffset(100)
	assert.False(t, engine.shouldCreateSnapshot())
}

func BenchmarkEngine_ProcessOrder(b *testing.B) {
	log, err := logger.NewLogger(logger.WithLoggingLevel(logger.ErrorLevel))
	if err != nil {
		b.Fatal(err)
	}

	engine := NewEngineWithOptions(
		orderbook.NewOrderbook(),
		feed.NewLineReader(strings.NewReader(""), log),
		nil,
		nil,
		log,
		newTestConfig(200),
		DefaultEngineOptions(),
	)
	engine.SetOutput(&bytes.Buffer{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		side := orderbookv1.SideBuy
		if i%2 == 0 {
			side = orderbookv1.SideSell
		}
		order := orderbookv1.NewAddOrder(int64(i), "o"+strconv.Itoa(i), side, int64(4400+i%20), 100)
		if err := engine.processOrder(order); err != nil {
			b.Fatal(err)
		}
	}
}
