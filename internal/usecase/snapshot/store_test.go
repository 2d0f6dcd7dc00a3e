package snapshot

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderbookv1 "github.com/chuvpilo/pricer/internal/domain/orderbook/v1"
	snapshotv1 "github.com/chuvpilo/pricer/internal/domain/snapshot/v1"
	"github.com/chuvpilo/pricer/pkg/logger"
)

type fakeRedisClient struct {
	values map[string]string
	setErr error
	getErr error
}

func newFakeRedisClient() *fakeRedisClient {
	return &fakeRedisClient{values: make(map[string]string)}
}

func (c *fakeRedisClient) Connect(context.Context) error    { return nil }
func (c *fakeRedisClient) Disconnect(context.Context) error { return nil }
func (c *fakeRedisClient) Ping(context.Context) error       { return nil }

func (c *fakeRedisClient) Get(_ context.Context, key string) (string, error) {
	if c.getErr != nil {
		return "", c.getErr
	}
	return c.values[key], nil
}

func (c *fakeRedisClient) Set(_ context.Context, key string, value any, _ time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	switch v := value.(type) {
	case []byte:
		c.values[key] = string(v)
	case string:
		c.values[key] = v
	default:
		c.values[key] = fmt.Sprint(v)
	}
	return nil
}

func (c *fakeRedisClient) Del(_ context.Context, keys ...string) (int64, error) {
	var n int64
	for _, key := range keys {
		if _, ok := c.values[key]; ok {
			delete(c.values, key)
			n++
		}
	}
	return n, nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.WithLoggingLevel(logger.ErrorLevel))
	require.NoError(t, err)
	return log
}

func TestStore_RoundTrip(t *testing.T) {
	client := newFakeRedisClient()
	store := NewSnapshotStore(client, "AMZN", newTestLogger(t))
	ctx := context.Background()

	snapshot := &snapshotv1.Snapshot{
		Instrument: "AMZN",
		Bids: []*orderbookv1.Order{
			{ID: "b1", Type: orderbookv1.OrderTypeAdd, Side: orderbookv1.SideBuy, Price: 4410, Size: 100, Timestamp: 1},
		},
		Asks: []*orderbookv1.Order{
			{ID: "a1", Type: orderbookv1.OrderTypeAdd, Side: orderbookv1.SideSell, Price: 4418, Size: 157, Timestamp: 2},
		},
		Offset:    42,
		Timestamp: time.Now().UnixNano(),
	}

	require.NoError(t, store.Store(ctx, snapshot))

	loaded, err := store.LoadStore(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, snapshot.Instrument, loaded.Instrument)
	assert.Equal(t, snapshot.Offset, loaded.Offset)
	require.Len(t, loaded.Bids, 1)
	require.Len(t, loaded.Asks, 1)
	assert.Equal(t, "b1", loaded.Bids[0].ID)
	assert.Equal(t, int64(4418), loaded.Asks[0].Price)
}

func TestStore_LoadMissingSnapshot(t *testing.T) {
	store := NewSnapshotStore(newFakeRedisClient(), "AMZN", newTestLogger(t))

	loaded, err := store.LoadStore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStore_SetFailure(t *testing.T) {
	client := newFakeRedisClient()
	client.setErr = errors.New("connection refused")
	store := NewSnapshotStore(client, "AMZN", newTestLogger(t))

	err := store.Store(context.Background(), &snapshotv1.Snapshot{Instrument: "AMZN"})
	assert.Error(t, err)
}

func TestStore_GetFailure(t *testing.T) {
	client := newFakeRedisClient()
	client.getErr = errors.New("connection refused")
	store := NewSnapshotStore(client, "AMZN", newTestLogger(t))

	_, err := store.LoadStore(context.Background())
	assert.Error(t, err)
}

func TestStore_CorruptPayload(t *testing.T) {
	client := newFakeRedisClient()
	client.values["AMZN"] = "{not json"
	store := NewSnapshotStore(client, "AMZN", newTestLogger(t))

	_, err := store.LoadStore(context.Background())
	assert.Error(t, err)
}
