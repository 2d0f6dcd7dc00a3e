package snapshot

import (
	"context"
	"encoding/json"

	snapshotv1 "github.com/chuvpilo/pricer/internal/domain/snapshot/v1"
	"github.com/chuvpilo/pricer/pkg/errors"
	logger "github.com/chuvpilo/pricer/pkg/logger"
	"github.com/chuvpilo/pricer/pkg/redis"
)

// Store persists order book snapshots in Redis, keyed by instrument.
type Store struct {
	instrument  string
	logger      *logger.Logger
	redisclient redis.Client
}

// NewSnapshotStore creates a new snapshot store with the given Redis client and instrument.
func NewSnapshotStore(redisclient redis.Client, instrument string, logger *logger.Logger) *Store {
	return &Store{
		instrument:  instrument,
		redisclient: redisclient,
		logger:      logger,
	}
}

// Store stores the snapshot in Redis.
func (s *Store) Store(ctx context.Context, snapshot *snapshotv1.Snapshot) error {
	buf, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Error(err, logger.Field{
			Key:   "instrument",
			Value: s.instrument,
		})
		return errors.NewTracer("snapshot_marshal_error").Wrap(err)
	}

	if err := s.redisclient.Set(ctx, s.instrument, buf, 0); err != nil {
		s.logger.Error(err, logger.Field{
			Key:   "instrument",
			Value: s.instrument,
		})
		return errors.NewTracer("snapshot_store_error").Wrap(err)
	}

	s.logger.Info("snapshot stored", logger.Field{
		Key:   "instrument",
		Value: s.instrument,
	}, logger.Field{
		Key:   "offset",
		Value: snapshot.Offset,
	}, logger.Field{
		Key:   "restingOrders",
		Value: len(snapshot.Bids) + len(snapshot.Asks),
	})
	return nil
}

// LoadStore loads the snapshot from Redis. A missing snapshot returns nil
// without error, meaning the book starts empty.
func (s *Store) LoadStore(ctx context.Context) (*snapshotv1.Snapshot, error) {
	data, err := s.redisclient.Get(ctx, s.instrument)
	if err != nil {
		s.logger.Error(err, logger.Field{
			Key:   "instrument",
			Value: s.instrument,
		}, logger.Field{
			Key:   "action",
			Value: "load snapshot",
		})
		return nil, errors.NewTracer("snapshot_load_error").Wrap(err)
	}

	if data == "" {
		s.logger.Warn("no snapshot found", logger.Field{
			Key:   "instrument",
			Value: s.instrument,
		})
		return nil, nil
	}

	var snapshot snapshotv1.Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		s.logger.Error(err, logger.Field{
			Key:   "instrument",
			Value: s.instrument,
		}, logger.Field{
			Key:   "action",
			Value: "unmarshal snapshot",
		})
		return nil, errors.NewTracer("snapshot_unmarshal_error").Wrap(err)
	}

	return &snapshot, nil
}
