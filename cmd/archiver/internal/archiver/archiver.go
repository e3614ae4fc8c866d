package archiver

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	"github.com/johnnewto/seamap/pkg/config"
	"github.com/johnnewto/seamap/pkg/models"
	"github.com/johnnewto/seamap/pkg/track"
)

// Archiver copies waypoint events from Kafka into Redis, one ordered worker per vessel shard.
type Archiver struct {
	cfg        config.ArchiverConfig
	logger     Logger
	rdb        RedisClient
	reader     KafkaReader
	numWorkers int
}

func NewArchiver(cfg config.ArchiverConfig, logger Logger, rdb RedisClient, reader KafkaReader) *Archiver {
	n := cfg.NumWorkers
	if n < 1 {
		n = 1
	}
	return &Archiver{
		cfg:        cfg,
		logger:     logger,
		rdb:        rdb,
		reader:     reader,
		numWorkers: n,
	}
}

// Run blocks until ctx is done, then drains the workers.
func (a *Archiver) Run(ctx context.Context) error {
	workerChans := make([]chan []byte, a.numWorkers)
	var wg sync.WaitGroup

	for i := 0; i < a.numWorkers; i++ {
		workerChans[i] = make(chan []byte, 100)
		wg.Add(1)
		go a.worker(i, workerChans[i], &wg)
	}

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		a.logger.Info("Archiver Started", zap.Int("workers", a.numWorkers))
		for {
			m, err := a.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				a.logger.Error("Kafka Read Error", zap.Error(err))
				if ctx.Err() != nil {
					return
				}
				continue
			}

			// Deterministic Sharding: same vessel always goes to the same worker
			workerID := getWorkerID(m.Key, a.numWorkers)

			select {
			case workerChans[workerID] <- m.Value:
			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()
	a.logger.Info("Shutdown signal received, stopping archiver...")

	// senders must be gone before the channels close
	<-readerDone
	for _, ch := range workerChans {
		close(ch)
	}
	a.logger.Info("Waiting for workers to drain...")
	wg.Wait()

	return nil
}

func (a *Archiver) worker(id int, msgs <-chan []byte, wg *sync.WaitGroup) {
	defer wg.Done()
	ctx := context.Background() // don't cancel mid-write

	// only valid because a vessel always lands on the same worker
	lastSeq := make(map[string]int64)

	for payload := range msgs {
		var ev models.WaypointEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			a.logger.Error("JSON Unmarshal Error", zap.Error(err))
			eventsSkipped.WithLabelValues("invalid").Inc()
			continue
		}
		if ev.ShipName == "" {
			a.logger.Warn("Event without vessel", zap.Int64("seq", ev.Seq))
			eventsSkipped.WithLabelValues("invalid").Inc()
			continue
		}

		if ev.Seq <= lastSeq[ev.ShipName] {
			a.logger.Debug("Skipping duplicate event", zap.String("vessel", ev.ShipName), zap.Int64("seq", ev.Seq), zap.Int64("last_seq", lastSeq[ev.ShipName]))
			eventsSkipped.WithLabelValues("duplicate").Inc()
			continue
		}

		if err := a.archive(ctx, ev); err != nil {
			a.logger.Error("Redis Pipeline Error", zap.Error(err), zap.String("vessel", ev.ShipName))
			continue
		}
		a.logger.Debug("Archived", zap.String("vessel", ev.ShipName), zap.Int("worker_id", id), zap.Int64("seq", ev.Seq))
		lastSeq[ev.ShipName] = ev.Seq
		eventsArchived.Inc()
	}
}

// archive appends the waypoint to the vessel's track, refreshes its latest key and
// notifies subscribers, all in one round trip.
func (a *Archiver) archive(ctx context.Context, ev models.WaypointEvent) error {
	wp, err := json.Marshal(ev.Waypoint)
	if err != nil {
		return err
	}
	trackKey := track.TrackKey(a.cfg.KeyPrefix, ev.ShipName)

	pipe := a.rdb.Pipeline()
	pipe.RPush(ctx, trackKey, wp)
	if a.cfg.MaxHistory > 0 {
		pipe.LTrim(ctx, trackKey, int64(-a.cfg.MaxHistory), -1)
	}
	pipe.Set(ctx, track.LatestKey(a.cfg.KeyPrefix, ev.ShipName), wp, a.cfg.LatestTTL)
	pipe.Publish(ctx, track.Channel(ev.ShipName), wp)

	_, err = pipe.Exec(ctx)
	return err
}

func getWorkerID(key []byte, numWorkers int) int {
	h := fnv.New32a()
	h.Write(key)
	return int(h.Sum32() % uint32(numWorkers))
}
