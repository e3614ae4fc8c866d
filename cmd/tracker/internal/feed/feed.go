package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/johnnewto/seamap/cmd/tracker/internal/generator"
	"github.com/johnnewto/seamap/cmd/tracker/internal/observability"
	"github.com/johnnewto/seamap/pkg/models"
	"github.com/johnnewto/seamap/pkg/track"
)

// Sink receives every waypoint the feed appends (websocket hub, Kafka).
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev models.WaypointEvent) error
}

// Feed serialises track growth. Each successor is derived, appended and fanned out
// under one lock, so no two callers branch from the same waypoint and sinks see
// events in track order.
type Feed struct {
	mu     sync.Mutex
	store  track.Store
	gen    *generator.WaypointGenerator
	clock  generator.Clock
	sinks  []Sink
	logger *zap.Logger
	seq    int64
}

func NewFeed(store track.Store, gen *generator.WaypointGenerator, clock generator.Clock, logger *zap.Logger, sinks ...Sink) *Feed {
	return &Feed{
		store:  store,
		gen:    gen,
		clock:  clock,
		sinks:  sinks,
		logger: logger,
	}
}

// AddSink registers another receiver for new waypoints.
func (f *Feed) AddSink(s Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, s)
}

// Seed appends path when the store is empty and returns how many waypoints were added.
// A store that already holds a track (e.g. Redis after a restart) is left alone.
func (f *Feed) Seed(ctx context.Context, path []models.Waypoint) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, err := f.store.Len(ctx)
	if err != nil {
		return 0, fmt.Errorf("read track length: %w", err)
	}
	added := 0
	if n == 0 {
		for _, w := range path {
			if err := f.store.Append(ctx, w); err != nil {
				return 0, fmt.Errorf("seed track: %w", err)
			}
		}
		added = len(path)
		n = added
	}

	// resume from the append count, not the length: a capped track stops growing
	seq, err := f.store.Appended(ctx)
	if err != nil {
		return added, fmt.Errorf("read append count: %w", err)
	}
	f.seq = seq
	observability.TrackLength.Set(float64(n))
	return added, nil
}

// Advance derives one waypoint from the latest, appends it and returns it.
// The only expected error is track.ErrEmptyTrack on an unseeded store.
func (f *Feed) Advance(ctx context.Context) (models.Waypoint, error) {
	start := time.Now()
	defer observability.ObserveFeedLatency(start)

	f.mu.Lock()
	defer f.mu.Unlock()

	prev, err := f.store.Latest(ctx)
	if err != nil {
		observability.FeedErrors.Inc()
		return models.Waypoint{}, err
	}

	next := f.gen.Next(prev)
	if err := f.store.Append(ctx, next); err != nil {
		observability.FeedErrors.Inc()
		return models.Waypoint{}, fmt.Errorf("append waypoint: %w", err)
	}
	f.seq++
	observability.WaypointsGenerated.Inc()
	if n, err := f.store.Len(ctx); err == nil {
		observability.TrackLength.Set(float64(n))
	}

	f.fanOut(ctx, models.WaypointEvent{Seq: f.seq, Waypoint: next})
	return next, nil
}

func (f *Feed) fanOut(ctx context.Context, ev models.WaypointEvent) {
	for _, s := range f.sinks {
		if err := s.Publish(ctx, ev); err != nil {
			observability.SinkErrors.WithLabelValues(s.Name()).Inc()
			f.logger.Error("Sink Error", zap.String("sink", s.Name()), zap.Int64("seq", ev.Seq), zap.Error(err))
		}
	}
}

// Track returns the whole retained track, oldest first.
func (f *Feed) Track(ctx context.Context) ([]models.Waypoint, error) {
	return f.store.Recent(ctx, 0)
}

func (f *Feed) Len(ctx context.Context) (int, error) {
	return f.store.Len(ctx)
}

// Run advances the track every interval until ctx is cancelled, for viewers that
// watch the websocket stream instead of polling.
func (f *Feed) Run(ctx context.Context, interval time.Duration) {
	f.logger.Info("Auto-advance Started", zap.Duration("interval", interval))

	for {
		if _, err := f.Advance(ctx); err != nil {
			f.logger.Error("Auto-advance Error", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			f.logger.Info("Auto-advance Stopped")
			return
		case <-f.clock.After(interval):
		}
	}
}
