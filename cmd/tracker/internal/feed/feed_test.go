package feed_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/johnnewto/seamap/cmd/tracker/internal/feed"
	"github.com/johnnewto/seamap/cmd/tracker/internal/generator"
	"github.com/johnnewto/seamap/cmd/tracker/internal/testutils"
	"github.com/johnnewto/seamap/pkg/models"
	"github.com/johnnewto/seamap/pkg/track"
)

const eps = 1e-12

func newSeededFeed(t *testing.T, store track.Store, rnd generator.Rand, clock generator.Clock, sinks ...feed.Sink) *feed.Feed {
	t.Helper()
	gen := generator.NewWaypointGenerator(rnd, clock, generator.DefaultParams)
	f := feed.NewFeed(store, gen, clock, zap.NewNop(), sinks...)
	if _, err := f.Seed(context.Background(), generator.SeedTrack(clock, "MV Explorer")); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	return f
}

func TestFeed_SeededScenario(t *testing.T) {
	ctx := context.Background()
	store := track.NewMemoryStore(0)
	f := newSeededFeed(t, store, generator.NewRealRand(1), generator.RealClock{})

	seedLast, _ := store.Latest(ctx)

	got, err := f.Advance(ctx)
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	if got.ShipName != "MV Explorer" {
		t.Errorf("Expected ship_name MV Explorer, got %s", got.ShipName)
	}
	if got.Lat < seedLast.Lat-0.001-eps || got.Lat > seedLast.Lat+0.001+eps {
		t.Errorf("Latitude %f outside [%f, %f]", got.Lat, seedLast.Lat-0.001, seedLast.Lat+0.001)
	}
	if n, _ := store.Len(ctx); n != 6 {
		t.Errorf("Expected 6 waypoints after one call, got %d", n)
	}

	latest, _ := store.Latest(ctx)
	if latest != got {
		t.Errorf("Returned waypoint must be the one appended: %+v vs %+v", got, latest)
	}
}

func TestFeed_GrowthAndStepBound(t *testing.T) {
	ctx := context.Background()
	store := track.NewMemoryStore(0)
	f := newSeededFeed(t, store, generator.NewRealRand(7), generator.RealClock{})

	before, _ := store.Len(ctx)
	const n = 50

	prev, _ := store.Latest(ctx)
	for i := 0; i < n; i++ {
		got, err := f.Advance(ctx)
		if err != nil {
			t.Fatalf("Advance %d failed: %v", i, err)
		}
		if math.Abs(got.Lat-prev.Lat) > 0.001+eps || math.Abs(got.Lon-prev.Lon) > 0.001+eps {
			t.Fatalf("Call %d moved more than 0.001 deg: %+v -> %+v", i, prev, got)
		}
		if got.Speed < 4.8 || got.Speed > 5.6 {
			t.Fatalf("Call %d speed %v out of range", i, got.Speed)
		}
		if got.Timestamp < prev.Timestamp {
			t.Fatalf("Call %d timestamp went backwards: %s -> %s", i, prev.Timestamp, got.Timestamp)
		}
		prev = got
	}

	after, _ := store.Len(ctx)
	if after != before+n {
		t.Errorf("Expected %d waypoints, got %d", before+n, after)
	}
}

func TestFeed_NotIdempotent(t *testing.T) {
	ctx := context.Background()
	clock := &testutils.MockClock{CurrentTime: time.Now()}

	a := newSeededFeed(t, track.NewMemoryStore(0), generator.NewRealRand(1), clock)
	b := newSeededFeed(t, track.NewMemoryStore(0), generator.NewRealRand(2), clock)

	wa, _ := a.Advance(ctx)
	wb, _ := b.Advance(ctx)
	if wa == wb {
		t.Errorf("Identical prior state should still give different waypoints, both %+v", wa)
	}
}

func TestFeed_EmptyStore(t *testing.T) {
	gen := generator.NewWaypointGenerator(&testutils.MockRand{ValFloat: 0.5}, generator.RealClock{}, generator.DefaultParams)
	f := feed.NewFeed(track.NewMemoryStore(0), gen, generator.RealClock{}, zap.NewNop())

	_, err := f.Advance(context.Background())
	if !errors.Is(err, track.ErrEmptyTrack) {
		t.Fatalf("Expected ErrEmptyTrack, got %v", err)
	}
}

func TestFeed_SeedSkipsExistingTrack(t *testing.T) {
	ctx := context.Background()
	store := track.NewMemoryStore(0)
	clock := &testutils.MockClock{CurrentTime: time.Now()}
	f := newSeededFeed(t, store, &testutils.MockRand{ValFloat: 0.5}, clock)

	added, err := f.Seed(ctx, generator.SeedTrack(clock, "MV Explorer"))
	if err != nil {
		t.Fatal(err)
	}
	if added != 0 {
		t.Errorf("Second seed should add nothing, added %d", added)
	}
	if n, _ := store.Len(ctx); n != 5 {
		t.Errorf("Expected 5 waypoints, got %d", n)
	}
}

func TestFeed_SinksReceiveSequencedEvents(t *testing.T) {
	ctx := context.Background()
	sink := &testutils.MockSink{}
	failing := &testutils.MockSink{ShouldFail: true}
	f := newSeededFeed(t, track.NewMemoryStore(0), &testutils.MockRand{ValFloat: 0.5}, &testutils.MockClock{CurrentTime: time.Now()}, failing, sink)

	for i := 0; i < 3; i++ {
		if _, err := f.Advance(ctx); err != nil {
			t.Fatalf("A failing sink must not fail the feed: %v", err)
		}
	}

	if sink.Count() != 3 {
		t.Fatalf("Expected 3 events, got %d", sink.Count())
	}
	for i, ev := range sink.Events {
		if want := int64(6 + i); ev.Seq != want {
			t.Errorf("Event %d: expected seq %d, got %d", i, want, ev.Seq)
		}
	}
}

func TestFeed_ConcurrentAdvanceKeepsChain(t *testing.T) {
	ctx := context.Background()
	store := track.NewMemoryStore(0)
	f := newSeededFeed(t, store, generator.NewRealRand(3), generator.RealClock{})

	const workers = 100
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.Advance(ctx); err != nil {
				t.Errorf("Advance failed: %v", err)
			}
		}()
	}
	wg.Wait()

	all, _ := store.Recent(ctx, 0)
	if len(all) != 5+workers {
		t.Fatalf("Expected %d waypoints, got %d", 5+workers, len(all))
	}
	for i := 5; i < len(all); i++ {
		if math.Abs(all[i].Lat-all[i-1].Lat) > 0.001+eps || math.Abs(all[i].Lon-all[i-1].Lon) > 0.001+eps {
			t.Fatalf("Waypoint %d does not follow its predecessor: %+v -> %+v", i, all[i-1], all[i])
		}
	}
}

func TestFeed_RunAutoAdvance(t *testing.T) {
	sink := &testutils.MockSink{}
	clock := &testutils.MockClock{CurrentTime: time.Unix(0, 0)}
	store := track.NewMemoryStore(50)
	f := newSeededFeed(t, store, &testutils.MockRand{ValFloat: 0.5}, clock, sink)

	// MockClock.After fires immediately, so the loop runs as fast as it can until the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	f.Run(ctx, time.Second)

	if sink.Count() == 0 {
		t.Fatal("Expected auto-advance to produce waypoints")
	}
	if n, _ := store.Len(context.Background()); n > 50 {
		t.Errorf("Capped store grew past its limit: %d", n)
	}

	last := sink.Events[len(sink.Events)-1]
	if last.Timestamp == models.FormatTimestamp(time.Unix(0, 0)) && sink.Count() > 1 {
		t.Error("Expected the mock clock to advance between steps")
	}
}

func TestFeed_SeqResumesAfterRestartOnCappedTrack(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	clock := &testutils.MockClock{CurrentTime: time.Now()}

	openStore := func() *track.RedisStore {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		s := track.NewRedisStore(rdb, "MV Explorer", 5)
		t.Cleanup(func() { s.Close() })
		return s
	}

	first := &testutils.MockSink{}
	f := newSeededFeed(t, openStore(), &testutils.MockRand{ValFloat: 0.5}, clock, first)
	for i := 0; i < 10; i++ {
		if _, err := f.Advance(ctx); err != nil {
			t.Fatal(err)
		}
	}
	lastBefore := first.Events[len(first.Events)-1].Seq
	if lastBefore != 15 {
		t.Fatalf("Expected seq 15 before restart, got %d", lastBefore)
	}

	// new process, same redis: the list holds 5 waypoints but 15 were appended
	second := &testutils.MockSink{}
	restarted := newSeededFeed(t, openStore(), &testutils.MockRand{ValFloat: 0.5}, clock, second)
	if _, err := restarted.Advance(ctx); err != nil {
		t.Fatal(err)
	}
	if got := second.Events[0].Seq; got != lastBefore+1 {
		t.Errorf("Expected seq %d after restart, got %d", lastBefore+1, got)
	}
}

func TestFeed_RunStopsPromptlyOnCancel(t *testing.T) {
	f := newSeededFeed(t, track.NewMemoryStore(0), &testutils.MockRand{ValFloat: 0.5}, generator.RealClock{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	start := time.Now()
	go func() {
		f.Run(ctx, time.Minute)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run kept waiting out its interval after cancellation")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Run returned %v after a 50ms deadline", elapsed)
	}
}
