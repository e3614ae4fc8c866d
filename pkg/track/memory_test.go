package track_test

import (
	"context"
	"errors"
	"testing"

	"github.com/johnnewto/seamap/pkg/models"
	"github.com/johnnewto/seamap/pkg/track"
)

func wp(lat float64) models.Waypoint {
	return models.Waypoint{Lat: lat, Lon: 174.8, ShipName: "MV Explorer", Speed: 5.0, Timestamp: "2024-01-01 12:00:00"}
}

func TestMemoryStore_LatestOnEmpty(t *testing.T) {
	s := track.NewMemoryStore(0)

	_, err := s.Latest(context.Background())
	if !errors.Is(err, track.ErrEmptyTrack) {
		t.Fatalf("Expected ErrEmptyTrack, got %v", err)
	}
}

func TestMemoryStore_AppendAndLatest(t *testing.T) {
	ctx := context.Background()
	s := track.NewMemoryStore(0)

	for i := 1; i <= 3; i++ {
		if err := s.Append(ctx, wp(float64(i))); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	latest, err := s.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest.Lat != 3 {
		t.Errorf("Expected latest lat 3, got %f", latest.Lat)
	}

	n, _ := s.Len(ctx)
	if n != 3 {
		t.Errorf("Expected 3 waypoints, got %d", n)
	}
}

func TestMemoryStore_NoDeduplication(t *testing.T) {
	ctx := context.Background()
	s := track.NewMemoryStore(0)

	s.Append(ctx, wp(1))
	s.Append(ctx, wp(1))

	if n, _ := s.Len(ctx); n != 2 {
		t.Errorf("Identical waypoints must both be kept, got len %d", n)
	}
}

func TestMemoryStore_Recent(t *testing.T) {
	ctx := context.Background()
	s := track.NewMemoryStore(0)
	for i := 1; i <= 5; i++ {
		s.Append(ctx, wp(float64(i)))
	}

	got, _ := s.Recent(ctx, 2)
	if len(got) != 2 || got[0].Lat != 4 || got[1].Lat != 5 {
		t.Errorf("Expected [4 5], got %+v", got)
	}

	all, _ := s.Recent(ctx, 0)
	if len(all) != 5 || all[0].Lat != 1 {
		t.Errorf("Expected full track oldest first, got %+v", all)
	}

	// caller owns the returned slice
	all[0].Lat = 99
	again, _ := s.Recent(ctx, 0)
	if again[0].Lat != 1 {
		t.Error("Recent must return a copy")
	}
}

func TestMemoryStore_MaxLenEvictsOldest(t *testing.T) {
	ctx := context.Background()
	s := track.NewMemoryStore(3)
	for i := 1; i <= 10; i++ {
		s.Append(ctx, wp(float64(i)))
	}

	all, _ := s.Recent(ctx, 0)
	if len(all) != 3 {
		t.Fatalf("Expected 3 retained waypoints, got %d", len(all))
	}
	if all[0].Lat != 8 || all[2].Lat != 10 {
		t.Errorf("Expected window [8..10], got %+v", all)
	}
	if n, _ := s.Appended(ctx); n != 10 {
		t.Errorf("Eviction must not lower the append count, got %d", n)
	}
}
