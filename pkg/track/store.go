package track

import (
	"context"
	"errors"

	"github.com/johnnewto/seamap/pkg/models"
)

// ErrEmptyTrack is returned by Latest when nothing has been appended yet.
var ErrEmptyTrack = errors.New("track: no waypoints")

// Store holds the ordered waypoints of one vessel. Insertion order is chronological order.
type Store interface {
	Latest(ctx context.Context) (models.Waypoint, error)
	Append(ctx context.Context, w models.Waypoint) error
	Len(ctx context.Context) (int, error)
	// Appended counts every waypoint ever appended. Eviction does not lower it.
	Appended(ctx context.Context) (int64, error)
	// Recent returns up to n of the newest waypoints, oldest first. n <= 0 returns everything.
	Recent(ctx context.Context, n int) ([]models.Waypoint, error)
	Close() error
}

const (
	trackKeyPrefix  = "track:"
	latestKeyPrefix = "latest:"
	seqKeyPrefix    = "seq:"
	channelPrefix   = "waypoints."
)

// TrackKey is the Redis list holding a vessel's waypoints.
func TrackKey(prefix, vessel string) string { return prefix + trackKeyPrefix + vessel }

// LatestKey is the Redis string holding a vessel's newest waypoint.
func LatestKey(prefix, vessel string) string { return prefix + latestKeyPrefix + vessel }

// SeqKey counts appends to a vessel's track.
func SeqKey(prefix, vessel string) string { return prefix + seqKeyPrefix + vessel }

// Channel is the Redis pub/sub channel new waypoints are announced on.
func Channel(vessel string) string { return channelPrefix + vessel }
