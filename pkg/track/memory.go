package track

import (
	"context"
	"sync"

	"github.com/johnnewto/seamap/pkg/models"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps the track in process memory. maxLen > 0 drops the oldest
// waypoints once the track grows past it; 0 keeps everything.
type MemoryStore struct {
	mu     sync.RWMutex
	points []models.Waypoint
	maxLen int
	total  int64
}

func NewMemoryStore(maxLen int) *MemoryStore {
	return &MemoryStore{maxLen: maxLen}
}

func (m *MemoryStore) Latest(ctx context.Context) (models.Waypoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.points) == 0 {
		return models.Waypoint{}, ErrEmptyTrack
	}
	return m.points[len(m.points)-1], nil
}

func (m *MemoryStore) Append(ctx context.Context, w models.Waypoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.points = append(m.points, w)
	m.total++
	if m.maxLen > 0 && len(m.points) > m.maxLen {
		// copy so the dropped prefix can be collected
		kept := make([]models.Waypoint, m.maxLen, m.maxLen+1)
		copy(kept, m.points[len(m.points)-m.maxLen:])
		m.points = kept
	}
	return nil
}

func (m *MemoryStore) Len(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points), nil
}

func (m *MemoryStore) Appended(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.total, nil
}

func (m *MemoryStore) Recent(ctx context.Context, n int) ([]models.Waypoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := 0
	if n > 0 && n < len(m.points) {
		start = len(m.points) - n
	}
	out := make([]models.Waypoint, len(m.points)-start)
	copy(out, m.points[start:])
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
