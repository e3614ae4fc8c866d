package testutils

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

type MockKafkaReader struct {
	Messages []kafka.Message
	Index    int
	Mu       sync.Mutex
	// Closed simulates a closed connection or end of stream
	Closed bool
}

func (m *MockKafkaReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if m.Closed {
		return kafka.Message{}, io.EOF
	}

	if m.Index >= len(m.Messages) {
		// end of test stream: stops the read loop the same way a cancelled context does
		return kafka.Message{}, context.DeadlineExceeded
	}

	msg := m.Messages[m.Index]
	m.Index++
	return msg, nil
}

func (m *MockKafkaReader) Close() error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
	return nil
}

// MockPipeline records "<CMD> <key>" for every queued command.
type MockPipeline struct {
	redis.Pipeliner // Embed interface to satisfy the methods we never call

	ExecCount    int
	RecordedCmds []string
	TTLs         map[string]time.Duration
	ShouldFail   bool
	Mu           sync.Mutex
}

func (m *MockPipeline) record(cmd string) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RecordedCmds = append(m.RecordedCmds, cmd)
}

func (m *MockPipeline) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	m.record("RPUSH " + key)
	return redis.NewIntCmd(ctx)
}

func (m *MockPipeline) LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd {
	m.record("LTRIM " + key)
	return redis.NewStatusCmd(ctx)
}

func (m *MockPipeline) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.record("SET " + key)
	m.Mu.Lock()
	if m.TTLs == nil {
		m.TTLs = make(map[string]time.Duration)
	}
	m.TTLs[key] = expiration
	m.Mu.Unlock()
	return redis.NewStatusCmd(ctx)
}

func (m *MockPipeline) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	m.record("PUBLISH " + channel)
	return redis.NewIntCmd(ctx)
}

func (m *MockPipeline) Exec(ctx context.Context) ([]redis.Cmder, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ShouldFail {
		return nil, redis.ErrClosed
	}
	m.ExecCount++
	return nil, nil
}

func (m *MockPipeline) Has(cmd string) bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	for _, c := range m.RecordedCmds {
		if c == cmd {
			return true
		}
	}
	return false
}

type MockRedisClient struct {
	PipelineSpy *MockPipeline
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{PipelineSpy: &MockPipeline{}}
}

func (m *MockRedisClient) Pipeline() redis.Pipeliner {
	return m.PipelineSpy
}

func (m *MockRedisClient) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusCmd(ctx)
}

func (m *MockRedisClient) Close() error { return nil }
