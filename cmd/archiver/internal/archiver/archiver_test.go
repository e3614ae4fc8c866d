package archiver_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/johnnewto/seamap/cmd/archiver/internal/archiver"
	"github.com/johnnewto/seamap/cmd/archiver/internal/testutils"
	"github.com/johnnewto/seamap/pkg/config"
	"github.com/johnnewto/seamap/pkg/models"
)

func eventMsgs(t *testing.T, events ...models.WaypointEvent) []kafka.Message {
	t.Helper()
	var msgs []kafka.Message
	for _, ev := range events {
		val, err := json.Marshal(ev)
		if err != nil {
			t.Fatal(err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(ev.ShipName), Value: val})
	}
	return msgs
}

func ev(vessel string, seq int64) models.WaypointEvent {
	return models.WaypointEvent{Seq: seq, Waypoint: models.Waypoint{Lat: -36.84, Lon: 174.81, ShipName: vessel, Speed: 5.2, Timestamp: "2024-01-01 12:00:00"}}
}

func run(t *testing.T, a *archiver.Archiver, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	if err := a.Run(ctx); err != nil {
		t.Logf("Archiver stopped: %v", err)
	}
}

func TestArchiver_WorkerLogic(t *testing.T) {
	mockReader := &testutils.MockKafkaReader{Messages: eventMsgs(t,
		ev("MV Explorer", 6),
		ev("MV Explorer", 6), // redelivery
		ev("MV Explorer", 7),
		ev("MV Explorer", 5), // out of order
		ev("Tui", 1),
	)}
	mockRedis := testutils.NewMockRedisClient()

	cfg := config.ArchiverConfig{NumWorkers: 2, KeyPrefix: "archive:", MaxHistory: 100, LatestTTL: time.Hour}
	run(t, archiver.NewArchiver(cfg, zap.NewNop(), mockRedis, mockReader), time.Second)

	pipe := mockRedis.PipelineSpy
	if pipe.ExecCount != 3 {
		t.Errorf("Expected 3 pipeline executions, got %d", pipe.ExecCount)
	}

	for _, cmd := range []string{
		"RPUSH archive:track:MV Explorer",
		"LTRIM archive:track:MV Explorer",
		"SET archive:latest:MV Explorer",
		"PUBLISH waypoints.MV Explorer",
		"RPUSH archive:track:Tui",
	} {
		if !pipe.Has(cmd) {
			t.Errorf("Missing Redis command %q", cmd)
		}
	}
	if pipe.TTLs["archive:latest:Tui"] != time.Hour {
		t.Errorf("Expected 1h TTL on latest key, got %v", pipe.TTLs["archive:latest:Tui"])
	}
}

func TestArchiver_UnboundedSkipsTrim(t *testing.T) {
	mockReader := &testutils.MockKafkaReader{Messages: eventMsgs(t, ev("MV Explorer", 1))}
	mockRedis := testutils.NewMockRedisClient()

	run(t, archiver.NewArchiver(config.ArchiverConfig{NumWorkers: 1}, zap.NewNop(), mockRedis, mockReader), 200*time.Millisecond)

	if mockRedis.PipelineSpy.Has("LTRIM track:MV Explorer") {
		t.Error("max_history 0 must not trim")
	}
	if !mockRedis.PipelineSpy.Has("RPUSH track:MV Explorer") {
		t.Error("Expected unprefixed track key")
	}
}

func TestArchiver_InvalidJSON(t *testing.T) {
	msgs := []kafka.Message{
		{Key: []byte("MV Explorer"), Value: []byte("{broken-json")},
		{Key: []byte(""), Value: []byte(`{"seq": 1}`)},
	}
	mockReader := &testutils.MockKafkaReader{Messages: msgs}
	mockRedis := testutils.NewMockRedisClient()

	run(t, archiver.NewArchiver(config.ArchiverConfig{NumWorkers: 1}, zap.NewNop(), mockRedis, mockReader), 200*time.Millisecond)

	if mockRedis.PipelineSpy.ExecCount > 0 {
		t.Error("Should not execute Redis commands for invalid events")
	}
}

func TestArchiver_FailedWriteIsRetriedOnRedelivery(t *testing.T) {
	mockReader := &testutils.MockKafkaReader{Messages: eventMsgs(t, ev("MV Explorer", 3))}
	mockRedis := testutils.NewMockRedisClient()
	mockRedis.PipelineSpy.ShouldFail = true
	a := archiver.NewArchiver(config.ArchiverConfig{NumWorkers: 1}, zap.NewNop(), mockRedis, mockReader)

	run(t, a, 200*time.Millisecond)
	if mockRedis.PipelineSpy.ExecCount != 0 {
		t.Fatalf("Expected no successful executions, got %d", mockRedis.PipelineSpy.ExecCount)
	}

	// same seq again after redis recovers: a new run must not treat it as a duplicate
	mockRedis.PipelineSpy.ShouldFail = false
	mockReader.Index = 0
	run(t, a, 200*time.Millisecond)
	if mockRedis.PipelineSpy.ExecCount != 1 {
		t.Errorf("Expected the redelivered event to be archived, got %d executions", mockRedis.PipelineSpy.ExecCount)
	}
}
