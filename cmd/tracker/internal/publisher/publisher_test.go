package publisher_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/johnnewto/seamap/cmd/tracker/internal/publisher"
	"github.com/johnnewto/seamap/cmd/tracker/internal/testutils"
	"github.com/johnnewto/seamap/pkg/models"
)

func TestKafkaPublisher_Publish(t *testing.T) {
	writer := &testutils.MockKafkaWriter{}
	p := publisher.NewKafkaPublisher(writer, zap.NewNop())

	ev := models.WaypointEvent{
		Seq:      6,
		Waypoint: models.Waypoint{Lat: -36.8466, Lon: 174.8129, ShipName: "MV Explorer", Speed: 5.3, Timestamp: "2024-01-01 12:00:00"},
	}
	if err := p.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if len(writer.Messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(writer.Messages))
	}
	msg := writer.Messages[0]
	if string(msg.Key) != "MV Explorer" {
		t.Errorf("Expected vessel key, got %q", msg.Key)
	}

	var got models.WaypointEvent
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("Invalid payload: %v", err)
	}
	if got != ev {
		t.Errorf("Payload mismatch: %+v vs %+v", got, ev)
	}
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	writer := &testutils.MockKafkaWriter{ShouldFail: true}
	p := publisher.NewKafkaPublisher(writer, zap.NewNop())

	if err := p.Publish(context.Background(), models.WaypointEvent{}); err == nil {
		t.Error("Expected write error to surface")
	}
}

func TestKafkaPublisher_Close(t *testing.T) {
	writer := &testutils.MockKafkaWriter{}
	p := publisher.NewKafkaPublisher(writer, zap.NewNop())

	_ = p.Close()
	if !writer.Closed {
		t.Error("Writer should be closed")
	}
}

func TestTopicCreator_Create(t *testing.T) {
	dialer := &testutils.MockKafkaDialer{}
	clock := &testutils.MockClock{CurrentTime: time.Unix(0, 0)}
	tc := publisher.NewTopicCreator(zap.NewNop(), dialer, clock)

	tc.Create(context.Background(), []string{"kafka:9092"}, "waypoints")

	if len(dialer.ConnSpy.CreatedTopics) != 1 || dialer.ConnSpy.CreatedTopics[0] != "waypoints" {
		t.Fatalf("Expected topic 'waypoints' to be created, got %v", dialer.ConnSpy.CreatedTopics)
	}
	if dialer.ConnSpy.Configs[0].NumPartitions != 1 {
		t.Errorf("Expected 1 partition, got %d", dialer.ConnSpy.Configs[0].NumPartitions)
	}
	if len(dialer.Dialed) != 2 || dialer.Dialed[1] != "localhost:9092" {
		t.Errorf("Expected broker then controller dial, got %v", dialer.Dialed)
	}
	if !clock.Now().After(time.Unix(0, 0)) {
		t.Error("Expected a readiness wait")
	}
}

func TestTopicCreator_DialFailure(t *testing.T) {
	dialer := &testutils.MockKafkaDialer{ShouldFail: true}
	tc := publisher.NewTopicCreator(zap.NewNop(), dialer, &testutils.MockClock{})

	tc.Create(context.Background(), []string{"a:9092", "b:9092"}, "waypoints")

	if len(dialer.Dialed) != 2 {
		t.Errorf("Expected every broker to be tried, got %v", dialer.Dialed)
	}
	if dialer.ConnSpy != nil {
		t.Error("No topic should be created when all brokers fail")
	}
}
