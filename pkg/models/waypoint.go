package models

import "time"

// TimestampLayout is the wire format of Waypoint.Timestamp (local time, second precision).
const TimestampLayout = "2006-01-02 15:04:05"

// Waypoint is a single reported position of the tracked vessel
type Waypoint struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	ShipName  string  `json:"ship_name"`
	Speed     float64 `json:"speed"`     // knots, one decimal
	Timestamp string  `json:"timestamp"` // TimestampLayout
}

// WaypointEvent is what goes over Kafka: the waypoint plus a per-process sequence number
type WaypointEvent struct {
	Seq int64 `json:"seq"` // monotonic counter per vessel
	Waypoint
}

// FormatTimestamp renders t in the waypoint wire format.
func FormatTimestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, time.Local)
}
