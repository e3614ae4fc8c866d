package models

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Position is the waypoint as an orb point, [lon, lat].
func (w Waypoint) Position() orb.Point {
	return orb.Point{w.Lon, w.Lat}
}

// PointFeature converts a waypoint into a GeoJSON Point feature.
func PointFeature(w Waypoint) *geojson.Feature {
	f := geojson.NewFeature(w.Position())
	f.Properties["ship_name"] = w.ShipName
	f.Properties["speed"] = w.Speed
	f.Properties["timestamp"] = w.Timestamp
	return f
}

// TrackCollection builds a FeatureCollection holding the path as a LineString
// followed by one Point per waypoint.
func TrackCollection(track []Waypoint) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if len(track) == 0 {
		return fc
	}

	line := make(orb.LineString, len(track))
	for i, w := range track {
		line[i] = w.Position()
	}
	path := geojson.NewFeature(line)
	path.Properties["ship_name"] = track[0].ShipName
	fc.Append(path)

	for _, w := range track {
		fc.Append(PointFeature(w))
	}
	return fc
}
