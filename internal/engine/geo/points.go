package geo

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Row keys the backend uses for coordinates.
const (
	LatKey = "latitude"
	LngKey = "longitude"
)

// Place is a located result row.
type Place struct {
	Name  string
	Point orb.Point // [lng, lat]
}

// PointFromRow reads the coordinates of a result row. Values may be numbers
// or numeric strings; out-of-range or missing values are rejected.
func PointFromRow(row map[string]any) (orb.Point, bool) {
	lat, ok := toFloat(row[LatKey])
	if !ok || lat < -90 || lat > 90 {
		return orb.Point{}, false
	}
	lng, ok := toFloat(row[LngKey])
	if !ok || lng < -180 || lng > 180 {
		return orb.Point{}, false
	}
	return orb.Point{lng, lat}, true
}

// Places returns the located rows, in order, skipping rows without
// coordinates.
func Places(rows []map[string]any) []Place {
	var out []Place
	for _, r := range rows {
		p, ok := PointFromRow(r)
		if !ok {
			continue
		}
		name, _ := r["name"].(string)
		out = append(out, Place{Name: name, Point: p})
	}
	return out
}

// MultiPoint collects the points of places.
func MultiPoint(places []Place) orb.MultiPoint {
	mp := make(orb.MultiPoint, len(places))
	for i, p := range places {
		mp[i] = p.Point
	}
	return mp
}

// Bounds is the bounding box of places, false when there are none.
func Bounds(places []Place) (orb.Bound, bool) {
	if len(places) == 0 {
		return orb.Bound{}, false
	}
	return MultiPoint(places).Bound(), true
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}
