package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"

	"github.com/rendis/kectap/internal/model"
)

const metersPerDegreeLat = 111_320.0

// MetersToDegrees converts a north-south and east-west distance at lat into
// degree spans.
func MetersToDegrees(meters, lat float64) (latDeg, lngDeg float64) {
	latDeg = meters / metersPerDegreeLat
	lngDeg = meters / (metersPerDegreeLat * math.Cos(lat*math.Pi/180.0))
	return latDeg, lngDeg
}

// SearchCenters lays out the search points for an area of radiusM around
// center. Centroid mode searches the center only. Grid mode tiles the area
// with cells of s.CellSizeMeters that overlap by s.OverlapMeters and keeps
// the cells whose center falls inside the area.
func SearchCenters(center orb.Point, radiusM float64, s model.Strategy) []orb.Point {
	if s.Mode == model.ModeCentroid {
		return []orb.Point{center}
	}

	cell := float64(max(s.CellSizeMeters, model.MinCellSize))
	step := cell - float64(s.OverlapMeters)
	if step < cell/2 {
		step = cell / 2
	}

	latSpan, lngSpan := MetersToDegrees(radiusM, center.Lat())
	stepLat, stepLng := MetersToDegrees(step, center.Lat())

	var cells []orb.Point
	for lat := center.Lat() - latSpan + stepLat/2; lat < center.Lat()+latSpan; lat += stepLat {
		for lng := center.Lon() - lngSpan + stepLng/2; lng < center.Lon()+lngSpan; lng += stepLng {
			cells = append(cells, orb.Point{lng, lat})
		}
	}

	kept := FilterWithin(cells, Circle(center, radiusM, 32))
	if len(kept) == 0 {
		return []orb.Point{center}
	}
	return kept
}

// Dedupe drops points closer than radiusM to an earlier kept point and
// returns the indexes of the kept ones.
func Dedupe(points []orb.Point, radiusM float64) []int {
	var kept []int
	for i, p := range points {
		dup := false
		for _, k := range kept {
			if orbgeo.Distance(p, points[k]) < radiusM {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, i)
		}
	}
	return kept
}
