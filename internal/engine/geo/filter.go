package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Circle approximates the area within radiusM of center as a polygon with
// n vertices.
func Circle(center orb.Point, radiusM float64, n int) orb.Polygon {
	latDeg, lngDeg := MetersToDegrees(radiusM, center.Lat())
	ring := make(orb.Ring, 0, n+1)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		ring = append(ring, orb.Point{center.Lon() + lngDeg*math.Cos(a), center.Lat() + latDeg*math.Sin(a)})
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

// FilterWithin keeps the points that fall inside poly.
func FilterWithin(points []orb.Point, poly orb.Polygon) []orb.Point {
	var in []orb.Point
	for _, p := range points {
		if planar.PolygonContains(poly, p) {
			in = append(in, p)
		}
	}
	return in
}
