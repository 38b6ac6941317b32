// Package geo implements great-circle distance and radius filtering for
// nearby match search.
package geo

import (
	"math"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// kmPerDegreeLat is the length of one degree of latitude.
const kmPerDegreeLat = 111.0

// Point is a WGS-84 coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Valid reports whether the point lies within the WGS-84 ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lon)
}

// DistanceKm returns the haversine distance between a and b.
func DistanceKm(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// Located pairs an item with its distance from the query origin.
type Located[T any] struct {
	Item       T
	DistanceKm float64
}

// Filter annotates every item with its distance from origin and keeps those
// within maxKm.  A nil maxKm keeps everything.  Items exactly on the radius
// are kept.  The input order is preserved.
func Filter[T any](origin Point, items []T, pos func(T) Point, maxKm *float64) []Located[T] {
	out := make([]Located[T], 0, len(items))
	for _, it := range items {
		d := DistanceKm(origin, pos(it))
		if maxKm != nil && d > *maxKm {
			continue
		}
		out = append(out, Located[T]{Item: it, DistanceKm: d})
	}
	return out
}

// RoundKm rounds a distance to meter precision.
func RoundKm(km float64) float64 {
	return math.Round(km*1000) / 1000
}

// BoundingBox is a coarse lat/lon rectangle that contains every point within
// a given radius of its centre.  It is only a pre-filter; callers still run
// Filter on the result.  When MinLon > MaxLon the box crosses the
// antimeridian and covers [MinLon, 180] plus [-180, MaxLon].
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// NewBoundingBox returns the box around origin for a radius in km.  The
// longitude span is taken at the box's most poleward latitude, and a box
// that reaches a pole spans every longitude.
func NewBoundingBox(origin Point, km float64) BoundingBox {
	dLat := km / kmPerDegreeLat
	b := BoundingBox{
		MinLat: math.Max(-90, origin.Lat-dLat),
		MaxLat: math.Min(90, origin.Lat+dLat),
		MinLon: -180,
		MaxLon: 180,
	}
	if b.MinLat == -90 || b.MaxLat == 90 {
		return b
	}
	cos := math.Cos(radians(math.Max(math.Abs(b.MinLat), math.Abs(b.MaxLat))))
	if cos < 1e-9 {
		return b
	}
	dLon := km / (kmPerDegreeLat * cos)
	if dLon >= 180 {
		return b
	}
	b.MinLon, b.MaxLon = origin.Lon-dLon, origin.Lon+dLon
	if b.MinLon < -180 {
		b.MinLon += 360
	}
	if b.MaxLon > 180 {
		b.MaxLon -= 360
	}
	return b
}

// CrossesAntimeridian reports whether the longitude range wraps past ±180.
func (b BoundingBox) CrossesAntimeridian() bool { return b.MinLon > b.MaxLon }

// Contains reports whether p falls inside the box.
func (b BoundingBox) Contains(p Point) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	if b.CrossesAntimeridian() {
		return p.Lon >= b.MinLon || p.Lon <= b.MaxLon
	}
	return p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
