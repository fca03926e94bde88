package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// BoundingBox is the rectangle a radar query covers.
type BoundingBox struct {
	North float64 `json:"north" validate:"gte=-90,lte=90"`
	West  float64 `json:"west" validate:"gte=-180,lte=180"`
	South float64 `json:"south" validate:"gte=-90,lte=90"`
	East  float64 `json:"east" validate:"gte=-180,lte=180"`
}

// Polyline is a GeoJSON FeatureCollection of points along a trip.
// A point at a stop carries that stop in its properties.
type Polyline struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is one GeoJSON point of a Polyline.
type Feature struct {
	Type       string    `json:"type"`
	Properties *Location `json:"properties"`
	Geometry   Point     `json:"geometry"`
}

// Point is a GeoJSON point geometry. Coordinates are [lon, lat].
type Point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// NewPolyline builds a FeatureCollection from points without stop properties.
func NewPolyline(points []GeoPoint) *Polyline {
	p := &Polyline{Type: "FeatureCollection", Features: make([]Feature, len(points))}
	for i, pt := range points {
		p.Features[i] = Feature{
			Type:     "Feature",
			Geometry: Point{Type: "Point", Coordinates: [2]float64{pt.Lon, pt.Lat}},
		}
	}
	return p
}
