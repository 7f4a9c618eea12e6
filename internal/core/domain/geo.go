package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LngLat is a coordinate pair in GeoJSON order: [longitude, latitude].
type LngLat [2]float64

// Lng returns the longitude component.
func (p LngLat) Lng() float64 { return p[0] }

// Lat returns the latitude component.
func (p LngLat) Lat() float64 { return p[1] }

// Point converts a LngLat pair into a GeoPoint.
func (p LngLat) Point() GeoPoint { return GeoPoint{Lat: p[1], Lng: p[0]} }

// LngLat converts a GeoPoint into GeoJSON coordinate order.
func (g GeoPoint) LngLat() LngLat { return LngLat{g.Lng, g.Lat} }
