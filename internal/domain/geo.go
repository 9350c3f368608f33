package domain

import "math"

const (
	// EarthRadiusKm is the mean radius used for great-circle distances.
	EarthRadiusKm = 6371.0

	// metersPerDegreeLat approximates one degree of latitude; a degree of
	// longitude is this times cos(lat).
	metersPerDegreeLat = 111320.0
)

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ValidLocation reports whether lat and lon are finite and inside the WGS-84
// ranges.
func ValidLocation(lat, lon float64) bool {
	return !math.IsNaN(lat) && !math.IsNaN(lon) &&
		lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// HaversineKm returns the great-circle distance between two points in km.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Polygon approximates a circle of radius meters around (lat, lon) with n
// segments. The ring has n+1 [lon, lat] vertices and the last one is an exact
// copy of the first.
func Polygon(lat, lon, radius float64, n int) [][2]float64 {
	if n < 3 {
		n = 3
	}
	cosLat := math.Cos(lat * math.Pi / 180)
	if math.Abs(cosLat) < 1e-12 {
		cosLat = 1e-12
	}

	ring := make([][2]float64, n+1)
	for i := 0; i < n; i++ {
		angle := float64(i) / float64(n) * 360 * math.Pi / 180
		dLat := radius / metersPerDegreeLat * math.Cos(angle)
		dLon := radius / (metersPerDegreeLat * cosLat) * math.Sin(angle)
		ring[i] = [2]float64{lon + dLon, lat + dLat}
	}
	ring[n] = ring[0]
	return ring
}
