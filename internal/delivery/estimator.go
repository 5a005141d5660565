package delivery

import (
	"math"
	"time"
)

// Estimator computes the estimated delivery duration for a new order.
// Injecting it keeps the on-time computation deterministic in tests.
type Estimator interface {
	Estimate(destination string, quantity int) time.Duration
}

// FixedEstimator returns the same duration for every order.
type FixedEstimator struct {
	Duration time.Duration
}

func (e FixedEstimator) Estimate(string, int) time.Duration {
	return e.Duration
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64
	Lon float64
}

// FlightTimeEstimator estimates delivery duration from the haversine
// distance between the base station and the destination at cruise speed.
// Unknown destinations fall back to Default.
type FlightTimeEstimator struct {
	Base     Coordinates
	Stations map[string]Coordinates
	SpeedKmh float64
	Default  time.Duration
}

func (e FlightTimeEstimator) Estimate(destination string, _ int) time.Duration {
	dest, known := e.Stations[destination]
	if !known || e.SpeedKmh <= 0 {
		return e.Default
	}
	km := haversineKm(e.Base, dest)
	minutes := km / e.SpeedKmh * 60
	return time.Duration(minutes * float64(time.Minute))
}

// haversineKm returns the great-circle distance between two coordinates.
func haversineKm(a, b Coordinates) float64 {
	const earthRadiusKm = 6371

	lat1 := a.Lat * math.Pi / 180
	lon1 := a.Lon * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	lon2 := b.Lon * math.Pi / 180

	dlat := lat2 - lat1
	dlon := lon2 - lon1

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
