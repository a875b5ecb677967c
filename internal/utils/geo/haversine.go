package geo

import "math"

// EarthRadiusMiles is the radius used for all distance math.
const EarthRadiusMiles = 3959.0

// Distance returns the great-circle distance in miles.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMiles * c
}

// Midpoint returns the geographic midpoint of two coordinates.
func Midpoint(lat1, lon1, lat2, lon2 float64) (float64, float64) {
	φ1, λ1 := toRad(lat1), toRad(lon1)
	φ2 := toRad(lat2)
	dλ := toRad(lon2 - lon1)

	bx := math.Cos(φ2) * math.Cos(dλ)
	by := math.Cos(φ2) * math.Sin(dλ)
	φ3 := math.Atan2(math.Sin(φ1)+math.Sin(φ2), math.Sqrt((math.Cos(φ1)+bx)*(math.Cos(φ1)+bx)+by*by))
	λ3 := λ1 + math.Atan2(by, math.Cos(φ1)+bx)

	return toDeg(φ3), toDeg(λ3)
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func toRad(d float64) float64 { return d * math.Pi / 180 }
func toDeg(r float64) float64 { return r * 180 / math.Pi }
