package qibla

import (
	"math"

	"github.com/ytakahashi/zikr-companion/internal/models"
)

// EarthRadiusKm is the mean Earth radius used by Distance.
const EarthRadiusKm = 6371.0

// Kaaba is the location of the Kaaba in Makkah.
var Kaaba = models.Coordinate{Latitude: 21.4225, Longitude: 39.8262}

// Direction is the Qibla as seen from a given location.
type Direction struct {
	From       models.Coordinate `json:"from"`
	Bearing    float64           `json:"bearing"`
	DistanceKm float64           `json:"distanceKm"`
	Compass    string            `json:"compass"`
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Bearing returns the initial great-circle bearing from one point to another,
// in degrees clockwise from true north, normalised to [0,360).
func Bearing(from, to models.Coordinate) float64 {
	if from == to {
		return 0
	}
	phi1 := toRadians(from.Latitude)
	phi2 := toRadians(to.Latitude)
	dLambda := toRadians(to.Longitude - from.Longitude)

	x := math.Sin(dLambda) * math.Cos(phi2)
	y := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)

	theta := math.Mod(toDegrees(math.Atan2(x, y))+360, 360)
	// -tiny + 360 rounds to exactly 360
	if theta >= 360 {
		theta = 0
	}
	return theta
}

// Distance returns the haversine great-circle distance in kilometres.
func Distance(from, to models.Coordinate) float64 {
	if from == to {
		return 0
	}
	phi1 := toRadians(from.Latitude)
	phi2 := toRadians(to.Latitude)
	dPhi := toRadians(to.Latitude - from.Latitude)
	dLambda := toRadians(to.Longitude - from.Longitude)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	// rounding can push a just past 1 near antipodes
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// Find computes the Qibla direction for a location.
func Find(from models.Coordinate) Direction {
	b := Bearing(from, Kaaba)
	return Direction{
		From:       from,
		Bearing:    b,
		DistanceKm: Distance(from, Kaaba),
		Compass:    CompassPoint(b),
	}
}

var compassPoints = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// CompassPoint maps a bearing to the nearest of the 16 compass points.
func CompassPoint(bearing float64) string {
	b := math.Mod(math.Mod(bearing, 360)+360, 360)
	idx := int(math.Round(b/22.5)) % len(compassPoints)
	return compassPoints[idx]
}
