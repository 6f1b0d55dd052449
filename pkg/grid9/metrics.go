package grid9

import (
	"math"

	"github.com/1F47E/grid9/pkg/models"
)

// CalculateDistance returns the great-circle distance in meters between the
// cells of two codes. Decode failures are returned unchanged.
func CalculateDistance(a, b string) (float64, error) {
	lat1, lon1, err := Decode(a)
	if err != nil {
		return 0, err
	}
	lat2, lon2, err := Decode(b)
	if err != nil {
		return 0, err
	}
	return Haversine(lat1, lon1, lat2, lon2), nil
}

// Haversine calculates the distance between two lat/lon points in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	a = math.Min(a, 1)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusM * c
}

// GetActualPrecision returns the half-cell error band of the quantization
// grid at the given latitude: LatErrorM and LonErrorM are half the cell
// height and width in meters, the distance from a cell center to its edge.
// The full cell is twice as large in each axis, and Decode, which returns
// the south-west corner, can be off by up to a full cell. The result does
// not depend on the encoded value.
func GetActualPrecision(lat, lon float64) (models.PrecisionInfo, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return models.PrecisionInfo{}, err
	}

	latErr := 180.0 / (1 << LatBits) * MetersPerDegree / 2
	lonErr := 360.0 / (1 << LonBits) * MetersPerDegree * math.Cos(toRadians(lat)) / 2

	return models.PrecisionInfo{
		LatErrorM:   latErr,
		LonErrorM:   lonErr,
		TotalErrorM: math.Sqrt(latErr*latErr + lonErr*lonErr),
	}, nil
}

// CellSize returns the height and width of one quantization cell in degrees.
func CellSize() (latDeg, lonDeg float64) {
	return 180.0 / (LatMax + 1), 360.0 / (LonMax + 1)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
