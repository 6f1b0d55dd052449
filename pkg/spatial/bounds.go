package spatial

import (
	"math"

	"github.com/samber/lo"

	"github.com/1F47E/grid9/pkg/grid9"
	"github.com/1F47E/grid9/pkg/models"
)

// BoundingBox returns the smallest degree-space box containing every coordinate
func BoundingBox(coords []models.Coordinate) (models.BoundingBox, error) {
	if len(coords) == 0 {
		return models.BoundingBox{}, grid9.EmptyInput()
	}

	first := coords[0]
	box := models.BoundingBox{
		MinLat: first.Lat, MaxLat: first.Lat,
		MinLon: first.Lon, MaxLon: first.Lon,
	}
	for _, c := range coords[1:] {
		box.MinLat = math.Min(box.MinLat, c.Lat)
		box.MaxLat = math.Max(box.MaxLat, c.Lat)
		box.MinLon = math.Min(box.MinLon, c.Lon)
		box.MaxLon = math.Max(box.MaxLon, c.Lon)
	}
	return box, nil
}

// CenterPoint returns the arithmetic mean of the coordinates. This is a flat
// approximation and only meaningful for small extents away from the
// antimeridian.
func CenterPoint(coords []models.Coordinate) (models.Coordinate, error) {
	if len(coords) == 0 {
		return models.Coordinate{}, grid9.EmptyInput()
	}

	n := float64(len(coords))
	return models.Coordinate{
		Lat: lo.SumBy(coords, func(c models.Coordinate) float64 { return c.Lat }) / n,
		Lon: lo.SumBy(coords, func(c models.Coordinate) float64 { return c.Lon }) / n,
	}, nil
}

// GroupByCode buckets coordinates by the code of the cell they fall in.
// Order within a bucket follows input order. Points a few meters apart can
// still land in different cells and never share a bucket.
func GroupByCode(coords []models.Coordinate, humanReadable bool) (map[string][]models.Coordinate, error) {
	codes, err := BatchEncode(coords, humanReadable)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]models.Coordinate)
	for i, code := range codes {
		groups[code] = append(groups[code], coords[i])
	}
	return groups, nil
}
