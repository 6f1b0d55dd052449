package spatial

import (
	"context"
	"math"
	"runtime"
	"sync"

	"github.com/1F47E/grid9/pkg/grid9"
)

const (
	// scanStepM is the spacing of the probe grid in meters, on both axes.
	scanStepM = 3.0
	// scanLatLimit keeps the scan box away from the poles where the
	// longitude scale blows up.
	scanLatLimit = 80.0
	// rowsPerWorker is how many rows each worker scans per wave.
	rowsPerWorker = 4
)

// FindNearby returns distinct codes of cells within radiusM meters of the
// given point, in south-west to north-east scan order, at most maxResults.
//
// This is a brute-force scan: a degree box around the point is probed every
// 3 meters and each probe is re-encoded. The cost grows with the box area,
// not with the number of results. A code is accepted when both its distance
// to the centre's code and its decoded distance to the raw centre are
// within radiusM.
func FindNearby(lat, lon, radiusM float64, maxResults uint) ([]string, error) {
	return FindNearbyContext(context.Background(), lat, lon, radiusM, maxResults)
}

// FindNearbyContext is FindNearby that stops between row waves once ctx is
// done, returning ctx.Err().
func FindNearbyContext(ctx context.Context, lat, lon, radiusM float64, maxResults uint) ([]string, error) {
	if !(radiusM > 0) {
		return nil, grid9.InvalidRadius(radiusM)
	}
	center, err := grid9.Encode(lat, lon, false)
	if err != nil {
		return nil, err
	}
	centerLat, centerLon, err := grid9.Decode(center)
	if err != nil {
		return nil, err
	}

	results := make([]string, 0)
	if maxResults == 0 {
		return results, nil
	}

	latDelta := radiusM / grid9.MetersPerDegree
	lonDelta := radiusM / (grid9.MetersPerDegree * math.Cos(lat*math.Pi/180))

	minLat := math.Max(-scanLatLimit, lat-latDelta)
	maxLat := math.Min(scanLatLimit, lat+latDelta)
	minLon := math.Max(-180, lon-lonDelta)
	maxLon := math.Min(180, lon+lonDelta)
	if minLat > maxLat || minLon > maxLon {
		return results, nil
	}

	step := scanStepM / grid9.MetersPerDegree
	rows := int((maxLat-minLat)/step) + 1
	cols := int((maxLon-minLon)/step) + 1

	accept := func(code string) bool {
		cLat, cLon, err := grid9.Decode(code)
		if err != nil {
			return false
		}
		return grid9.Haversine(centerLat, centerLon, cLat, cLon) <= radiusM &&
			grid9.Haversine(lat, lon, cLat, cLon) <= radiusM
	}

	scanRow := func(row int, limit uint) []string {
		rowLat := minLat + float64(row)*step
		var found []string
		prev := ""
		for col := 0; col < cols && uint(len(found)) < limit; col++ {
			code, err := grid9.Encode(rowLat, minLon+float64(col)*step, false)
			if err != nil || code == prev {
				continue
			}
			prev = code
			if accept(code) {
				found = append(found, code)
			}
		}
		return found
	}

	seen := make(map[string]struct{})
	wave := runtime.NumCPU() * rowsPerWorker

	for first := 0; first < rows && uint(len(results)) < maxResults; first += wave {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		last := min(first+wave, rows)
		limit := maxResults - uint(len(results))
		found := make([][]string, last-first)

		var wg sync.WaitGroup
		for row := first; row < last; row++ {
			wg.Add(1)
			go func(row int) {
				defer wg.Done()
				found[row-first] = scanRow(row, limit)
			}(row)
		}
		wg.Wait()

		for _, codes := range found {
			for _, code := range codes {
				if uint(len(results)) >= maxResults {
					break
				}
				if _, ok := seen[code]; ok {
					continue
				}
				seen[code] = struct{}{}
				results = append(results, code)
			}
		}
	}

	return results, nil
}
