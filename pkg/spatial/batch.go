// Package spatial provides batch and collection operations built on the grid9
// codec: vectorized encode/decode, bounding box, centroid, a brute-force
// proximity scan and grouping by code.
//
// Batch work is spread over all CPUs. Results always come back in input
// order, and a failing element fails the whole batch unless the Each
// variants are used.
package spatial

import (
	"runtime"
	"sync"

	"github.com/1F47E/grid9/pkg/grid9"
	"github.com/1F47E/grid9/pkg/models"
)

// parallelThreshold is the batch size below which work stays on the caller's goroutine.
const parallelThreshold = 1024

// EncodeResult is the outcome of encoding one coordinate
type EncodeResult struct {
	Code string `json:"code,omitempty"`
	Err  error  `json:"-"`
}

// DecodeResult is the outcome of decoding one code
type DecodeResult struct {
	Coordinate models.Coordinate `json:"coordinate"`
	Err        error             `json:"-"`
}

// BatchEncode encodes every coordinate. The first failing coordinate (by
// index) fails the batch and no codes are returned.
func BatchEncode(coords []models.Coordinate, humanReadable bool) ([]string, error) {
	codes := make([]string, len(coords))
	err := forEachRange(len(coords), func(start, end int) error {
		for i := start; i < end; i++ {
			code, err := grid9.Encode(coords[i].Lat, coords[i].Lon, humanReadable)
			if err != nil {
				return err
			}
			codes[i] = code
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// BatchDecode decodes every code. The first failing code (by index) fails
// the batch and no coordinates are returned.
func BatchDecode(codes []string) ([]models.Coordinate, error) {
	coords := make([]models.Coordinate, len(codes))
	err := forEachRange(len(codes), func(start, end int) error {
		for i := start; i < end; i++ {
			lat, lon, err := grid9.Decode(codes[i])
			if err != nil {
				return err
			}
			coords[i] = models.Coordinate{Lat: lat, Lon: lon}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return coords, nil
}

// BatchEncodeEach encodes every coordinate and reports failures per element
func BatchEncodeEach(coords []models.Coordinate, humanReadable bool) []EncodeResult {
	results := make([]EncodeResult, len(coords))
	_ = forEachRange(len(coords), func(start, end int) error {
		for i := start; i < end; i++ {
			code, err := grid9.Encode(coords[i].Lat, coords[i].Lon, humanReadable)
			results[i] = EncodeResult{Code: code, Err: err}
		}
		return nil
	})
	return results
}

// BatchDecodeEach decodes every code and reports failures per element
func BatchDecodeEach(codes []string) []DecodeResult {
	results := make([]DecodeResult, len(codes))
	_ = forEachRange(len(codes), func(start, end int) error {
		for i := start; i < end; i++ {
			lat, lon, err := grid9.Decode(codes[i])
			results[i] = DecodeResult{Coordinate: models.Coordinate{Lat: lat, Lon: lon}, Err: err}
		}
		return nil
	})
	return results
}

// forEachRange splits [0, n) into one contiguous range per CPU and runs fn
// on each concurrently. fn returns the error of the first element that
// failed in its range, so the error of the lowest failing range is the
// error of the lowest failing element.
func forEachRange(n int, fn func(start, end int) error) error {
	if n == 0 {
		return nil
	}
	if n < parallelThreshold {
		return fn(0, n)
	}

	numCPU := runtime.NumCPU()
	batchSize := (n + numCPU - 1) / numCPU
	errs := make([]error, numCPU)

	var wg sync.WaitGroup
	for w := 0; w < numCPU && w*batchSize < n; w++ {
		start := w * batchSize
		end := min(start+batchSize, n)

		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			errs[w] = fn(start, end)
		}(w, start, end)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
