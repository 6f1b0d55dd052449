// Package index keeps grid9 codes in longitude-partitioned R-Trees so that
// box, radius and nearest-neighbor queries do not need a full scan.
// Each entry occupies the rectangle of its quantization cell.
package index

import (
	"math"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dhconnelly/rtreego"

	"github.com/1F47E/grid9/pkg/grid9"
	"github.com/1F47E/grid9/pkg/models"
	"github.com/1F47E/grid9/pkg/spatial"
)

const (
	minChildren = 25
	maxChildren = 50
	dimensions  = 2

	searchPad = 1e-9
)

// spatialEntry wraps an entry to implement rtreego.Spatial
type spatialEntry struct {
	models.Entry
	loc  models.Coordinate
	rect *rtreego.Rect
}

func (se *spatialEntry) Bounds() *rtreego.Rect {
	return se.rect
}

// CodeIndex is a thread-safe R-Tree index of grid9 codes
type CodeIndex struct {
	partitions      []*rtreego.Rtree
	partitionBounds []models.BoundingBox
	mu              sync.RWMutex
	itemCount       atomic.Int64
}

// NewCodeIndex creates an index with one partition per CPU
func NewCodeIndex() *CodeIndex {
	return NewCodeIndexWithPartitions(runtime.NumCPU())
}

// NewCodeIndexWithPartitions creates an index split into n longitude bands
func NewCodeIndexWithPartitions(n int) *CodeIndex {
	if n <= 0 {
		n = runtime.NumCPU()
	}

	partitions := make([]*rtreego.Rtree, n)
	partitionBounds := make([]models.BoundingBox, n)

	lonRange := 360.0 / float64(n)
	for i := 0; i < n; i++ {
		partitions[i] = rtreego.NewTree(dimensions, minChildren, maxChildren)

		minLon := -180.0 + float64(i)*lonRange
		maxLon := minLon + lonRange
		if i == n-1 {
			maxLon = 180.0
		}
		partitionBounds[i] = models.BoundingBox{
			MinLat: -90, MaxLat: 90,
			MinLon: minLon, MaxLon: maxLon,
		}
	}

	return &CodeIndex{
		partitions:      partitions,
		partitionBounds: partitionBounds,
	}
}

// Insert adds entries to the index. Codes may be formatted; they are stored
// in canonical form. If any code is invalid nothing is inserted and the
// codec error is returned.
func (c *CodeIndex) Insert(entries []models.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	codes := make([]string, len(entries))
	for i, e := range entries {
		codes[i] = e.Code
	}
	locs, err := spatial.BatchDecode(codes)
	if err != nil {
		return err
	}

	n := len(c.partitions)
	cellLat, cellLon := grid9.CellSize()
	partitioned := make([][]*spatialEntry, n)
	for i, e := range entries {
		rect, err := rtreego.NewRect(rtreego.Point{locs[i].Lat, locs[i].Lon}, []float64{cellLat, cellLon})
		if err != nil {
			return err
		}
		e.Code = grid9.RemoveFormatting(e.Code)
		idx := c.partitionFor(locs[i].Lon)
		partitioned[idx] = append(partitioned[idx], &spatialEntry{Entry: e, loc: locs[i], rect: rect})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		if len(partitioned[i]) == 0 {
			continue
		}

		wg.Add(1)
		go func(idx int, items []*spatialEntry) {
			defer wg.Done()
			for _, item := range items {
				c.partitions[idx].Insert(item)
			}
		}(i, partitioned[i])
	}
	wg.Wait()

	c.itemCount.Add(int64(len(entries)))
	return nil
}

// QueryBox returns all entries whose cell corner lies inside box
func (c *CodeIndex) QueryBox(box models.BoundingBox) []models.Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var entries []models.Entry
	for _, se := range c.search(box) {
		if box.Contains(se.loc) {
			entries = append(entries, se.Entry)
		}
	}
	return entries
}

// QueryRadius returns entries within radiusM meters of center, nearest first.
func (c *CodeIndex) QueryRadius(center models.Coordinate, radiusM float64) ([]models.Entry, error) {
	if !(radiusM > 0) {
		return nil, grid9.InvalidRadius(radiusM)
	}
	if err := grid9.ValidateCoordinates(center.Lat, center.Lon); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	type hit struct {
		entry    models.Entry
		distance float64
	}
	var hits []hit
	for _, se := range c.search(radiusBox(center, radiusM)) {
		if d := grid9.Haversine(center.Lat, center.Lon, se.loc.Lat, se.loc.Lon); d <= radiusM {
			hits = append(hits, hit{se.Entry, d})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].distance != hits[j].distance {
			return hits[i].distance < hits[j].distance
		}
		return hits[i].entry.ID < hits[j].entry.ID
	})

	entries := make([]models.Entry, len(hits))
	for i, h := range hits {
		entries[i] = h.entry
	}
	return entries, nil
}

// Nearest returns up to n entries closest to center by great-circle
// distance, ties broken by ID.
//
// The tree ranks candidates by degree-space distance, which at high
// latitudes differs from distance on the ground. The n-th candidate's
// great-circle distance bounds the answer, so a radius search with that
// bound collects every entry that could beat it.
func (c *CodeIndex) Nearest(center models.Coordinate, n int) []models.Entry {
	if n <= 0 {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	type nearestResult struct {
		entry    models.Entry
		distance float64
	}

	resultsChan := make(chan []nearestResult, len(c.partitions))
	for i := range c.partitions {
		go func(idx int) {
			found := c.partitions[idx].NearestNeighbors(n, rtreego.Point{center.Lat, center.Lon})

			results := make([]nearestResult, 0, len(found))
			for _, f := range found {
				se, ok := f.(*spatialEntry)
				if !ok || se == nil {
					continue
				}
				results = append(results, nearestResult{
					entry:    se.Entry,
					distance: grid9.Haversine(center.Lat, center.Lon, se.loc.Lat, se.loc.Lon),
				})
			}
			resultsChan <- results
		}(i)
	}

	var all []nearestResult
	for range c.partitions {
		all = append(all, <-resultsChan...)
	}

	byDistance := func(i, j int) bool {
		if all[i].distance != all[j].distance {
			return all[i].distance < all[j].distance
		}
		return all[i].entry.ID < all[j].entry.ID
	}
	sort.Slice(all, byDistance)

	// fewer candidates than n means the tree holds fewer than n entries
	if len(all) >= n {
		bound := all[n-1].distance
		all = all[:0]
		for _, se := range c.search(radiusBox(center, math.Max(bound, 1e-3))) {
			if d := grid9.Haversine(center.Lat, center.Lon, se.loc.Lat, se.loc.Lon); d <= bound {
				all = append(all, nearestResult{se.Entry, d})
			}
		}
		sort.Slice(all, byDistance)
	}
	if len(all) > n {
		all = all[:n]
	}

	entries := make([]models.Entry, len(all))
	for i, r := range all {
		entries[i] = r.entry
	}
	return entries
}

// Count returns the number of indexed entries
func (c *CodeIndex) Count() int64 {
	return c.itemCount.Load()
}

// Clear removes all entries from the index
func (c *CodeIndex) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.partitions {
		c.partitions[i] = rtreego.NewTree(dimensions, minChildren, maxChildren)
	}
	c.itemCount.Store(0)
}

// search runs the box query on every partition overlapping box in parallel.
// Callers hold the read lock.
func (c *CodeIndex) search(box models.BoundingBox) []*spatialEntry {
	// rtreego treats touching rectangles as disjoint; pad so that entries
	// sitting on the box edge are still found.
	bounds, err := rtreego.NewRect(
		rtreego.Point{box.MinLat - searchPad, box.MinLon - searchPad},
		[]float64{
			box.MaxLat - box.MinLat + 2*searchPad,
			box.MaxLon - box.MinLon + 2*searchPad,
		},
	)
	if err != nil {
		return nil
	}

	relevant := c.relevantPartitions(box)
	resultsChan := make(chan []*spatialEntry, len(relevant))

	for _, partitionIdx := range relevant {
		go func(idx int) {
			var found []*spatialEntry
			for _, result := range c.partitions[idx].SearchIntersect(bounds) {
				if se, ok := result.(*spatialEntry); ok {
					found = append(found, se)
				}
			}
			resultsChan <- found
		}(partitionIdx)
	}

	var all []*spatialEntry
	for range relevant {
		all = append(all, <-resultsChan...)
	}
	return all
}

// relevantPartitions returns the partitions whose longitude band overlaps box
func (c *CodeIndex) relevantPartitions(box models.BoundingBox) []int {
	var relevant []int
	for i, bounds := range c.partitionBounds {
		if box.MinLon <= bounds.MaxLon && box.MaxLon >= bounds.MinLon {
			relevant = append(relevant, i)
		}
	}
	return relevant
}

func (c *CodeIndex) partitionFor(lon float64) int {
	n := len(c.partitions)
	idx := int((lon + 180.0) / (360.0 / float64(n)))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// radiusBox returns a degree box enclosing the circle. When the circle
// crosses the antimeridian or reaches a pole the box spans all longitudes.
func radiusBox(center models.Coordinate, radiusM float64) models.BoundingBox {
	ang := radiusM / grid9.EarthRadiusM
	deg := ang * 180 / math.Pi
	box := models.BoundingBox{
		MinLat: math.Max(-90, center.Lat-deg),
		MaxLat: math.Min(90, center.Lat+deg),
		MinLon: -180,
		MaxLon: 180,
	}
	if box.MinLat == -90 || box.MaxLat == 90 {
		return box
	}

	// widest longitude offset reached by any point of the circle
	s := math.Sin(ang) / math.Cos(center.Lat*math.Pi/180)
	if s >= 1 {
		return box
	}
	lonDeg := math.Asin(s) * 180 / math.Pi
	if center.Lon-lonDeg >= -180 && center.Lon+lonDeg <= 180 {
		box.MinLon = center.Lon - lonDeg
		box.MaxLon = center.Lon + lonDeg
	}
	return box
}
