package index

import (
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1F47E/grid9/pkg/grid9"
	"github.com/1F47E/grid9/pkg/models"
)

func entry(t testing.TB, id string, lat, lon float64) models.Entry {
	code, err := grid9.Encode(lat, lon, false)
	require.NoError(t, err)
	return models.Entry{ID: id, Code: code}
}

func ids(entries []models.Entry) map[string]bool {
	m := make(map[string]bool)
	for _, e := range entries {
		m[e.ID] = true
	}
	return m
}

func TestNewCodeIndex(t *testing.T) {
	index := NewCodeIndex()
	assert.NotNil(t, index)
	assert.NotEmpty(t, index.partitions)
	assert.Equal(t, int64(0), index.Count())

	assert.Len(t, NewCodeIndexWithPartitions(0).partitions, len(index.partitions))
	assert.Len(t, NewCodeIndexWithPartitions(3).partitions, 3)
}

func TestInsert(t *testing.T) {
	index := NewCodeIndex()

	err := index.Insert([]models.Entry{
		entry(t, "SF", 37.7749, -122.4194),
		entry(t, "LA", 34.0522, -118.2437),
		{ID: "NYC", Code: "Q7K-H2B-BYE"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), index.Count())

	// canonical form is stored
	for _, e := range index.Entries() {
		assert.Len(t, e.Code, grid9.CodeLength)
	}

	err = index.Insert([]models.Entry{
		entry(t, "CHI", 41.8781, -87.6298),
		{ID: "bad", Code: "NOPE"},
	})
	assert.ErrorIs(t, err, grid9.ErrInvalidLength)
	assert.Equal(t, int64(3), index.Count())
}

func TestQueryBox(t *testing.T) {
	index := NewCodeIndex()

	err := index.Insert([]models.Entry{
		entry(t, "SF", 37.7749, -122.4194),
		entry(t, "LA", 34.0522, -118.2437),
		entry(t, "SD", 32.7157, -117.1611),
		entry(t, "NYC", 40.7128, -74.0060),
		entry(t, "CHI", 41.8781, -87.6298),
	})
	require.NoError(t, err)

	results := index.QueryBox(models.BoundingBox{MinLat: 32, MaxLat: 42, MinLon: -125, MaxLon: -114})
	assert.Len(t, results, 3)

	found := ids(results)
	assert.True(t, found["SF"])
	assert.True(t, found["LA"])
	assert.True(t, found["SD"])
	assert.False(t, found["NYC"])
	assert.False(t, found["CHI"])
}

func TestQueryRadius(t *testing.T) {
	index := NewCodeIndex()

	sfLat, sfLon := 37.7749, -122.4194
	err := index.Insert([]models.Entry{
		entry(t, "SF", sfLat, sfLon),
		entry(t, "Oakland", 37.8044, -122.2712),
		entry(t, "San Jose", 37.3382, -121.8863),
		entry(t, "Sacramento", 38.5816, -121.4944),
		entry(t, "LA", 34.0522, -118.2437),
	})
	require.NoError(t, err)

	testCases := []struct {
		name     string
		radius   float64
		expected []string
	}{
		{"10km radius", 10_000, []string{"SF"}},
		{"20km radius", 20_000, []string{"SF", "Oakland"}},
		{"80km radius", 80_000, []string{"SF", "Oakland", "San Jose"}},
		{"150km radius", 150_000, []string{"SF", "Oakland", "San Jose", "Sacramento"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			center := models.Coordinate{Lat: sfLat, Lon: sfLon}
			results, err := index.QueryRadius(center, tc.radius)
			require.NoError(t, err)

			// nearest first
			got := make([]string, len(results))
			for i, r := range results {
				got[i] = r.ID
			}
			assert.Equal(t, tc.expected, got)
		})
	}

	_, err = index.QueryRadius(models.Coordinate{Lat: sfLat, Lon: sfLon}, 0)
	assert.ErrorIs(t, err, grid9.ErrInvalidRadius)
	_, err = index.QueryRadius(models.Coordinate{Lat: 100, Lon: 0}, 10)
	assert.ErrorIs(t, err, grid9.ErrInvalidLatitude)
}

func TestQueryRadiusAcrossAntimeridian(t *testing.T) {
	index := NewCodeIndex()
	err := index.Insert([]models.Entry{
		entry(t, "east", 0, 179.9999),
		entry(t, "west", 0, -179.9999),
		entry(t, "far", 0, 170),
	})
	require.NoError(t, err)

	results, err := index.QueryRadius(models.Coordinate{Lat: 0, Lon: 180}, 1000)
	require.NoError(t, err)
	found := ids(results)
	assert.True(t, found["east"])
	assert.True(t, found["west"])
	assert.False(t, found["far"])
}

func TestQueryRadiusMatchesScan(t *testing.T) {
	index := NewCodeIndex()
	points := generateRandomEntries(5000)
	require.NoError(t, index.Insert(points))

	center := models.Coordinate{Lat: 40, Lon: -100}
	radius := 300_000.0

	var expected []string
	for _, p := range points {
		lat, lon, err := grid9.Decode(p.Code)
		require.NoError(t, err)
		if grid9.Haversine(center.Lat, center.Lon, lat, lon) <= radius {
			expected = append(expected, p.ID)
		}
	}

	results, err := index.QueryRadius(center, radius)
	require.NoError(t, err)
	got := make([]string, len(results))
	for i, r := range results {
		got[i] = r.ID
	}
	assert.ElementsMatch(t, expected, got)
}

func TestNearest(t *testing.T) {
	index := NewCodeIndex()

	err := index.Insert([]models.Entry{
		entry(t, "1", 37.7749, -122.4194),
		entry(t, "2", 37.7849, -122.4094),
		entry(t, "3", 37.7649, -122.4294),
		entry(t, "4", 37.8049, -122.3994),
		entry(t, "5", 37.7549, -122.4394),
	})
	require.NoError(t, err)

	results := index.Nearest(models.Coordinate{Lat: 37.7749, Lon: -122.4194}, 3)
	require.Len(t, results, 3)
	assert.Equal(t, "1", results[0].ID)

	assert.Len(t, index.Nearest(models.Coordinate{Lat: 0, Lon: 0}, 50), 5)
	assert.Empty(t, index.Nearest(models.Coordinate{Lat: 0, Lon: 0}, 0))
}

func TestNearestUsesGroundDistance(t *testing.T) {
	index := NewCodeIndex()

	// at 80N a degree of longitude is much shorter than a degree of
	// latitude, so the closest entry on the ground is far in degrees
	const metersPerDeg = 111320.0
	eastLon := 965 / (metersPerDeg * math.Cos(80*math.Pi/180))
	require.NoError(t, index.Insert([]models.Entry{
		entry(t, "north1", 80+1111/metersPerDeg, 0),
		entry(t, "north2", 80+1221/metersPerDeg, 0),
		entry(t, "north3", 80+1331/metersPerDeg, 0),
		entry(t, "east", 80, eastLon),
	}))

	center := models.Coordinate{Lat: 80, Lon: 0}

	one := index.Nearest(center, 1)
	require.Len(t, one, 1)
	assert.Equal(t, "east", one[0].ID)

	two := index.Nearest(center, 2)
	require.Len(t, two, 2)
	assert.Equal(t, "east", two[0].ID)
	assert.Equal(t, "north1", two[1].ID)
}

func TestClear(t *testing.T) {
	index := NewCodeIndex()
	require.NoError(t, index.Insert(generateRandomEntries(100)))
	assert.Equal(t, int64(100), index.Count())

	index.Clear()
	assert.Equal(t, int64(0), index.Count())
	assert.Empty(t, index.Entries())
}

func TestPersistence(t *testing.T) {
	index1 := NewCodeIndex()
	points := generateRandomEntries(100)
	points = append(points, entry(t, "north", 90, 180), entry(t, "south", -90, -180))
	require.NoError(t, index1.Insert(points))

	file := filepath.Join(t.TempDir(), "index.gob")
	require.NoError(t, index1.SaveToFile(file))

	index2 := NewCodeIndexWithPartitions(2)
	require.NoError(t, index2.LoadFromFile(file))

	assert.Equal(t, index1.Count(), index2.Count())
	assert.ElementsMatch(t, index1.Entries(), index2.Entries())

	box := models.BoundingBox{MinLat: 30, MaxLat: 40, MinLon: -120, MaxLon: -110}
	assert.ElementsMatch(t, index1.QueryBox(box), index2.QueryBox(box))

	assert.Error(t, index2.LoadFromFile(filepath.Join(t.TempDir(), "missing.gob")))
}

func TestConcurrentQueries(t *testing.T) {
	index := NewCodeIndex()
	require.NoError(t, index.Insert(generateRandomEntries(10000)))

	done := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		go func(i int) {
			defer func() { done <- true }()
			r := rand.New(rand.NewSource(int64(i)))

			switch i % 3 {
			case 0:
				box := models.BoundingBox{
					MinLat: r.Float64()*10 + 30, MaxLat: r.Float64()*10 + 40,
					MinLon: r.Float64()*10 - 120, MaxLon: r.Float64()*10 - 110,
				}
				index.QueryBox(box)
			case 1:
				center := models.Coordinate{Lat: r.Float64()*20 + 30, Lon: r.Float64()*40 - 120}
				_, err := index.QueryRadius(center, r.Float64()*100_000+10_000)
				assert.NoError(t, err)
			case 2:
				center := models.Coordinate{Lat: r.Float64()*20 + 30, Lon: r.Float64()*40 - 120}
				assert.NotNil(t, index.Nearest(center, r.Intn(50)+1))
			}
		}(i)
	}

	for i := 0; i < 100; i++ {
		<-done
	}
}

func generateRandomEntries(n int) []models.Entry {
	r := rand.New(rand.NewSource(1))
	entries := make([]models.Entry, n)
	for i := 0; i < n; i++ {
		code, _ := grid9.Encode(r.Float64()*20+30, r.Float64()*40-120, false)
		entries[i] = models.Entry{ID: fmt.Sprintf("point_%d", i), Code: code}
	}
	return entries
}

func BenchmarkInsert(b *testing.B) {
	sizes := []int{1000, 10000, 100000}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("%d_entries", size), func(b *testing.B) {
			entries := generateRandomEntries(size)
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_ = NewCodeIndex().Insert(entries)
			}
		})
	}
}

func BenchmarkQueryRadius(b *testing.B) {
	index := NewCodeIndex()
	_ = index.Insert(generateRandomEntries(100000))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = index.QueryRadius(models.Coordinate{Lat: 37.5, Lon: -112.5}, 50_000)
	}
}
