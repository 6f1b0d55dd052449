package grid9

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cities = []struct {
	name string
	lat  float64
	lon  float64
}{
	{"New York", 40.7128, -74.0060},
	{"London", 51.5074, -0.1278},
	{"Tokyo", 35.6762, 139.6503},
	{"Null Island", 0, 0},
	{"Sydney", -33.8688, 151.2093},
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, tc := range cities {
		t.Run(tc.name, func(t *testing.T) {
			code, err := Encode(tc.lat, tc.lon, false)
			require.NoError(t, err)
			assert.Len(t, code, CodeLength)

			lat, lon, err := Decode(code)
			require.NoError(t, err)
			assert.InDelta(t, tc.lat, lat, 0.01)
			assert.InDelta(t, tc.lon, lon, 0.01)
		})
	}
}

func TestEncodeKnownCodes(t *testing.T) {
	testCases := []struct {
		lat, lon float64
		expected string
	}{
		{40.7128, -74.0060, "Q7KH2BBYE"},
		{51.5074, -0.1278, "S50M3ZX2X"},
		{90, 180, "ZZZZZZZZZ"},
		{-90, -180, "000000000"},
		{0, 0, "FZZZVZZZZ"},
	}

	for _, tc := range testCases {
		code, err := Encode(tc.lat, tc.lon, false)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, code)
	}
}

func TestEncodeBoundaries(t *testing.T) {
	boundary := [][2]float64{
		{90, 180},
		{-90, -180},
		{89.9, 179.9},
		{-89.9, -179.9},
		{90, -180},
		{-90, 180},
	}

	for _, c := range boundary {
		code, err := Encode(c[0], c[1], false)
		require.NoError(t, err)

		lat, lon, err := Decode(code)
		require.NoError(t, err)
		assert.InDelta(t, c[0], lat, 0.1)
		assert.InDelta(t, c[1], lon, 0.1)
	}
}

func TestEncodeIdempotentAfterQuantization(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 20000; i++ {
		code, err := Encode(r.Float64()*180-90, r.Float64()*360-180, false)
		require.NoError(t, err)

		lat, lon, err := Decode(code)
		require.NoError(t, err)

		again, err := Encode(lat, lon, false)
		require.NoError(t, err)
		require.Equal(t, code, again, "decoded (%v, %v) re-encoded to a different cell", lat, lon)
	}
}

func TestHumanReadable(t *testing.T) {
	compact, err := Encode(40.7128, -74.0060, false)
	require.NoError(t, err)
	readable, err := Encode(40.7128, -74.0060, true)
	require.NoError(t, err)

	assert.Len(t, readable, FormattedLength)
	assert.Equal(t, 2, strings.Count(readable, "-"))
	assert.Equal(t, "Q7K-H2B-BYE", readable)
	assert.True(t, IsFormattedForHumans(readable))
	assert.Equal(t, compact, RemoveFormatting(readable))

	lat1, lon1, err := Decode(compact)
	require.NoError(t, err)
	lat2, lon2, err := Decode(readable)
	require.NoError(t, err)
	assert.Equal(t, lat1, lat2)
	assert.Equal(t, lon1, lon2)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "Q7K-H2B-BYF", FormatForHumans("Q7KH2BBYF"))
	assert.Equal(t, "SHORT", FormatForHumans("SHORT"))
	assert.Equal(t, "", FormatForHumans(""))
	assert.Equal(t, "Q7KH2BBYF", RemoveFormatting("Q7K-H2B-BYF"))
	assert.Equal(t, "ABC", RemoveFormatting("--A-B--C-"))

	assert.False(t, IsFormattedForHumans("Q7KH2BBYF"))
	assert.False(t, IsFormattedForHumans("Q7KH-2BBYF-"))

	for _, code := range []string{"Q7KH2BBYF", "000000000", "ZZZZZZZZZ"} {
		assert.Equal(t, code, RemoveFormatting(FormatForHumans(code)))
	}
}

func TestIsValidEncoding(t *testing.T) {
	testCases := []struct {
		input string
		valid bool
	}{
		{"Q7KH2BBYF", true},
		{"Q7K-H2B-BYF", true},
		{"Q7KH-2BB-YF", true},
		{"", false},
		{"---", false},
		{"INVALID!", false},
		{"TOOLONG12", false},
		{"Q7KH2BBY", false},
		{"Q7KH2BBYFF", false},
		{"q7kh2bbyf", false},
		{"Q7KH2BBYI", false},
		{"Q7KH2BBYé", false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.valid, IsValidEncoding(tc.input))
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	testCases := []struct {
		name     string
		lat, lon float64
		kind     error
	}{
		{"lat too high", 91, 0, ErrInvalidLatitude},
		{"lat too low", -91, 0, ErrInvalidLatitude},
		{"lon too high", 0, 181, ErrInvalidLongitude},
		{"lon too low", 0, -181, ErrInvalidLongitude},
		{"both invalid reports latitude", 100, 200, ErrInvalidLatitude},
		{"lat NaN", math.NaN(), 0, ErrInvalidLatitude},
		{"lon Inf", 0, math.Inf(1), ErrInvalidLongitude},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code, err := Encode(tc.lat, tc.lon, false)
			assert.Empty(t, code)
			assert.ErrorIs(t, err, tc.kind)
		})
	}

	_, err := Encode(91.5, 0, false)
	var gErr *Error
	require.True(t, errors.As(err, &gErr))
	assert.Equal(t, 91.5, gErr.Value)
	assert.Contains(t, err.Error(), "91.5")
}

func TestDecodeErrors(t *testing.T) {
	testCases := []struct {
		input string
		kind  error
	}{
		{"", ErrEmptyInput},
		{"--", ErrEmptyInput},
		{"TOOLONG", ErrInvalidLength},
		{"INVALID!", ErrInvalidLength},
		{"Q7KH2BBYFZ", ErrInvalidLength},
		{"INVALID!!", ErrInvalidCharacter},
		{"Q7KH2BBYé", ErrInvalidCharacter},
		{"q7kh2bbyf", ErrInvalidCharacter},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			_, _, err := Decode(tc.input)
			assert.ErrorIs(t, err, tc.kind)
		})
	}

	// first invalid character from the left
	_, _, err := Decode("Q7IH2BBLF")
	var gErr *Error
	require.True(t, errors.As(err, &gErr))
	assert.Equal(t, 'I', gErr.Char)

	_, _, err = Decode("TOOLONG")
	require.True(t, errors.As(err, &gErr))
	assert.Equal(t, 7, gErr.Length)
}

func TestCalculateDistance(t *testing.T) {
	nyc, err := Encode(40.7128, -74.0060, false)
	require.NoError(t, err)
	london, err := Encode(51.5074, -0.1278, false)
	require.NoError(t, err)

	dist, err := CalculateDistance(nyc, london)
	require.NoError(t, err)
	assert.Greater(t, dist, 5_500_000.0)
	assert.Less(t, dist, 5_600_000.0)

	same, err := CalculateDistance(nyc, FormatForHumans(nyc))
	require.NoError(t, err)
	assert.Zero(t, same)

	_, err = CalculateDistance(nyc, "BAD")
	assert.ErrorIs(t, err, ErrInvalidLength)
	_, err = CalculateDistance("", london)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestHaversine(t *testing.T) {
	testCases := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		expected, delta        float64
	}{
		{"same point", 37.7749, -122.4194, 37.7749, -122.4194, 0, 0.01},
		{"SF to Oakland", 37.7749, -122.4194, 37.8044, -122.2712, 13_400, 500},
		{"SF to LA", 37.7749, -122.4194, 34.0522, -118.2437, 559_000, 5_000},
		{"antipodal", 0, 0, 0, 180, math.Pi * EarthRadiusM, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dist := Haversine(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
			assert.False(t, math.IsNaN(dist))
			assert.InDelta(t, tc.expected, dist, tc.delta)
		})
	}
}

func TestGetActualPrecision(t *testing.T) {
	p, err := GetActualPrecision(40.7128, -74.0060)
	require.NoError(t, err)
	assert.Greater(t, p.LatErrorM, 0.0)
	assert.Greater(t, p.LonErrorM, 0.0)
	assert.Less(t, p.TotalErrorM, 5.0)
	assert.InDelta(t, math.Hypot(p.LatErrorM, p.LonErrorM), p.TotalErrorM, 1e-9)

	equator, err := GetActualPrecision(0, 0)
	require.NoError(t, err)
	assert.Equal(t, p.LatErrorM, equator.LatErrorM)
	assert.Greater(t, equator.LonErrorM, p.LonErrorM)

	// half of one cell, not the whole cell
	latDeg, lonDeg := CellSize()
	assert.InDelta(t, latDeg*MetersPerDegree/2, equator.LatErrorM, 1e-9)
	assert.InDelta(t, lonDeg*MetersPerDegree/2, equator.LonErrorM, 1e-9)
	assert.InDelta(t, math.Hypot(latDeg, lonDeg)*MetersPerDegree/2, equator.TotalErrorM, 1e-9)

	pole, err := GetActualPrecision(90, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0, pole.LonErrorM, 1e-9)

	_, err = GetActualPrecision(-95, 0)
	assert.ErrorIs(t, err, ErrInvalidLatitude)
	_, err = GetActualPrecision(0, 190)
	assert.ErrorIs(t, err, ErrInvalidLongitude)
}

func TestNeighbors(t *testing.T) {
	code, err := Encode(40.7128, -74.0060, false)
	require.NoError(t, err)

	neighbors, err := Neighbors(FormatForHumans(code))
	require.NoError(t, err)
	assert.Len(t, neighbors, 8)
	assert.NotContains(t, neighbors, code)

	for _, n := range neighbors {
		assert.True(t, IsValidEncoding(n))
		dist, err := CalculateDistance(code, n)
		require.NoError(t, err)
		assert.Greater(t, dist, 0.0)
		assert.Less(t, dist, 10.0)
	}

	// no cells beyond the poles
	north, err := Neighbors("ZZZZZZZZZ")
	require.NoError(t, err)
	assert.Len(t, north, 5)
	south, err := Neighbors("000000000")
	require.NoError(t, err)
	assert.Len(t, south, 5)

	_, err = Neighbors("nope")
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func BenchmarkEncode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Encode(40.7128, -74.0060, false)
	}
}

func BenchmarkDecode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _, _ = Decode("Q7KH2BBYE")
	}
}

func BenchmarkCalculateDistance(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = CalculateDistance("Q7KH2BBYE", "S50M3ZX2X")
	}
}
