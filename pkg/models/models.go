package models

// Coordinate represents a geographic location with latitude and longitude in degrees
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Entry is an identified grid9 code
type Entry struct {
	ID   string `json:"id" yaml:"id"`
	Code string `json:"code" yaml:"code"`
}

// BoundingBox represents a rectangular area in degree space
type BoundingBox struct {
	MinLat float64 `json:"min_lat" yaml:"min_lat"`
	MaxLat float64 `json:"max_lat" yaml:"max_lat"`
	MinLon float64 `json:"min_lon" yaml:"min_lon"`
	MaxLon float64 `json:"max_lon" yaml:"max_lon"`
}

// Contains reports whether c lies inside the box, edges included
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat &&
		c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}

// PrecisionInfo describes the quantization error band at a latitude, in meters
type PrecisionInfo struct {
	LatErrorM   float64 `json:"lat_error_m" yaml:"lat_error_m"`
	LonErrorM   float64 `json:"lon_error_m" yaml:"lon_error_m"`
	TotalErrorM float64 `json:"total_error_m" yaml:"total_error_m"`
}
