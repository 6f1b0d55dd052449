// Package grid9 compresses a latitude/longitude pair into a fixed 9-character
// code with uniform positional precision worldwide, and back.
//
// A code is a 45-bit integer written as 9 base-32 symbols. The upper 22 bits
// hold the quantized latitude and the lower 23 bits the quantized longitude,
// which gives cells of roughly 2.4m by 4.8m at the equator.
package grid9

import "strings"

const (
	// Alphabet is the 32-symbol code alphabet. I, L, O and U are left out
	// because they are easily confused with 1, 0 and V.
	Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

	LatBits = 22
	LonBits = 23
	LatMax  = 1<<LatBits - 1
	LonMax  = 1<<LonBits - 1

	// CodeLength is the length of a canonical code.
	CodeLength = 9
	// FormattedLength is the length of a code in XXX-XXX-XXX form.
	FormattedLength = 11

	EarthRadiusM    = 6371000.0
	MetersPerDegree = 111320.0

	symbolBits = 5
	symbolMask = 1<<symbolBits - 1
)

// alphabetIndex maps a byte to its alphabet position, -1 when absent.
var alphabetIndex = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		t[Alphabet[i]] = int8(i)
	}
	return t
}()

// Encode converts a coordinate into a grid9 code. With humanReadable set the
// code is returned as XXX-XXX-XXX.
func Encode(lat, lon float64, humanReadable bool) (string, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return "", err
	}

	latBits := quantize((lat+90)/180, LatMax)
	lonBits := quantize((lon+180)/360, LonMax)

	code := pack(latBits, lonBits)
	if humanReadable {
		return FormatForHumans(code), nil
	}
	return code, nil
}

// Decode converts a grid9 code, with or without dashes, back into the
// south-west corner of its quantization cell.
func Decode(code string) (lat, lon float64, err error) {
	latBits, lonBits, err := unpack(code)
	if err != nil {
		return 0, 0, err
	}

	lat = float64(latBits)/LatMax*180 - 90
	lon = float64(lonBits)/LonMax*360 - 180
	return lat, lon, nil
}

// snapEpsilon absorbs the rounding error of a decode so that a decoded
// value quantizes back into its own cell.
const snapEpsilon = 1e-9

// quantize scales norm in [0, 1] onto [0, max], truncating toward zero.
// The clamp covers the exact upper bound (lat=90, lon=180).
func quantize(norm float64, max uint64) uint64 {
	q := norm * float64(max)
	bits := uint64(q)
	if float64(bits+1)-q < snapEpsilon {
		bits++
	}
	if bits > max {
		bits = max
	}
	return bits
}

// pack writes the two bit fields as 9 symbols, most significant first.
func pack(latBits, lonBits uint64) string {
	packed := latBits<<LonBits | lonBits

	var buf [CodeLength]byte
	for i := CodeLength - 1; i >= 0; i-- {
		buf[i] = Alphabet[packed&symbolMask]
		packed >>= symbolBits
	}
	return string(buf[:])
}

// unpack validates a code and splits it into its bit fields.
func unpack(code string) (latBits, lonBits uint64, err error) {
	clean := RemoveFormatting(code)
	if err := validateCode(clean); err != nil {
		return 0, 0, err
	}

	var packed uint64
	for i := 0; i < len(clean); i++ {
		packed = packed<<symbolBits | uint64(alphabetIndex[clean[i]])
	}
	return (packed >> LonBits) & LatMax, packed & LonMax, nil
}

// ValidateCoordinates checks the latitude first, then the longitude.
// NaN is rejected for both.
func ValidateCoordinates(lat, lon float64) error {
	if !(lat >= -90 && lat <= 90) {
		return invalidLatitude(lat)
	}
	if !(lon >= -180 && lon <= 180) {
		return invalidLongitude(lon)
	}
	return nil
}

// validateCode checks an undashed code. On success the code is pure ASCII.
func validateCode(s string) error {
	if s == "" {
		return EmptyInput()
	}
	if n := len([]rune(s)); n != CodeLength {
		return invalidLength(n)
	}
	for _, r := range s {
		if r >= 0x80 || alphabetIndex[r] < 0 {
			return invalidCharacter(r)
		}
	}
	return nil
}

// RemoveFormatting deletes every dash from s. It does not validate.
func RemoveFormatting(s string) string {
	return strings.ReplaceAll(s, "-", "")
}
