package grid9

// Neighbors returns the codes of the cells surrounding code, at most 8.
// Longitude wraps across the antimeridian; latitude stops at the poles.
// The result is in canonical form regardless of the input's formatting.
func Neighbors(code string) ([]string, error) {
	latBits, lonBits, err := unpack(code)
	if err != nil {
		return nil, err
	}

	self := pack(latBits, lonBits)
	seen := map[string]struct{}{self: {}}
	neighbors := make([]string, 0, 8)

	for dLat := int64(-1); dLat <= 1; dLat++ {
		lat := int64(latBits) + dLat
		if lat < 0 || lat > LatMax {
			continue
		}
		for dLon := int64(-1); dLon <= 1; dLon++ {
			lon := (int64(lonBits) + dLon + LonMax + 1) % (LonMax + 1)
			n := pack(uint64(lat), uint64(lon))
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			neighbors = append(neighbors, n)
		}
	}

	return neighbors, nil
}
