package grid9

// IsValidEncoding reports whether s is a grid9 code, with or without dashes.
func IsValidEncoding(s string) bool {
	return validateCode(RemoveFormatting(s)) == nil
}

// FormatForHumans inserts dashes after the third and sixth characters.
// Input that is not exactly 9 characters is returned unchanged.
func FormatForHumans(code string) string {
	r := []rune(code)
	if len(r) != CodeLength {
		return code
	}
	return string(r[0:3]) + "-" + string(r[3:6]) + "-" + string(r[6:9])
}

// IsFormattedForHumans reports whether s has the XXX-XXX-XXX shape.
func IsFormattedForHumans(s string) bool {
	return len(s) == FormattedLength && s[3] == '-' && s[7] == '-'
}
