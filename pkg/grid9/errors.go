package grid9

import (
	"errors"
	"fmt"
)

// Error kinds. Every fallible operation in this package fails with exactly
// one of these, reachable through errors.Is.
var (
	// ErrInvalidLatitude indicates a latitude outside [-90, 90].
	ErrInvalidLatitude = errors.New("invalid latitude")

	// ErrInvalidLongitude indicates a longitude outside [-180, 180].
	ErrInvalidLongitude = errors.New("invalid longitude")

	// ErrInvalidLength indicates a code that is not 9 characters once dashes are removed.
	ErrInvalidLength = errors.New("invalid encoded string length")

	// ErrInvalidCharacter indicates a character outside the grid9 alphabet.
	ErrInvalidCharacter = errors.New("invalid character in encoded string")

	// ErrEmptyInput indicates an empty code or an empty coordinate collection.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidRadius indicates a search radius that is not strictly positive.
	ErrInvalidRadius = errors.New("invalid radius")
)

// Error carries the offending value alongside its kind.
type Error struct {
	Kind   error
	Value  float64
	Length int
	Char   rune
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrInvalidLatitude:
		return fmt.Sprintf("%v: %v (must be between -90 and 90)", e.Kind, e.Value)
	case ErrInvalidLongitude:
		return fmt.Sprintf("%v: %v (must be between -180 and 180)", e.Kind, e.Value)
	case ErrInvalidLength:
		return fmt.Sprintf("%v: %d (must be %d characters)", e.Kind, e.Length, CodeLength)
	case ErrInvalidCharacter:
		return fmt.Sprintf("%v: %q", e.Kind, e.Char)
	case ErrInvalidRadius:
		return fmt.Sprintf("%v: %v (must be greater than 0)", e.Kind, e.Value)
	default:
		return e.Kind.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func invalidLatitude(v float64) error  { return &Error{Kind: ErrInvalidLatitude, Value: v} }
func invalidLongitude(v float64) error { return &Error{Kind: ErrInvalidLongitude, Value: v} }
func invalidLength(n int) error        { return &Error{Kind: ErrInvalidLength, Length: n} }
func invalidCharacter(c rune) error    { return &Error{Kind: ErrInvalidCharacter, Char: c} }

// EmptyInput returns the error reported for empty codes and empty collections.
func EmptyInput() error { return &Error{Kind: ErrEmptyInput} }

// InvalidRadius returns the error reported for non-positive search radii.
func InvalidRadius(r float64) error { return &Error{Kind: ErrInvalidRadius, Value: r} }
