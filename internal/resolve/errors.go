package resolve

import (
	"errors"
	"fmt"
)

var (
	// ErrFieldUnavailable marks a field that could not be found in its
	// payload. It never fails a lookup, the field is left empty.
	ErrFieldUnavailable = errors.New("field unavailable")
	// ErrMalformedData marks a payload that broke a structural assumption,
	// it fails the lookup.
	ErrMalformedData = errors.New("malformed data")
)

// Unavailable wraps ErrFieldUnavailable with the field name.
func Unavailable(field string) error {
	return fmt.Errorf("%w: %s", ErrFieldUnavailable, field)
}

func missing(fields ...[2]string) []string {
	var out []string
	for _, f := range fields {
		if f[1] == "" {
			out = append(out, f[0])
		}
	}
	return out
}
