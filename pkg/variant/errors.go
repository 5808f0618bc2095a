package variant

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrConversion is matched by every ConversionError
var ErrConversion = errors.New("conversion failed")

// ConversionError is returned when a Variant is read as a type other than the one it holds
type ConversionError struct {
	Want reflect.Type
	Got  reflect.Type
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion failed: variant holds %s, requested %s", typeName(e.Got), typeName(e.Want))
}

// Is reports whether target is ErrConversion
func (e *ConversionError) Is(target error) bool {
	return target == ErrConversion
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
