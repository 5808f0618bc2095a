package variant

import (
	"encoding/json"
	"fmt"
)

// Optional is a value that may be absent
type Optional[T any] struct {
	value T
	ok    bool
}

// Some returns a present Optional
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// None returns an absent Optional
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// IsSome reports whether a value is present
func (o Optional[T]) IsSome() bool {
	return o.ok
}

// OrElse returns the value, or def when absent
func (o Optional[T]) OrElse(def T) T {
	if !o.ok {
		return def
	}
	return o.value
}

// Clone deep-copies the contained value
func (o Optional[T]) Clone() Optional[T] {
	if !o.ok {
		return Optional[T]{}
	}
	return Optional[T]{value: cloneOf(o.value), ok: true}
}

func (o Optional[T]) String() string {
	if !o.ok {
		return "None"
	}
	return fmt.Sprintf("Some(%v)", o.value)
}

// MarshalJSON encodes an absent value as null
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}
