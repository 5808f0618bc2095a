package variant

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// payload is the type-erased value held by a Variant. Each concrete box knows how to
// clone itself, which is the only way a Variant is ever copied.
type payload interface {
	clone() payload
	value() any
}

type box[T any] struct {
	v T
}

func (b *box[T]) clone() payload {
	return &box[T]{v: cloneOf(b.v)}
}

func (b *box[T]) value() any {
	return b.v
}

// Unit is the payload of an empty Variant
type Unit struct{}

var unitType = reflect.TypeFor[Unit]()

// Variant holds one value together with the runtime tag of its concrete type.
//
// A Variant is a handle: assigning it copies the handle, not the payload. Use Clone
// to obtain an independent value. The zero Variant is empty.
type Variant struct {
	payload payload
	tag     reflect.Type
}

// Wrap stores value and its type tag. It always succeeds.
func Wrap[T any](value T) Variant {
	return Variant{
		payload: &box[T]{v: value},
		tag:     reflect.TypeFor[T](),
	}
}

// Empty returns the canonical "no value" Variant
func Empty() Variant {
	return Wrap(Unit{})
}

// Get returns an independent copy of the payload when v holds exactly T
func Get[T any](v Variant) (T, error) {
	b, err := unwrap[T](v)
	if err != nil {
		var zero T
		return zero, err
	}
	return cloneOf(b.v), nil
}

// Ref returns a pointer to the payload when v holds exactly T. The pointer is valid
// for as long as v (or any handle copied from it) is alive; callers must treat it as
// read-only.
func Ref[T any](v Variant) (*T, error) {
	b, err := unwrap[T](v)
	if err != nil {
		return nil, err
	}
	return &b.v, nil
}

// MustGet is like Get but panics on a type mismatch. Intended for tests and for
// values whose shape was checked with Is.
func MustGet[T any](v Variant) T {
	val, err := Get[T](v)
	if err != nil {
		panic(err)
	}
	return val
}

// Is reports whether v holds exactly T
func Is[T any](v Variant) bool {
	return v.tag == reflect.TypeFor[T]()
}

func unwrap[T any](v Variant) (*box[T], error) {
	want := reflect.TypeFor[T]()
	if v.tag != want {
		return nil, &ConversionError{Want: want, Got: v.tag}
	}
	b, ok := v.payload.(*box[T])
	if !ok {
		return nil, &ConversionError{Want: want, Got: v.tag}
	}
	return b, nil
}

// Clone returns an independent Variant with the same tag and contents
func (v Variant) Clone() Variant {
	if v.payload == nil {
		return Variant{}
	}
	return Variant{
		payload: v.payload.clone(),
		tag:     v.tag,
	}
}

// Type returns the runtime tag, or nil for the zero Variant
func (v Variant) Type() reflect.Type {
	return v.tag
}

// IsEmpty reports whether v carries no value
func (v Variant) IsEmpty() bool {
	return v.payload == nil || v.tag == unitType
}

// Any returns the payload as an interface value, nil when empty
func (v Variant) Any() any {
	if v.IsEmpty() {
		return nil
	}
	return v.payload.value()
}

// Equal reports whether both variants have the same tag and deeply equal contents
func (v Variant) Equal(other Variant) bool {
	if v.tag != other.tag {
		return false
	}
	if v.payload == nil || other.payload == nil {
		return v.payload == nil && other.payload == nil
	}
	return reflect.DeepEqual(v.payload.value(), other.payload.value())
}

func (v Variant) String() string {
	if v.IsEmpty() {
		return "<empty>"
	}
	return fmt.Sprintf("%v", v.payload.value())
}

// MarshalJSON encodes the payload; an empty Variant encodes as null
func (v Variant) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}
