// Package variant provides a type-erased, runtime-checked value container.
//
// # Overview
//
// Plugins are bound at run time and share no static types with the daemon, so values
// that travel between them (plugin data, pass-through flags, structured test failures)
// are carried as a Variant. Construction always succeeds; the type check happens at the
// read site and fails closed with a ConversionError.
//
// # Supported Shapes
//
// Booleans, signed and unsigned integers, strings, slices, Optional[T], string-keyed
// maps and fixed-arity tuples (Tuple1 through Tuple12) of any of those shapes.
//
// # Usage Example
//
//	v := variant.Wrap([]int32{1, 2, 3})
//
//	xs, err := variant.Ref[[]int32](v) // *[]int32 pointing at the payload
//	if err != nil {
//		return err
//	}
//
//	_, err = variant.Get[int32](v) // ConversionError: holds []int32
//
//	c := v.Clone() // independent deep copy, same type tag
//
// # Cloning
//
// Clone goes through the payload's own clone operation. Slices, maps, pointers,
// arrays and structs with exported fields are copied deeply; any type with a
// `Clone() T` method (Variant, Optional) is copied through that method.
package variant
