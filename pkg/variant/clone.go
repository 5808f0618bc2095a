package variant

import (
	"reflect"
)

// cloneOf returns a deep copy of v. Types that provide `Clone() T` are copied through
// that method. Cyclic pointer graphs are not supported.
func cloneOf[T any](v T) T {
	src := reflect.ValueOf(&v).Elem()
	dst := reflect.New(src.Type())
	dst.Elem().Set(deepCopy(src))
	return *(dst.Interface().(*T))
}

func deepCopy(v reflect.Value) reflect.Value {
	t := v.Type()

	switch v.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(t)
		}
	}

	if v.Kind() != reflect.Interface {
		if c, ok := cloneMethod(v); ok {
			return c
		}
	}

	switch v.Kind() {
	case reflect.Slice:
		out := reflect.MakeSlice(t, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out

	case reflect.Map:
		out := reflect.MakeMapWithSize(t, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(deepCopy(iter.Key()), deepCopy(iter.Value()))
		}
		return out

	case reflect.Pointer:
		out := reflect.New(t.Elem())
		out.Elem().Set(deepCopy(v.Elem()))
		return out

	case reflect.Array:
		out := reflect.New(t).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out

	case reflect.Struct:
		out := reflect.New(t).Elem()
		// unexported fields keep their shallow copy
		out.Set(v)
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).IsExported() {
				out.Field(i).Set(deepCopy(v.Field(i)))
			}
		}
		return out

	case reflect.Interface:
		out := reflect.New(t).Elem()
		out.Set(deepCopy(v.Elem()))
		return out

	default:
		out := reflect.New(t).Elem()
		out.Set(v)
		return out
	}
}

// cloneMethod calls a `Clone() T` method when the value's type has one
func cloneMethod(v reflect.Value) (reflect.Value, bool) {
	if !v.CanInterface() {
		return reflect.Value{}, false
	}
	m := v.MethodByName("Clone")
	if !m.IsValid() {
		return reflect.Value{}, false
	}
	mt := m.Type()
	if mt.NumIn() != 0 || mt.NumOut() != 1 || mt.Out(0) != v.Type() {
		return reflect.Value{}, false
	}
	return m.Call(nil)[0], true
}
