// Package deepcopy copies values reflectively so that records handed out by
// in-process engines never share maps or slices with stored state.
package deepcopy

import "reflect"

// Clone returns a deep copy of value. Unexported struct fields are left at
// their zero value.
func Clone[T any](value T) T {
	var zero T
	src := reflect.ValueOf(&value).Elem()
	cloned := cloneValue(src)
	if !cloned.IsValid() {
		return zero
	}
	out := reflect.New(src.Type()).Elem()
	out.Set(cloned)
	typed, ok := out.Interface().(T)
	if !ok {
		return zero
	}
	return typed
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.New(v.Type().Elem())
		clone.Elem().Set(cloneValue(v.Elem()))
		return clone
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := cloneValue(v.Elem())
		out := reflect.New(v.Type()).Elem()
		out.Set(elem)
		return out
	case reflect.Struct:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			field := clone.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(cloneValue(v.Field(i)))
		}
		return clone
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	case reflect.Array:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	default:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		return out
	}
}
