package debugs

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/reusee/starlarkutil"
	"github.com/reusee/tairepl/taiword"
	"go.starlark.net/starlark"
)

// toStarlarkValue converts session state for inspection.
// Structs become dicts keyed by exported field names. Values with no starlark counterpart are rendered with fmt.
func toStarlarkValue(v any) starlark.Value {
	switch v := v.(type) {

	case nil:
		return starlark.None
	case starlark.Value:
		return v

	case taiword.Word:
		return wordValue(v)
	case taiword.Type:
		return starlark.String(v.String())
	case uuid.UUID:
		return starlark.String(v.String())
	case *taiword.Object:
		if v == nil {
			return starlark.None
		}
		fields := make([]starlark.Value, len(v.Fields))
		for i, w := range v.Fields {
			fields[i] = wordValue(w)
		}
		d := starlark.NewDict(4)
		d.SetKey(starlark.String("class"), starlark.String(v.Class))
		d.SetKey(starlark.String("class_id"), starlark.MakeInt64(v.ClassID))
		d.SetKey(starlark.String("addr"), starlark.MakeUint(uint(v.Addr)))
		d.SetKey(starlark.String("fields"), starlark.NewList(fields))
		return d

	case []byte:
		return starlark.Bytes(v)
	case error:
		return starlark.String(v.Error())
	}

	value := reflect.ValueOf(v)
	switch value.Kind() {

	case reflect.Bool:
		return starlark.Bool(value.Bool())
	case reflect.String:
		return starlark.String(value.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return starlark.MakeInt64(value.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return starlark.MakeUint64(value.Uint())
	case reflect.Float32, reflect.Float64:
		return starlark.Float(value.Float())

	case reflect.Slice, reflect.Array:
		elems := make([]starlark.Value, value.Len())
		for i := range elems {
			elems[i] = toStarlarkValue(value.Index(i).Interface())
		}
		return starlark.NewList(elems)

	case reflect.Map:
		d := starlark.NewDict(value.Len())
		iter := value.MapRange()
		for iter.Next() {
			d.SetKey(
				toStarlarkValue(iter.Key().Interface()),
				toStarlarkValue(iter.Value().Interface()),
			)
		}
		return d

	case reflect.Struct:
		typ := value.Type()
		d := starlark.NewDict(typ.NumField())
		for i := range typ.NumField() {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			d.SetKey(
				starlark.String(field.Name),
				toStarlarkValue(value.Field(i).Interface()),
			)
		}
		return d

	case reflect.Pointer, reflect.Interface:
		elem := value.Elem()
		if !elem.IsValid() {
			return starlark.None
		}
		return toStarlarkValue(elem.Interface())

	case reflect.Func:
		return starlarkutil.MakeFunc("", value.Interface())

	}

	return starlark.String(fmt.Sprint(v))
}

// wordValue exposes immediates as their integer payload and references as raw words.
func wordValue(w taiword.Word) starlark.Value {
	if w.IsImmediate() {
		return starlark.MakeInt64(w.Int())
	}
	return starlark.MakeUint(uint(w))
}
