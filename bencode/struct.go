package bencode

import (
	"fmt"
	"reflect"
)

// fieldTag returns the bencode key for a struct field, honoring a
// `bencode:"piece length"` tag (needed for keys containing a space) and
// falling back to the field name unchanged.
func fieldTag(f reflect.StructField) (key string, skip bool) {
	tag := f.Tag.Get("bencode")
	if tag == "-" {
		return "", true
	}
	if tag != "" {
		return tag, false
	}
	return f.Name, false
}

// MarshalValue converts a struct (or pointer to struct) into a bencode
// dictionary Value using its `bencode` struct tags as keys. Field order in
// the Go struct is irrelevant: Encode always sorts keys, which is the
// property that keeps info_hash stable regardless of declaration order.
func MarshalValue(in any) (Value, error) {
	rv := reflect.ValueOf(in)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return Value{}, fmt.Errorf("bencode: cannot marshal nil pointer")
		}
		rv = rv.Elem()
	}
	return marshalReflect(rv)
}

func marshalReflect(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Struct:
		rt := rv.Type()
		var entries []DictEntry
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			if f.PkgPath != "" { // unexported
				continue
			}
			key, skip := fieldTag(f)
			if skip {
				continue
			}
			val, err := marshalReflect(rv.Field(i))
			if err != nil {
				return Value{}, fmt.Errorf("bencode: field %s: %w", f.Name, err)
			}
			entries = append(entries, DictEntry{Key: key, Val: val})
		}
		return Dict(entries...), nil
	case reflect.String:
		return String([]byte(rv.String())), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return String(append([]byte(nil), rv.Bytes()...)), nil
		}
		items := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			v, err := marshalReflect(rv.Index(i))
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return List(items...), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Int(int64(rv.Uint())), nil
	default:
		return Value{}, fmt.Errorf("bencode: unsupported kind %s", rv.Kind())
	}
}

// UnmarshalValue populates out (a pointer to struct) from a decoded
// dictionary Value, matching dictionary keys to `bencode` struct tags.
func UnmarshalValue(v Value, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("bencode: Unmarshal target must be a non-nil pointer")
	}
	return unmarshalReflect(v, rv.Elem())
}

func unmarshalReflect(v Value, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Struct:
		if v.Kind != KindDict {
			return fmt.Errorf("bencode: expected dictionary for struct %s", rv.Type())
		}
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			if f.PkgPath != "" {
				continue
			}
			key, skip := fieldTag(f)
			if skip {
				continue
			}
			fv, ok := v.Get(key)
			if !ok {
				continue
			}
			if err := unmarshalReflect(fv, rv.Field(i)); err != nil {
				return fmt.Errorf("bencode: field %s: %w", f.Name, err)
			}
		}
		return nil
	case reflect.String:
		if v.Kind != KindString {
			return fmt.Errorf("bencode: expected byte string, got kind %d", v.Kind)
		}
		rv.SetString(string(v.Str))
		return nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			if v.Kind != KindString {
				return fmt.Errorf("bencode: expected byte string for []byte field")
			}
			rv.SetBytes(append([]byte(nil), v.Str...))
			return nil
		}
		if v.Kind != KindList {
			return fmt.Errorf("bencode: expected list")
		}
		out := reflect.MakeSlice(rv.Type(), len(v.List), len(v.List))
		for i, item := range v.List {
			if err := unmarshalReflect(item, out.Index(i)); err != nil {
				return err
			}
		}
		rv.Set(out)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.Kind != KindInt {
			return fmt.Errorf("bencode: expected integer")
		}
		rv.SetInt(v.Int)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if v.Kind != KindInt {
			return fmt.Errorf("bencode: expected integer")
		}
		rv.SetUint(uint64(v.Int))
		return nil
	default:
		return fmt.Errorf("bencode: unsupported kind %s", rv.Kind())
	}
}

// Marshal encodes a struct directly to bencode bytes with sorted keys.
func Marshal(in any) ([]byte, error) {
	v, err := MarshalValue(in)
	if err != nil {
		return nil, err
	}
	return Encode(v), nil
}

// Unmarshal decodes bencode bytes into a pointer-to-struct target.
func Unmarshal(b []byte, out any) error {
	v, err := DecodeFull(b)
	if err != nil {
		return err
	}
	return UnmarshalValue(v, out)
}
