package codec

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
)

var (
	timeType    = reflect.TypeFor[time.Time]()
	encoderType = reflect.TypeFor[query.Encoder]()
)

// ErrUnsupportedQuery is returned when a value cannot be encoded as a query.
var ErrUnsupportedQuery = errors.New("codec: unsupported query value")

// EncodeQuery encodes v as a query string without the leading "?". Keys are
// sorted. Nested maps encode as a[b]=c and slices as a[]=1&a[]=2. Structs are
// encoded with github.com/google/go-querystring, honoring `url` tags; slice
// fields without a list format option get brackets too. Keys of url.Values
// and map[string][]string holding more than one value are bracketed.
func EncodeQuery(v any) (string, error) {
	if v == nil {
		return "", nil
	}

	switch q := v.(type) {
	case url.Values:
		return bracketLists(q).Encode(), nil
	case map[string]string:
		vals := make(url.Values, len(q))
		for k, s := range q {
			vals.Set(k, s)
		}
		return vals.Encode(), nil
	case map[string][]string:
		return bracketLists(q).Encode(), nil
	}

	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return "", nil
	}

	vals := make(url.Values)
	switch rv.Kind() {
	case reflect.Map:
		if err := flattenMap("", rv, vals); err != nil {
			return "", err
		}
	case reflect.Struct:
		if err := flattenStruct("", rv, vals); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedQuery, v)
	}

	return vals.Encode(), nil
}

func flatten(key string, rv reflect.Value, vals url.Values) error {
	rv = indirect(rv)
	if !rv.IsValid() {
		return nil
	}

	switch rv.Kind() {
	case reflect.Map:
		return flattenMap(key, rv, vals)

	case reflect.Struct:
		return flattenStruct(key, rv, vals)

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			vals.Add(key, string(rv.Bytes()))
			return nil
		}
		for i := range rv.Len() {
			elem := indirect(rv.Index(i))
			sub := key + "[]"
			if k := elem.Kind(); k == reflect.Map || k == reflect.Struct {
				sub = key + "[" + strconv.Itoa(i) + "]"
			}
			if err := flatten(sub, elem, vals); err != nil {
				return err
			}
		}
		return nil

	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return fmt.Errorf("%w: %s has kind %s", ErrUnsupportedQuery, key, rv.Kind())
	}

	vals.Add(key, fmt.Sprint(rv.Interface()))

	return nil
}

func flattenMap(prefix string, rv reflect.Value, vals url.Values) error {
	if rv.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("%w: map key %s", ErrUnsupportedQuery, rv.Type().Key())
	}

	iter := rv.MapRange()
	for iter.Next() {
		if err := flatten(nest(prefix, iter.Key().String()), iter.Value(), vals); err != nil {
			return err
		}
	}

	return nil
}

func flattenStruct(prefix string, rv reflect.Value, vals url.Values) error {
	encoded, err := query.Values(rv.Interface())
	if err != nil {
		return fmt.Errorf("encoding struct: %w", err)
	}

	lists := make(map[string]bool)
	listFields("", rv.Type(), lists)

	for k, vs := range encoded {
		name := k
		if lists[k] {
			name += "[]"
		}
		if prefix != "" {
			name = nestPath(prefix, name)
		}
		vals[name] = append(vals[name], vs...)
	}

	return nil
}

// bracketLists renames keys holding more than one value to key[].
func bracketLists(in map[string][]string) url.Values {
	out := make(url.Values, len(in))
	for k, vs := range in {
		name := k
		if len(vs) > 1 && !strings.HasSuffix(k, "[]") {
			name += "[]"
		}
		out[name] = append(out[name], vs...)
	}

	return out
}

// listFields records the query keys of slice and array fields that
// go-querystring would repeat without brackets. Fields with an explicit
// list format option are left alone.
func listFields(prefix string, t reflect.Type, lists map[string]bool) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() && !f.Anonymous {
			continue
		}

		tag := f.Tag.Get("url")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}

		if f.Anonymous && name == "" && ft.Kind() == reflect.Struct {
			listFields(prefix, ft, lists)
			continue
		}
		if name == "" {
			name = f.Name
		}
		key := nest(prefix, name)

		if f.Type.Implements(encoderType) || reflect.PointerTo(f.Type).Implements(encoderType) {
			continue
		}

		switch ft.Kind() {
		case reflect.Slice, reflect.Array:
			if ft.Elem().Kind() == reflect.Uint8 || listFormat(opts) || f.Tag.Get("del") != "" {
				continue
			}
			lists[key] = true
		case reflect.Struct:
			if ft != timeType {
				listFields(key, ft, lists)
			}
		}
	}
}

func listFormat(opts string) bool {
	for opt := range strings.SplitSeq(opts, ",") {
		switch opt {
		case "comma", "space", "semicolon", "brackets", "numbered":
			return true
		}
	}

	return false
}

func nest(prefix, key string) string {
	if prefix == "" {
		return key
	}

	return prefix + "[" + key + "]"
}

// nestPath places an already bracketed key, such as "a[b]", under prefix.
func nestPath(prefix, key string) string {
	head, rest, found := strings.Cut(key, "[")
	if !found {
		return nest(prefix, key)
	}

	return nest(prefix, head) + "[" + rest
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}

	return rv
}
