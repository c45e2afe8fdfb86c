package cif

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Unmarshal parses a CIF document and decodes its first data block into the
// value pointed to by v. If v is not a pointer to a struct, Unmarshal
// returns an error.
//
// Unmarshal uses struct tags to map CIF tags to struct fields:
//   - `cif:"_cell.length_a"` - maps the item (or single-row loop column) to this field
//   - `cif:"_cell.length_a,required"` - fails if the tag is absent
//   - `cif:"-"` - ignores this field
//
// A slice of structs is filled from a loop, one element per row. The loop is
// the one holding the slice's own tag, or else the one holding the first
// tagged field of the element struct. A slice of scalars takes a column.
//
// Example:
//
//	type AtomSite struct {
//	    Label string  `cif:"_atom_site_label"`
//	    X     float64 `cif:"_atom_site_fract_x"`
//	}
//	type Structure struct {
//	    A     float64    `cif:"_cell_length_a"`
//	    Title *string    `cif:"_title"`
//	    Atoms []AtomSite
//	}
//
// Unknown (?) and not-applicable (.) values leave the field at its zero
// value; pointer fields stay nil.
func Unmarshal(data []byte, v any) error {
	doc, err := Parse(string(data))
	if err != nil {
		return err
	}
	block := doc.First()
	if block == nil {
		return fmt.Errorf("document has no data block")
	}
	return UnmarshalScope(block, v)
}

// UnmarshalScope decodes the items and loops of a block or save frame into v.
func UnmarshalScope(s Scope, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("unmarshal target must be a non-nil pointer")
	}

	elem := rv.Elem()
	if elem.Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal target must be a pointer to struct")
	}

	return unmarshalStruct(scopeSource{s}, elem)
}

// source is where a struct's fields are looked up: a scope, or a loop row.
type source interface {
	value(tag string) (Value, bool)
	loop(tag string) *Loop
}

type scopeSource struct{ s Scope }

func (src scopeSource) value(tag string) (Value, bool) {
	if v, ok := src.s.Item(tag); ok {
		return v, true
	}
	// Single-row categories are often written as a loop.
	if l := src.s.FindLoop(tag); l != nil && l.Len() == 1 {
		v, err := l.Get(0, l.ColumnIndex(tag))
		return v, err == nil
	}
	return Value{}, false
}

func (src scopeSource) loop(tag string) *Loop { return src.s.FindLoop(tag) }

type rowSource struct {
	l   *Loop
	row int
}

func (src rowSource) value(tag string) (Value, bool) {
	col := src.l.ColumnIndex(tag)
	if col < 0 {
		return Value{}, false
	}
	v, err := src.l.Get(src.row, col)
	return v, err == nil
}

func (src rowSource) loop(string) *Loop { return nil }

var valueType = reflect.TypeOf(Value{})

// unmarshalStruct fills the fields of struct v from src.
func unmarshalStruct(src source, v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		// Skip unexported fields
		if !fieldValue.CanSet() {
			continue
		}

		tag := field.Tag.Get("cif")
		if tag == "-" {
			continue
		}
		tagName, opts := parseTag(tag)

		if fieldValue.Kind() == reflect.Slice && fieldValue.Type().Elem() != valueType {
			found, err := setLoop(src, fieldValue, tagName)
			if err != nil {
				return fmt.Errorf("field %s: %v", field.Name, err)
			}
			if !found && hasOption(opts, "required") {
				return fmt.Errorf("required loop for field %s not found", field.Name)
			}
			continue
		}

		if tagName == "" {
			continue
		}

		value, ok := src.value(tagName)
		if !ok {
			if hasOption(opts, "required") {
				return fmt.Errorf("required tag %s not found", tagName)
			}
			continue
		}

		if err := setField(fieldValue, value); err != nil {
			return fmt.Errorf("field %s (%s): %v", field.Name, tagName, err)
		}
	}

	return nil
}

// setLoop fills a slice field from a loop. It reports whether a loop was found.
func setLoop(src source, field reflect.Value, tagName string) (bool, error) {
	elemType := field.Type().Elem()
	structType := elemType
	if structType.Kind() == reflect.Ptr {
		structType = structType.Elem()
	}

	if structType.Kind() != reflect.Struct {
		// A slice of scalars is a single column.
		if tagName == "" {
			return false, nil
		}
		l := src.loop(tagName)
		if l == nil {
			return false, nil
		}
		column, _ := l.Column(tagName)
		slice := reflect.MakeSlice(field.Type(), len(column), len(column))
		for i, value := range column {
			if err := setField(slice.Index(i), value); err != nil {
				return true, fmt.Errorf("row %d: %v", i, err)
			}
		}
		field.Set(slice)
		return true, nil
	}

	lookup := tagName
	if lookup == "" {
		lookup = firstTag(structType)
	}
	if lookup == "" {
		return false, nil
	}
	l := src.loop(lookup)
	if l == nil {
		return false, nil
	}

	slice := reflect.MakeSlice(field.Type(), l.Len(), l.Len())
	for row := 0; row < l.Len(); row++ {
		elem := slice.Index(row)
		if elemType.Kind() == reflect.Ptr {
			elem.Set(reflect.New(structType))
			elem = elem.Elem()
		}
		if err := unmarshalStruct(rowSource{l: l, row: row}, elem); err != nil {
			return true, fmt.Errorf("row %d: %v", row, err)
		}
	}
	field.Set(slice)
	return true, nil
}

// firstTag returns the first cif tag declared on the fields of t.
func firstTag(t reflect.Type) string {
	for i := 0; i < t.NumField(); i++ {
		name, _ := parseTag(t.Field(i).Tag.Get("cif"))
		if name != "" && name != "-" {
			return name
		}
	}
	return ""
}

// setField sets a reflect.Value from a CIF value.
func setField(field reflect.Value, value Value) error {
	if field.Type() == valueType {
		field.Set(reflect.ValueOf(value))
		return nil
	}
	if field.Kind() == reflect.Ptr && field.Type().Elem() == valueType {
		return setPointer(field, value)
	}

	if value.IsUnknown() || value.IsNotApplicable() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		if s, ok := value.Text(); ok {
			field.SetString(s)
		} else {
			field.SetString(value.String())
		}
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return setInt(field, value)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return setUint(field, value)
	case reflect.Float32, reflect.Float64:
		return setFloat(field, value)
	case reflect.Bool:
		return setBool(field, value)
	case reflect.Ptr:
		return setPointer(field, value)
	case reflect.Interface:
		if field.NumMethod() > 0 {
			return fmt.Errorf("unsupported interface type: %s", field.Type())
		}
		field.Set(reflect.ValueOf(value.Interface()))
		return nil
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
}

func setInt(field reflect.Value, value Value) error {
	f, ok := value.Float()
	if !ok || f != math.Trunc(f) {
		return fmt.Errorf("cannot convert %s value %q to int", value.TypeName(), value.String())
	}
	if f < math.MinInt64 || f >= math.MaxInt64 || field.OverflowInt(int64(f)) {
		return fmt.Errorf("value %s overflows %s", value.String(), field.Type())
	}
	field.SetInt(int64(f))
	return nil
}

func setUint(field reflect.Value, value Value) error {
	f, ok := value.Float()
	if !ok || f != math.Trunc(f) || f < 0 {
		return fmt.Errorf("cannot convert %s value %q to uint", value.TypeName(), value.String())
	}
	if f >= math.MaxUint64 || field.OverflowUint(uint64(f)) {
		return fmt.Errorf("value %s overflows %s", value.String(), field.Type())
	}
	field.SetUint(uint64(f))
	return nil
}

func setFloat(field reflect.Value, value Value) error {
	f, ok := value.Float()
	if !ok {
		return fmt.Errorf("cannot convert %s value %q to float", value.TypeName(), value.String())
	}
	if field.OverflowFloat(f) {
		return fmt.Errorf("value %s overflows %s", value.String(), field.Type())
	}
	field.SetFloat(f)
	return nil
}

func setBool(field reflect.Value, value Value) error {
	if f, ok := value.Float(); ok {
		switch f {
		case 0:
			field.SetBool(false)
			return nil
		case 1:
			field.SetBool(true)
			return nil
		}
		return fmt.Errorf("cannot parse %s as bool", value.String())
	}
	s, _ := value.Text()
	b, err := parseBool(s)
	if err != nil {
		return fmt.Errorf("cannot parse as bool: %v", err)
	}
	field.SetBool(b)
	return nil
}

func setPointer(field reflect.Value, value Value) error {
	ptr := reflect.New(field.Type().Elem())
	if err := setField(ptr.Elem(), value); err != nil {
		return err
	}
	field.Set(ptr)
	return nil
}

// Helper functions

func parseTag(tag string) (string, []string) {
	parts := strings.Split(tag, ",")
	return parts[0], parts[1:]
}

func hasOption(opts []string, option string) bool {
	for _, opt := range opts {
		if opt == option {
			return true
		}
	}
	return false
}

// parseBool accepts the spellings found in CIF dictionaries (y/n, yes/no)
// as well as true/false.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "on":
		return true, nil
	case "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value: %s", s)
	}
}
