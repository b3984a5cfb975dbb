// FILE: lixenwraith/profile/register.go
package profile

import (
	"fmt"
	"reflect"
	"strings"
)

// DefaultsSourceName names the source built from a defaults struct.
const DefaultsSourceName = "defaults"

// NewDefaultsSource builds an in-memory source from a struct using its toml
// tags. Nested structs become sections, slices repeat their relation and
// every other exported field becomes a relation.
func NewDefaultsSource(structWithDefaults any) (*Source, error) {
	v := reflect.ValueOf(structWithDefaults)

	// Handle pointer or direct struct value
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, fmt.Errorf("defaults require a non-nil struct pointer or value")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("defaults require a struct or struct pointer, got %T", structWithDefaults)
	}

	root, _ := NewSection(rootName)
	var errors []string
	registerFields(root, v, "", &errors)
	if len(errors) > 0 {
		root.Destroy()
		return nil, fmt.Errorf("failed to register %d field(s): %s", len(errors), strings.Join(errors, "; "))
	}
	return NewSource(DefaultsSourceName, root), nil
}

// registerFields adds the fields of v under section.
func registerFields(section *Node, v reflect.Value, fieldPath string, errors *[]string) {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("toml")
		if tag == "-" {
			continue
		}
		key := field.Name
		if tag != "" {
			if parts := strings.Split(tag, ","); parts[0] != "" {
				key = parts[0]
			}
		}

		// Dereference pointers; nil pointers have no default to offer
		if fieldValue.Kind() == reflect.Ptr {
			if fieldValue.IsNil() {
				continue
			}
			fieldValue = fieldValue.Elem()
		}

		switch {
		case fieldValue.Kind() == reflect.Struct && !isScalarStruct(fieldValue):
			name, final := sectionKey(key)
			child, err := section.AddSection(name)
			if err != nil {
				*errors = append(*errors, fmt.Sprintf("field %s%s: %v", fieldPath, field.Name, err))
				continue
			}
			child.final = final
			registerFields(child, fieldValue, fieldPath+field.Name+".", errors)

		case fieldValue.Kind() == reflect.Slice || fieldValue.Kind() == reflect.Array:
			if fieldValue.Kind() == reflect.Slice && fieldValue.Type().Elem().Kind() == reflect.Uint8 {
				addDefault(section, key, string(fieldValue.Bytes()), fieldPath+field.Name, errors)
				continue
			}
			for j := 0; j < fieldValue.Len(); j++ {
				addDefault(section, key, render(fieldValue.Index(j)), fieldPath+field.Name, errors)
			}

		case fieldValue.Kind() == reflect.Map:
			*errors = append(*errors, fmt.Sprintf("field %s%s: %v", fieldPath, field.Name, ErrUnrepresentable))

		default:
			addDefault(section, key, render(fieldValue), fieldPath+field.Name, errors)
		}
	}
}

func addDefault(section *Node, key, value, field string, errors *[]string) {
	if _, err := section.AddRelation(key, value); err != nil {
		*errors = append(*errors, fmt.Sprintf("field %s: %v", field, err))
	}
}

// isScalarStruct reports struct types that render as a single value, such as
// time.Time or url.URL.
func isScalarStruct(v reflect.Value) bool {
	_, ok := v.Interface().(fmt.Stringer)
	if ok {
		return true
	}
	if v.CanAddr() {
		_, ok = v.Addr().Interface().(fmt.Stringer)
	}
	return ok
}

// render formats a field value as a relation value.
func render(v reflect.Value) string {
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	if v.CanAddr() {
		if s, ok := v.Addr().Interface().(fmt.Stringer); ok {
			return s.String()
		}
	}
	return fmt.Sprint(v.Interface())
}
