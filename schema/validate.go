package schema

import (
	"errors"
	"fmt"
	"reflect"
)

// Validate runs the full validation of an entity: required fields, choices
// and field validators. Key fields, parent links and auto-stamped fields are
// filled by the store and are not checked. All violations are returned
// joined.
func Validate(e *Entity) error {
	var errs []error
	for _, f := range e.model.fields {
		if f.Key || f.IsParentLink() || f.IsAutoStamped() {
			continue
		}
		v := e.values[f.Name]
		if isNil(v) {
			if !f.Nullable {
				errs = append(errs, &ValidationError{Field: f.String(), Err: errors.New("missing required value")})
			}
			continue
		}
		if len(f.Choices) > 0 && !hasChoice(f.Choices, v) {
			errs = append(errs, &ValidationError{Field: f.String(), Err: fmt.Errorf("value %v is not a valid choice", v)})
			continue
		}
		for _, fn := range f.Validators {
			if err := fn(v); err != nil {
				errs = append(errs, &ValidationError{Field: f.String(), Err: err})
				break
			}
		}
	}
	return errors.Join(errs...)
}

func hasChoice(choices []any, v any) bool {
	for _, c := range choices {
		if reflect.DeepEqual(c, v) {
			return true
		}
	}
	return false
}

// isNil reports if v is nil or a typed nil pointer.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
