package dynafix

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors of the fixture builder. Every typed error below matches
// one of them with errors.Is.
var (
	// ErrUnsupportedField is returned when no generator can produce a value
	// for a non-nullable field.
	ErrUnsupportedField = errors.New("dynafix: unsupported field")

	// ErrInvalidConfiguration is returned for unknown field names in strict
	// mode, bad value sources, unique fields taught a static value and
	// copiers that depend on each other.
	ErrInvalidConfiguration = errors.New("dynafix: invalid configuration")

	// ErrInvalidCopierExpression is returned when a copier path cannot be
	// followed on the entity being built.
	ErrInvalidCopierExpression = errors.New("dynafix: invalid copier expression")

	// ErrInvalidManyToMany is returned when a many-to-many value is neither
	// a count nor a list of fixtures or entities.
	ErrInvalidManyToMany = errors.New("dynafix: invalid many-to-many configuration")

	// ErrInvalidModel is returned for unknown models and for abstract models
	// that are asked to be persisted.
	ErrInvalidModel = errors.New("dynafix: invalid model")

	// ErrBadData is returned when validating or saving an entity fails.
	ErrBadData = errors.New("dynafix: bad data")

	// ErrInvalidReceiver is returned when a save hook fails or is registered
	// for something that is not a model.
	ErrInvalidReceiver = errors.New("dynafix: invalid receiver")

	// ErrNoLesson is returned when a named lesson was never taught.
	ErrNoLesson = errors.New("dynafix: no such lesson")
)

// UnsupportedFieldError is returned when no generator handles the type of a field.
type UnsupportedFieldError struct {
	Field string // qualified field name.
	Type  string
	Err   error
}

// Error returns the error string.
func (e *UnsupportedFieldError) Error() string {
	return fmt.Sprintf("dynafix: unsupported field %s (%s)", e.Field, e.Type)
}

// Unwrap returns the generator error.
func (e *UnsupportedFieldError) Unwrap() error { return e.Err }

// Is reports whether the target matches ErrUnsupportedField.
func (e *UnsupportedFieldError) Is(target error) bool { return target == ErrUnsupportedField }

// ConfigurationError describes an invalid fixture configuration.
type ConfigurationError struct {
	Model string
	Field string // optional.
	Msg   string // optional.
	Err   error  // optional cause.
}

// Error returns the error string.
func (e *ConfigurationError) Error() string {
	var sb strings.Builder
	sb.WriteString("dynafix: invalid configuration for ")
	sb.WriteString(e.Model)
	if e.Field != "" {
		sb.WriteString(".")
		sb.WriteString(e.Field)
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the cause of the error.
func (e *ConfigurationError) Unwrap() error { return e.Err }

// Is reports whether the target matches ErrInvalidConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrInvalidConfiguration }

// CopierError is returned when a copier path cannot be evaluated.
type CopierError struct {
	Expr string
	Err  error
}

// Error returns the error string.
func (e *CopierError) Error() string {
	return fmt.Sprintf("dynafix: invalid copier expression %q: %v", e.Expr, e.Err)
}

// Unwrap returns the traversal error.
func (e *CopierError) Unwrap() error { return e.Err }

// Is reports whether the target matches ErrInvalidCopierExpression.
func (e *CopierError) Is(target error) bool { return target == ErrInvalidCopierExpression }

// ManyToManyError is returned when a many-to-many value cannot be linked.
type ManyToManyError struct {
	Field string // qualified field name.
	Value any
	Err   error // optional cause.
}

// Error returns the error string.
func (e *ManyToManyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dynafix: invalid many-to-many configuration for %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("dynafix: invalid many-to-many configuration for %s: %v (%T)", e.Field, e.Value, e.Value)
}

// Unwrap returns the cause of the error.
func (e *ManyToManyError) Unwrap() error { return e.Err }

// Is reports whether the target matches ErrInvalidManyToMany.
func (e *ManyToManyError) Is(target error) bool { return target == ErrInvalidManyToMany }

// ModelError is returned for models that cannot be built or persisted.
type ModelError struct {
	Model  string
	Reason string
	Err    error // optional cause.
}

// Error returns the error string.
func (e *ModelError) Error() string {
	msg := fmt.Sprintf("dynafix: invalid model %s: %s", e.Model, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the cause of the error.
func (e *ModelError) Unwrap() error { return e.Err }

// Is reports whether the target matches ErrInvalidModel.
func (e *ModelError) Is(target error) bool { return target == ErrInvalidModel }

// BadDataError wraps the failure of validating or saving an entity.
type BadDataError struct {
	Model string
	Err   error
}

// Error returns the error string.
func (e *BadDataError) Error() string {
	return fmt.Sprintf("dynafix: bad data for %s: %v", e.Model, e.Err)
}

// Unwrap returns the underlying error.
func (e *BadDataError) Unwrap() error { return e.Err }

// Is reports whether the target matches ErrBadData.
func (e *BadDataError) Is(target error) bool { return target == ErrBadData }

// ReceiverError wraps the failure of a save hook.
type ReceiverError struct {
	Model string
	Err   error
}

// Error returns the error string.
func (e *ReceiverError) Error() string {
	return fmt.Sprintf("dynafix: invalid receiver for %s: %v", e.Model, e.Err)
}

// Unwrap returns the hook error.
func (e *ReceiverError) Unwrap() error { return e.Err }

// Is reports whether the target matches ErrInvalidReceiver.
func (e *ReceiverError) Is(target error) bool { return target == ErrInvalidReceiver }

// LessonError is returned when a named lesson does not exist. It is also a
// configuration error.
type LessonError struct {
	Model  string
	Lesson string
}

// Error returns the error string.
func (e *LessonError) Error() string {
	return fmt.Sprintf("dynafix: there is no lesson for model %s with the name %q", e.Model, e.Lesson)
}

// Is reports whether the target matches ErrNoLesson or ErrInvalidConfiguration.
func (e *LessonError) Is(target error) bool {
	return target == ErrNoLesson || target == ErrInvalidConfiguration
}

// IsUnsupportedField returns true if the error is caused by an unsupported field.
func IsUnsupportedField(err error) bool { return errors.Is(err, ErrUnsupportedField) }

// IsInvalidConfiguration returns true if the error is a configuration error.
func IsInvalidConfiguration(err error) bool { return errors.Is(err, ErrInvalidConfiguration) }

// IsInvalidCopierExpression returns true if the error is caused by a copier path.
func IsInvalidCopierExpression(err error) bool { return errors.Is(err, ErrInvalidCopierExpression) }

// IsInvalidManyToMany returns true if the error is caused by a many-to-many value.
func IsInvalidManyToMany(err error) bool { return errors.Is(err, ErrInvalidManyToMany) }

// IsInvalidModel returns true if the error is caused by an invalid model.
func IsInvalidModel(err error) bool { return errors.Is(err, ErrInvalidModel) }

// IsBadData returns true if validating or saving an entity failed.
func IsBadData(err error) bool { return errors.Is(err, ErrBadData) }

// IsInvalidReceiver returns true if the error is caused by a save hook.
func IsInvalidReceiver(err error) bool { return errors.Is(err, ErrInvalidReceiver) }

// IsNoLesson returns true if the error is caused by an unknown lesson.
func IsNoLesson(err error) bool { return errors.Is(err, ErrNoLesson) }
