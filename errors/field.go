package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Field attaches the name of an invalid field to err, or returns nil if
// err is nil. Nested fields are joined with dots and list elements use
// their index, as in Members.0 or Request.Receiver.
func Field(fieldName string, err error, description string, args ...interface{}) error {
	if isNilErr(err) {
		return nil
	}
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}
	if len(args) > 0 {
		description = fmt.Sprintf(description, args...)
	}
	return &fieldError{parent: err, field: fieldName, desc: description}
}

// AppendField appends the field error of fieldErrOrNil to errorsOrNil.
func AppendField(errorsOrNil error, fieldName string, fieldErrOrNil error) error {
	return Append(errorsOrNil, Field(fieldName, fieldErrOrNil, ""))
}

type fieldError struct {
	parent error
	field  string
	desc   string
}

func (e *fieldError) Error() string {
	if e.desc == "" {
		return fmt.Sprintf("field %q: %s", e.field, e.parent)
	}
	return fmt.Sprintf("field %q: %s: %s", e.field, e.desc, e.parent)
}

func (e *fieldError) Cause() error { return e.parent }

func (e *fieldError) Field() string { return e.field }

// Format prints the stack trace of the creation point for %+v.
func (e *fieldError) Format(s fmt.State, verb rune) {
	writeFormatted(s, verb, e)
}

// FieldErrors collects every error in the tree of err that was created
// for fieldName. Multi errors are searched in all their branches.
func FieldErrors(err error, fieldName string) []error {
	var res []error
	for !isNilErr(err) {
		if f, ok := err.(fielder); ok && f.Field() == fieldName {
			return append(res, err)
		}
		if u, ok := err.(unpacker); ok {
			for _, e := range u.Unpack() {
				res = append(res, FieldErrors(e, fieldName)...)
			}
			return res
		}
		c, ok := err.(causer)
		if !ok {
			break
		}
		err = c.Cause()
	}
	return res
}

type fielder interface {
	Field() string
}
