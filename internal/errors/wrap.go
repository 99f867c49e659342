package errors

import (
	"github.com/pkg/errors"
)

// Wrap is an alias for "github.com/pkg/errors".Wrap
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf is an alias for "github.com/pkg/errors".Wrapf
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// Cause is an alias for "github.com/pkg/errors".Cause
func Cause(err error) error {
	return errors.Cause(err)
}

// New is an alias for "github.com/pkg/errors".New
func New(message string) error {
	return errors.New(message)
}

// Errorf is an alias for "github.com/pkg/errors".Errorf
func Errorf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}
