// Package faults defines the three classes of fatal pipeline error.
//
// Every error returned by a pipeline stage wraps exactly one of the sentinels
// below, so callers can classify it with errors.Is.
package faults

import (
	"errors"
	"fmt"
)

var (
	// ErrAcquisition marks a source that is missing, unreachable or
	// structurally malformed.
	ErrAcquisition = errors.New("acquisition fault")

	// ErrTypeCoercion marks a value that could not be parsed into its
	// target type.
	ErrTypeCoercion = errors.New("type coercion fault")

	// ErrDataQuality marks a violated invariant between datasets, such as
	// a join key that is not unique on the right-hand side.
	ErrDataQuality = errors.New("data quality fault")
)

// Acquisition wraps err as an acquisition fault.
func Acquisition(err error, format string, args ...any) error {
	return wrap(ErrAcquisition, err, format, args...)
}

// TypeCoercion wraps err as a type coercion fault.
func TypeCoercion(err error, format string, args ...any) error {
	return wrap(ErrTypeCoercion, err, format, args...)
}

// DataQuality builds a data quality fault. err may be nil.
func DataQuality(err error, format string, args ...any) error {
	return wrap(ErrDataQuality, err, format, args...)
}

// Kind returns the sentinel err wraps, or nil when err is not a fault.
func Kind(err error) error {
	for _, k := range []error{ErrAcquisition, ErrTypeCoercion, ErrDataQuality} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

func wrap(kind, err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if err == nil {
		return fmt.Errorf("%w: %s", kind, msg)
	}
	return fmt.Errorf("%w: %s: %w", kind, msg, err)
}
