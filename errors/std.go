package errors

import ge "errors"

// Is, As, Unwrap and Join forward to the standard library so callers need
// only this package.

func Is(err, target error) bool { return ge.Is(err, target) }

func As(err error, target any) bool { return ge.As(err, target) }

func Unwrap(err error) error { return ge.Unwrap(err) }

func Join(errs ...error) error { return ge.Join(errs...) }
