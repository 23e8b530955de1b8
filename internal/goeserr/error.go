// Package goeserr defines the error taxonomy shared across the pipeline.
// A DataError aborts processing of the scene that produced it, a
// NetworkError is retriable at the enumeration layer, and an EncodingError
// means an output frame could not be written.
package goeserr

import "fmt"

// DataError signals malformed or missing metadata, an empty spatial
// intersection, or a channel/shape mismatch. Fatal for the scene.
type DataError struct {
	msg string
}

func NewDataError(format string, args ...any) *DataError {
	return &DataError{fmt.Sprintf(format, args...)}
}

func (e *DataError) Error() string {
	return e.msg
}

// NetworkError signals a remote fetch failure. The caller may retry at the
// file-enumeration layer; the pipeline itself never retries.
type NetworkError struct {
	msg string
	err error
}

func NewNetworkError(err error, format string, args ...any) *NetworkError {
	return &NetworkError{fmt.Sprintf(format, args...), err}
}

func (e *NetworkError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.msg, e.err)
	}
	return e.msg
}

func (e *NetworkError) Unwrap() error {
	return e.err
}

// EncodingError signals a failure writing an output frame. The write-to-temp
// discipline guarantees no partial file is left in place.
type EncodingError struct {
	msg string
	err error
}

func NewEncodingError(err error, format string, args ...any) *EncodingError {
	return &EncodingError{fmt.Sprintf(format, args...), err}
}

func (e *EncodingError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.msg, e.err)
	}
	return e.msg
}

func (e *EncodingError) Unwrap() error {
	return e.err
}
