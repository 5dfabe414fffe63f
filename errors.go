package docscan

import (
	"errors"
	"fmt"
)

var (
	ErrImageTooLarge = errors.New("image too large")
	ErrEmptyImage    = errors.New("image has no pixels")
)

// DecodeError is returned when the source image can not be read or
// decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: %s", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError is returned when the output image can not be encoded.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode: %s", e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err is, or wraps, a [DecodeError].
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// IsEncodeError reports whether err is, or wraps, an [EncodeError].
func IsEncodeError(err error) bool {
	var ee *EncodeError
	return errors.As(err, &ee)
}
