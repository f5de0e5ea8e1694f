package blockio

import (
	"errors"
	"fmt"
)

// ErrBadMagic is returned when a block payload does not start with the block
// magic.
var ErrBadMagic = errors.New("bad magic")

type UnsupportedVersionError struct {
	Version uint32
}

func NewUnsupportedVersionError(version uint32) UnsupportedVersionError {
	return UnsupportedVersionError{version}
}

func (e UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported format version %d", e.Version)
}

func (e UnsupportedVersionError) Is(target error) bool {
	_, ok := target.(UnsupportedVersionError)
	return ok
}

type CrcMismatchError struct {
	Expected uint32
	Actual   uint32
}

func NewCrcMismatchError(expected, actual uint32) CrcMismatchError {
	return CrcMismatchError{expected, actual}
}

func (e CrcMismatchError) Error() string {
	return fmt.Sprintf("crc mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e CrcMismatchError) Is(target error) bool {
	_, ok := target.(CrcMismatchError)
	return ok
}

type CorruptBlockError struct {
	Reason string
}

func NewCorruptBlockError(reason string) CorruptBlockError {
	return CorruptBlockError{reason}
}

func (e CorruptBlockError) Error() string {
	return fmt.Sprintf("corrupt block: %s", e.Reason)
}

func (e CorruptBlockError) Is(target error) bool {
	_, ok := target.(CorruptBlockError)
	return ok
}
