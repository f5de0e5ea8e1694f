package keyfilter

import "fmt"

type CorruptFilterError struct {
	Length int
}

func NewCorruptFilterError(length int) CorruptFilterError {
	return CorruptFilterError{length}
}

func (e CorruptFilterError) Error() string {
	return fmt.Sprintf("corrupt key filter of length %d", e.Length)
}

func (e CorruptFilterError) Is(target error) bool {
	_, ok := target.(CorruptFilterError)
	return ok
}
