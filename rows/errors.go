package rows

import "fmt"

type UnknownColumnError struct {
	Column string
}

func NewUnknownColumnError(column string) UnknownColumnError {
	return UnknownColumnError{column}
}

func (e UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column: %s", e.Column)
}

func (e UnknownColumnError) Is(target error) bool {
	_, ok := target.(UnknownColumnError)
	return ok
}

type TypeMismatchError struct {
	Column string
	Want   Type
	Got    Type
}

func NewTypeMismatchError(column string, want, got Type) TypeMismatchError {
	return TypeMismatchError{column, want, got}
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("column %s expects %s; got %s", e.Column, e.Want, e.Got)
}

func (e TypeMismatchError) Is(target error) bool {
	_, ok := target.(TypeMismatchError)
	return ok
}

type NotNullableError struct {
	Column string
}

func NewNotNullableError(column string) NotNullableError {
	return NotNullableError{column}
}

func (e NotNullableError) Error() string {
	return fmt.Sprintf("column %s is not nullable", e.Column)
}

func (e NotNullableError) Is(target error) bool {
	_, ok := target.(NotNullableError)
	return ok
}
