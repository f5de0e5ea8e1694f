package rows

import (
	"cmp"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

/*
Value is a dynamically typed scalar. Values are small and passed by value.
Comparison is only defined between values of the same type; callers are
expected to have validated against a schema first.
*/

////////////////////////////////////////////////////////////////////////////////

// Type identifies the physical type of a value or column.
type Type uint8

const (
	TypeInt64 Type = iota + 1
	TypeFloat64
	TypeString
	TypeBool
	TypeTimestamp
)

func (t Type) String() string {
	switch t {
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "float64"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeTimestamp:
		return "timestamp"
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

// ParseType returns the type named by s.
func ParseType(s string) (Type, error) {
	switch s {
	case "int64":
		return TypeInt64, nil
	case "float64":
		return TypeFloat64, nil
	case "string":
		return TypeString, nil
	case "bool":
		return TypeBool, nil
	case "timestamp":
		return TypeTimestamp, nil
	}
	return 0, fmt.Errorf("unknown type: %s", s)
}

func (t Type) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(t.String())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal type: %w", err)
	}
	return data, nil
}

func (t *Type) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to unmarshal type: %w", err)
	}
	parsed, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value is a single scalar value. Int carries int64 and timestamp values.
type Value struct {
	Type  Type
	Null  bool
	Int   int64
	Float float64
	Str   string
	Bool  bool
}

// NewInt64 returns an int64 value.
func NewInt64(v int64) Value {
	return Value{Type: TypeInt64, Int: v}
}

// NewFloat64 returns a float64 value.
func NewFloat64(v float64) Value {
	return Value{Type: TypeFloat64, Float: v}
}

// NewString returns a string value.
func NewString(v string) Value {
	return Value{Type: TypeString, Str: v}
}

// NewBool returns a bool value.
func NewBool(v bool) Value {
	return Value{Type: TypeBool, Bool: v}
}

// NewTimestamp returns a timestamp value from nanoseconds since the epoch.
func NewTimestamp(nanos int64) Value {
	return Value{Type: TypeTimestamp, Int: nanos}
}

// NewNull returns a null value of the given type.
func NewNull(t Type) Value {
	return Value{Type: t, Null: true}
}

// Compare returns -1, 0, or 1 ordering v relative to o. Nulls sort before all
// other values. Panics if the types differ.
func (v Value) Compare(o Value) int {
	if v.Type != o.Type {
		panic(fmt.Sprintf("cannot compare %s with %s", v.Type, o.Type))
	}
	switch {
	case v.Null && o.Null:
		return 0
	case v.Null:
		return -1
	case o.Null:
		return 1
	}
	switch v.Type {
	case TypeInt64, TypeTimestamp:
		return cmp.Compare(v.Int, o.Int)
	case TypeFloat64:
		return cmp.Compare(v.Float, o.Float)
	case TypeString:
		return cmp.Compare(v.Str, o.Str)
	case TypeBool:
		switch {
		case v.Bool == o.Bool:
			return 0
		case o.Bool:
			return -1
		default:
			return 1
		}
	}
	panic(fmt.Sprintf("cannot compare values of type %s", v.Type))
}

func (v Value) String() string {
	if v.Null {
		return "null"
	}
	switch v.Type {
	case TypeInt64, TypeTimestamp:
		return strconv.FormatInt(v.Int, 10)
	case TypeFloat64:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case TypeString:
		return v.Str
	case TypeBool:
		return strconv.FormatBool(v.Bool)
	}
	return fmt.Sprintf("unknown(%d)", uint8(v.Type))
}

type valueJSON struct {
	Type  Type     `json:"type"`
	Null  bool     `json:"null,omitempty"`
	Int   *int64   `json:"int,omitempty"`
	Float *float64 `json:"float,omitempty"`
	Str   *string  `json:"str,omitempty"`
	Bool  *bool    `json:"bool,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	record := valueJSON{Type: v.Type, Null: v.Null}
	if !v.Null {
		switch v.Type {
		case TypeInt64, TypeTimestamp:
			record.Int = &v.Int
		case TypeFloat64:
			record.Float = &v.Float
		case TypeString:
			record.Str = &v.Str
		case TypeBool:
			record.Bool = &v.Bool
		}
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}
	return data, nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var record valueJSON
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}
	*v = Value{Type: record.Type, Null: record.Null}
	switch {
	case record.Int != nil:
		v.Int = *record.Int
	case record.Float != nil:
		v.Float = *record.Float
	case record.Str != nil:
		v.Str = *record.Str
	case record.Bool != nil:
		v.Bool = *record.Bool
	}
	return nil
}
