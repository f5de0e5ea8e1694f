package testutils

import (
	"encoding/binary"
	"fmt"
	"net"
)

/*
Shared helpers for tests. The byte builders construct little-endian wire
fragments so codec tests can state expected encodings literally.
*/

////////////////////////////////////////////////////////////////////////////////

// GetOpenPort returns a port that was free at the time of the call.
func GetOpenPort() (int, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, fmt.Errorf("failed to get open port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// Flatten concatenates slices of the same type.
func Flatten[T any](slices ...[]T) []T {
	n := 0
	for _, s := range slices {
		n += len(s)
	}
	result := make([]T, 0, n)
	for _, s := range slices {
		result = append(result, s...)
	}
	return result
}

// U8b returns a byte slice holding one uint8.
func U8b(v uint8) []byte {
	return []byte{v}
}

// U32b returns the little-endian bytes of a uint32.
func U32b(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

// U64b returns the little-endian bytes of a uint64.
func U64b(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

// Strb returns the length-prefixed bytes of a string.
func Strb(s string) []byte {
	return append(U32b(uint32(len(s))), s...)
}
