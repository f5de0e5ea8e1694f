package util

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/stratadb/strata/util/log"
	"golang.org/x/exp/maps"
)

/*
Utility functions.
*/

////////////////////////////////////////////////////////////////////////////////

// Okeys returns the keys of a map in sorted order.
func Okeys[T cmp.Ordered, K any](m map[T]K) []T {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

// HumanBytes returns a human-readable representation of a number of bytes.
func HumanBytes(n uint64) string {
	suffix := []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}
	i := 0
	for n >= 1024 && i < len(suffix)-1 {
		n /= 1024
		i++
	}
	return strconv.FormatUint(n, 10) + " " + suffix[i]
}

// Max returns the maximum of a and b.
func Max[T cmp.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Min returns the minimum of a and b.
func Min[T cmp.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func EnsureDirectoryExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to make directory: %w", err)
		}
	}
	return nil
}

func RunPipe(
	ctx context.Context,
	wf func(ctx context.Context, w io.Writer) error,
	rf func(ctx context.Context, r io.Reader) error,
) error {
	r, w := io.Pipe()
	readerrs := make(chan error, 1)
	// spawn a goroutine to run the reader function over the input.
	go func() {
		err := rf(ctx, r)
		if err != nil {
			w.CloseWithError(err)
			readerrs <- err
		} else {
			readerrs <- r.Close()
		}
	}()
	// if the writer encounters an error, close the reader and return.
	if err := wf(ctx, w); err != nil {
		r.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close pipe writer: %w", err)
	}
	// once the writer is done, the reader must be allowed to catch up.
	select {
	case err := <-readerrs:
		if err != nil {
			return fmt.Errorf("error closing pipe reader: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context error: %w", ctx.Err())
	}
}

// MaybeWarn logs a warning if f returns an error. It is intended to wrap
// deferred Close calls in situations where an error is not critical and would
// not alter program execution. Most often this is the case for readers but not
// writers.
func MaybeWarn(ctx context.Context, f func() error) {
	if err := f(); err != nil {
		log.Warnf(ctx, "warning: %v", err)
	}
}

// CountingWriter passes writes through to an underlying writer while counting
// the bytes written. Useful with RunPipe, where the producer otherwise never
// learns how much it streamed.
type CountingWriter struct {
	w io.Writer
	n int
}

// NewCountingWriter returns a counting writer over w.
func NewCountingWriter(w io.Writer) *CountingWriter {
	return &CountingWriter{w: w}
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	if err != nil {
		return n, fmt.Errorf("failed to write: %w", err)
	}
	return n, nil
}

// Count returns the number of bytes written so far.
func (c *CountingWriter) Count() int {
	return c.n
}
