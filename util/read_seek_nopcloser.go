package util

import "io"

// NewReadSeekNopCloser adapts an io.ReadSeeker to io.ReadSeekCloser with a
// no-op Close. Storage providers that serve reads from memory use it to
// satisfy the provider interface without holding any resource.
func NewReadSeekNopCloser(rs io.ReadSeeker) io.ReadSeekCloser {
	return readSeekNopCloser{rs}
}

type readSeekNopCloser struct {
	io.ReadSeeker
}

func (readSeekNopCloser) Close() error {
	return nil
}
