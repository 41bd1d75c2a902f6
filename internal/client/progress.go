package client

import "io"

// countingReader tracks how many bytes of the upload body were consumed.
type countingReader struct {
	r     io.Reader
	n     int64
	total int64 // 0 if unknown
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// short reports whether fewer bytes were read than the candidate declared,
// which happens when a file is truncated or still being written.
func (c *countingReader) short() bool {
	return c.total > 0 && c.n < c.total
}
