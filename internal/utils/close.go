package utils

import "io"

// Close closes c and ignores any error. For best-effort cleanup in defer.
func Close(c io.Closer) {
	_ = c.Close()
}
