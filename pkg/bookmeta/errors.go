// Package bookmeta reads best-effort metadata and cover art from e-book files.
package bookmeta

import (
	"errors"
	"fmt"
)

// ErrNoCover is returned by ReadCover when the book carries no cover image.
var ErrNoCover = errors.New("no cover image")

// UnsupportedFormatError is returned for files that are neither EPUB nor PDF.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%s: unsupported book format", e.Path)
}

// CorruptedFileError is returned when the container structure cannot be read.
type CorruptedFileError struct {
	Path   string
	Reason string
	Err    error
}

func (e *CorruptedFileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: corrupted file: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: corrupted file: %s", e.Path, e.Reason)
}

func (e *CorruptedFileError) Unwrap() error {
	return e.Err
}
