package iofile

import (
	"errors"
	"fmt"
)

// FileErrorCode categorizes exchange file failures.
type FileErrorCode string

const (
	// ErrCodeMissing indicates the file does not exist.
	ErrCodeMissing FileErrorCode = "MISSING"

	// ErrCodeUnreadable indicates the file exists but cannot be opened.
	ErrCodeUnreadable FileErrorCode = "UNREADABLE"

	// ErrCodeMalformed indicates a truncated row, bad value, wrong column
	// count, decreasing timestamp or an empty output.
	ErrCodeMalformed FileErrorCode = "MALFORMED"

	// ErrCodeWrite indicates an input file could not be written.
	ErrCodeWrite FileErrorCode = "WRITE_FAILED"
)

// FileError reports a failure on one exchange file, naming its port and path.
type FileError struct {
	Code FileErrorCode
	Port string
	Path string
	Line int
	Err  error
}

func (e *FileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: port %s: %s:%d: %v", e.Code, e.Port, e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: port %s: %s: %v", e.Code, e.Port, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// IsMalformed reports whether err is a malformed or missing exchange file.
func IsMalformed(err error) bool {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe.Code == ErrCodeMalformed || fe.Code == ErrCodeMissing
	}
	return false
}
