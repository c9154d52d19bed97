package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrFileTooLarge is returned when a file exceeds ingest.max_file_size
	ErrFileTooLarge = errors.New("file exceeds size limit")
	// ErrInvalidText is returned when a text file is not valid UTF-8
	ErrInvalidText = errors.New("text file is not valid UTF-8")
)

// FileError is a failure to ingest one file. Siblings in the same batch are unaffected.
type FileError struct {
	Name string `json:"name"`
	Err  error  `json:"-"`
}

func (e *FileError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
