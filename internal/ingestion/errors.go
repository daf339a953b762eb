package ingestion

import "fmt"

// UnsupportedFormatError indicates an input file whose extension the loader
// does not handle.
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported input format %q: %s", e.Ext, e.Path)
}

// ParseError represents a failure reading or decoding an input file.
type ParseError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error in %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NoURLColumnError indicates a batch in which no URL-like column was found.
// Such batches stay loadable; they just contribute nothing to fetching.
type NoURLColumnError struct {
	Batch   string
	Columns []string
}

func (e *NoURLColumnError) Error() string {
	return fmt.Sprintf("no URL-like column found in batch %q (columns: %v)", e.Batch, e.Columns)
}
