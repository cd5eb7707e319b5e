package integrations

import "fmt"

// Op names the half of a conversion that failed.
type Op string

const (
	OpDecode Op = "decode"
	OpEncode Op = "encode"
)

// ConvertError is returned by Convert. Op tells whether the source could not
// be read or the destination could not be written; Path is the file involved.
type ConvertError struct {
	Op   Op
	Path string
	Err  error
}

func (e *ConvertError) Error() string {
	if e.Op == OpEncode {
		return fmt.Sprintf("could not write destination %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("could not read source: %v", e.Err)
}

func (e *ConvertError) Unwrap() error { return e.Err }
