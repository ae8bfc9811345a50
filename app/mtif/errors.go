package mtif

import (
	"errors"
	"fmt"
)

var (
	ErrUnterminatedRecord = errors.New("record is missing its terminator")
	ErrMalformedLine      = errors.New("malformed line")
	ErrMissingDate        = errors.New("post has no DATE")
)

// ParseError identifies the record that could not be decoded. Title is empty
// when the record carries no TITLE line; Record is the 1-based ordinal.
type ParseError struct {
	Record int
	Title  string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	where := fmt.Sprintf("record %d", e.Record)
	if e.Title != "" {
		where = fmt.Sprintf("record %d (%q)", e.Record, e.Title)
	}
	if e.Line > 0 {
		return fmt.Sprintf("mtif: %s, line %d: %v", where, e.Line, e.Err)
	}
	return fmt.Sprintf("mtif: %s: %v", where, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
