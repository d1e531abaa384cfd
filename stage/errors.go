package stage

import (
	"errors"
	"fmt"

	"github.com/w-h-a/calls/record"
)

var (
	ErrOracleTransport = errors.New("oracle transport failure")
	ErrOracleFormat    = errors.New("oracle reply is not valid JSON")
	ErrOracleType      = errors.New("oracle reply has no textual content")
	ErrOracleSchema    = errors.New("oracle reply does not match the facet schema")
)

const (
	KindTransport = "oracle_transport"
	KindFormat    = "oracle_format"
	KindType      = "oracle_type"
	KindSchema    = "oracle_schema"
)

var sentinels = map[string]error{
	KindTransport: ErrOracleTransport,
	KindFormat:    ErrOracleFormat,
	KindType:      ErrOracleType,
	KindSchema:    ErrOracleSchema,
}

// Error is a stage failure for one record. It matches its kind's sentinel
// and the underlying cause with errors.Is and errors.As.
type Error struct {
	Facet record.Facet
	Kind  string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Facet, sentinels[e.Kind])
	}
	return fmt.Sprintf("%s: %s: %v", e.Facet, sentinels[e.Kind], e.Err)
}

func (e *Error) Unwrap() []error {
	errs := []error{}
	if s, ok := sentinels[e.Kind]; ok {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the stage error kind carried by err, or "" when err is not
// a stage error.
func KindOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

func newError(f record.Facet, kind string, err error) *Error {
	return &Error{Facet: f, Kind: kind, Err: err}
}
