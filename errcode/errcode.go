package errcode

import "errors"

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	Busy           Code = "busy"
	Unsupported    Code = "unsupported"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"
	InvalidTopic   Code = "invalid_topic"
	UnknownOp      Code = "unknown_op"

	Timeout  Code = "timeout"
	BusRead  Code = "bus_read"
	BusWrite Code = "bus_write"

	WrongSignature Code = "wrong_signature"
	DiffDataType   Code = "diff_data_type"
	Layout         Code = "layout_mismatch"

	CRC       Code = "crc"
	CRCConfig Code = "crc_config"
	CRCCx     Code = "crc_cx"

	EchoFail    Code = "echo_fail"
	HandlerStop Code = "handler_stop"
	ResetFail   Code = "reset_fail"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s += ": " + e.Op
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap pairs a code with the operation that produced it, keeping the cause.
func Wrap(c Code, op string, err error) error {
	return &E{C: c, Op: op, Err: err}
}

// Has reports whether any error in the chain carries the code.
func Has(err error, c Code) bool {
	for err != nil {
		if Of(err) == c {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// OpOf returns the operation tag of the outermost E in the chain, or "".
func OpOf(err error) string {
	for err != nil {
		if e, ok := err.(*E); ok {
			return e.Op
		}
		err = errors.Unwrap(err)
	}
	return ""
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
