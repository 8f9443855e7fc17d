package errcode

// Code is a stable error identifier shared across services.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	Busy          Code = "busy"
	Timeout       Code = "timeout"
	Conflict      Code = "conflict"
	Unsupported   Code = "unsupported"
	InvalidInput  Code = "invalid_input"
	InvalidParams Code = "invalid_params"

	FlashBusy          Code = "flash_busy"
	ProgramFailed      Code = "program_failed"
	EraseFailed        Code = "erase_failed"
	PageRange          Code = "page_range"
	AddressRange       Code = "address_range"
	StorageUnavailable Code = "storage_unavailable"
	ClockFailed        Code = "clock_failed"

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
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

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
