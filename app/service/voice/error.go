package voice

import (
	"errors"
)

type ErrorKind string

const (
	KindNotRecognized      ErrorKind = "not_recognized"
	KindServiceUnavailable ErrorKind = "service_unavailable"
	KindDeviceError        ErrorKind = "device_error"
)

var errNoSpeech = errors.New("no speech captured before timeout")

// Error is the only error Listen returns.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}

	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the user-facing description of the failure.
func (e *Error) Message() string {
	switch e.Kind {
	case KindNotRecognized:
		return "Speech not recognized. Try again."
	case KindServiceUnavailable:
		return "Speech recognition service unavailable."
	default:
		if e.Err == nil {
			return "Error: microphone unavailable"
		}
		return "Error: " + e.Err.Error()
	}
}

func notRecognized(err error) *Error {
	return &Error{Kind: KindNotRecognized, Err: err}
}

func serviceUnavailable(err error) *Error {
	return &Error{Kind: KindServiceUnavailable, Err: err}
}

func deviceError(err error) *Error {
	return &Error{Kind: KindDeviceError, Err: err}
}

// AsError returns err as a voice error, treating unknown failures as device errors.
func AsError(err error) *Error {
	var voiceErr *Error
	if errors.As(err, &voiceErr) {
		return voiceErr
	}

	return deviceError(err)
}
