package completion

import (
	"context"
	"errors"
	"net"

	"github.com/sashabaranov/go-openai"
)

const (
	// ErrorPrefix starts every flattened failure so callers and users can tell it from a reply.
	ErrorPrefix = "Error connecting to AI: "
	NoResponse  = "No response."
)

type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindStatus    ErrorKind = "status"
	KindTimeout   ErrorKind = "timeout"
)

type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Detail
}

// Result is either a reply Text or an Err, never both.
type Result struct {
	Text string
	Err  *Error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Display flattens the result into the string shown to the user.
func (r Result) Display() string {
	if r.Err != nil {
		return ErrorPrefix + r.Err.Detail
	}

	return r.Text
}

func success(text string) Result {
	if text == "" {
		text = NoResponse
	}

	return Result{Text: text}
}

func failure(err error) Result {
	return Result{Err: classify(err)}
}

func classify(err error) *Error {
	detail := err.Error()

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Detail: detail}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Detail: detail}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &Error{Kind: KindStatus, Detail: detail}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &Error{Kind: KindStatus, Detail: detail}
	}

	return &Error{Kind: KindTransport, Detail: detail}
}
