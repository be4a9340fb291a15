package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for comparison using errors.Is. Every *Error matches
// exactly one of them through its Kind.
var (
	ErrUnauthorized = errors.New("authentication rejected")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation rejected")
	ErrClient       = errors.New("request rejected")
	ErrServer       = errors.New("backend error")
	ErrUnreachable  = errors.New("backend unreachable")
	ErrTimeout      = errors.New("backend timeout")
	ErrCanceled     = errors.New("request canceled")
)

// Kind classifies a failed backend call.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindValidation
	KindClient
	KindServer
	KindUnreachable
	KindTimeout
	KindCanceled
)

var kindNames = map[Kind]string{
	KindUnknown:      "unknown",
	KindUnauthorized: "unauthorized",
	KindForbidden:    "forbidden",
	KindNotFound:     "not_found",
	KindValidation:   "validation",
	KindClient:       "client",
	KindServer:       "server",
	KindUnreachable:  "unreachable",
	KindTimeout:      "timeout",
	KindCanceled:     "canceled",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) sentinel() error {
	switch k {
	case KindUnauthorized:
		return ErrUnauthorized
	case KindForbidden:
		return ErrForbidden
	case KindNotFound:
		return ErrNotFound
	case KindValidation:
		return ErrValidation
	case KindClient:
		return ErrClient
	case KindServer:
		return ErrServer
	case KindUnreachable:
		return ErrUnreachable
	case KindTimeout:
		return ErrTimeout
	case KindCanceled:
		return ErrCanceled
	}
	return nil
}

// KindForStatus maps an HTTP status of a failed response to its Kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest,
		status == http.StatusConflict,
		status == http.StatusUnprocessableEntity:
		return KindValidation
	case status >= 400 && status < 500:
		return KindClient
	case status >= 500:
		return KindServer
	}
	return KindUnknown
}

// Error is a failed backend call. Status is zero when no response arrived.
type Error struct {
	Op      string // logical operation, e.g. "books.list"
	Kind    Kind
	Method  string
	Path    string
	Status  int
	Message string // backend-provided message, if any
	Err     error  // transport error, if any
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "%s %s", e.Method, e.Path)
	if e.Status != 0 {
		fmt.Fprintf(&b, " returned %d", e.Status)
	} else {
		fmt.Fprintf(&b, " failed (%s)", e.Kind)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnknown
}

// MessageOf returns the backend message carried by err, if any.
func MessageOf(err error) string {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Message
	}
	return ""
}

// Attempt records one candidate path tried by Fallback.
type Attempt struct {
	Path   string
	Status int
	Err    error
}

// FallbackError reports that every candidate path of an operation failed.
type FallbackError struct {
	Op       string
	Attempts []Attempt
}

func (e *FallbackError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		switch {
		case a.Status != 0:
			parts = append(parts, fmt.Sprintf("%s (%d)", a.Path, a.Status))
		default:
			parts = append(parts, fmt.Sprintf("%s (%s)", a.Path, KindOf(a.Err)))
		}
	}
	return fmt.Sprintf("%s: all %d candidate paths failed: %s",
		e.Op, len(e.Attempts), strings.Join(parts, ", "))
}

// Unwrap exposes every attempt's error to errors.Is and errors.As.
func (e *FallbackError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// Paths lists the attempted paths in order.
func (e *FallbackError) Paths() []string {
	out := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		out[i] = a.Path
	}
	return out
}
