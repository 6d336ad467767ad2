package chem

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of failure categories the pipeline distinguishes.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindNotFound
	KindUpstreamUnavailable
	KindUpstreamTimeout
	KindUpstreamServer
	KindUpstreamMalformed
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindUpstreamTimeout:
		return "upstream_timeout"
	case KindUpstreamServer:
		return "upstream_server_error"
	case KindUpstreamMalformed:
		return "upstream_malformed"
	default:
		return "unknown"
	}
}

// Error carries a Kind plus the context needed to report it.
type Error struct {
	Kind   Kind
	Op     string // e.g. "summary.summarize"
	Status int    // upstream HTTP status, 0 when not applicable
	Detail string
	Err    error
}

// E builds an *Error. err may be nil.
func E(op string, kind Kind, detail string, err error) *Error {
	return &Error{Op: op, Kind: kind, Detail: detail, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == kind
}

// SafeMessage renders err as printable ASCII for placeholders and response
// bodies. It never returns an empty string.
func SafeMessage(err error) string {
	if err == nil {
		return "An unknown error occurred"
	}
	msg := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || (r >= 0x20 && r < 0x7f) {
			return r
		}
		return '?'
	}, err.Error())
	if strings.TrimSpace(msg) == "" {
		return "An unknown error occurred"
	}
	return msg
}
