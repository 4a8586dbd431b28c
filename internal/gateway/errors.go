package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// Kind is the category of a gateway failure
type Kind int

const (
	// KindValidation is a missing or malformed input caught before any
	// network call
	KindValidation Kind = iota
	// KindGateway is a non-2xx response from the service
	KindGateway
	// KindTransport is a network or decode failure; no server message is
	// available
	KindTransport
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation Error"
	case KindGateway:
		return "Gateway Error"
	case KindTransport:
		return "Transport Error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// TransportReason narrows down a transport failure
type TransportReason int

const (
	ReasonGeneral TransportReason = iota
	ReasonTimeout
	ReasonConnectionRefused
	ReasonDNS
	ReasonHostUnreachable
	ReasonNetworkUnreachable
	ReasonDecode
)

// Error is the failure value returned by every gateway operation
type Error struct {
	Kind    Kind
	Reason  TransportReason // only meaningful for KindTransport
	Op      string          // operation name, e.g. "discover"
	Status  int             // HTTP status for KindGateway
	Message string          // server-supplied message (KindGateway) or description
	Err     error           // underlying cause
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Op != "" {
		b.WriteString(" (")
		b.WriteString(e.Op)
		b.WriteString(")")
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, ": HTTP %d", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError reports a precondition failure detected locally
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NewGatewayError reports a non-2xx response. message is the server's
// "error" field and may be empty.
func NewGatewayError(op string, status int, message string) *Error {
	return &Error{Kind: KindGateway, Op: op, Status: status, Message: message}
}

// NewDecodeError reports a response body that could not be parsed
func NewDecodeError(op string, err error) *Error {
	return &Error{Kind: KindTransport, Reason: ReasonDecode, Op: op, Message: "malformed response", Err: err}
}

// NewTransportError classifies a network failure
func NewTransportError(op string, err error) *Error {
	e := classify(err)
	e.Op = op
	return e
}

func classify(err error) *Error {
	e := &Error{Kind: KindTransport, Reason: ReasonGeneral, Message: "network error", Err: err}

	timedOut := false
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		timedOut = urlErr.Timeout()
		if urlErr.Err != nil {
			err = urlErr.Err
		}
	}

	if timedOut || os.IsTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		e.Reason = ReasonTimeout
		e.Message = "request timed out"
		return e
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		e.Reason = ReasonDNS
		e.Message = fmt.Sprintf("cannot resolve %s", dnsErr.Name)
		return e
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		e.Reason = ReasonConnectionRefused
		e.Message = "connection refused"
	case errors.Is(err, syscall.EHOSTUNREACH):
		e.Reason = ReasonHostUnreachable
		e.Message = "host unreachable"
	case errors.Is(err, syscall.ENETUNREACH):
		e.Reason = ReasonNetworkUnreachable
		e.Message = "network unreachable"
	}
	return e
}

func kindOf(err error) (Kind, bool) {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind, true
	}
	return 0, false
}

// IsValidation reports whether err is a local validation failure
func IsValidation(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindValidation
}

// IsGateway reports whether err is a non-2xx response from the service
func IsGateway(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindGateway
}

// IsTransport reports whether err is a network or decode failure
func IsTransport(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindTransport
}

// UserMessage returns the single message shown to the operator: the
// validation text, the server-supplied message when there is one, or
// fallback otherwise.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		return fallback
	}
	switch gwErr.Kind {
	case KindValidation:
		return gwErr.Message
	case KindGateway:
		if gwErr.Message != "" {
			return gwErr.Message
		}
	}
	return fallback
}

// Hint returns troubleshooting advice for the CLI
func Hint(err error) []string {
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		return nil
	}

	switch gwErr.Kind {
	case KindValidation:
		return []string{
			"Select an interface with --interface",
			"Provide the DHCP server with --server or run 'starvectl discover'",
		}
	case KindGateway:
		if gwErr.Status >= 500 {
			return []string{
				"The service failed internally; check its console output",
				"The service must run with root/administrator privileges",
			}
		}
		return []string{"The service rejected the request; see the message above"}
	}

	switch gwErr.Reason {
	case ReasonTimeout:
		return []string{
			"The service did not answer in time",
			"Discovery can take several seconds; try a larger --timeout",
		}
	case ReasonConnectionRefused:
		return []string{
			"Nothing is listening at the service address",
			"Start the lab service or point --api at it",
			"Try 'starvectl locate' to find it on the local network",
		}
	case ReasonDNS:
		return []string{"Use the service IP address instead of a hostname"}
	case ReasonHostUnreachable, ReasonNetworkUnreachable:
		return []string{
			"Check that you are on the lab network",
			"Verify the --api address",
		}
	case ReasonDecode:
		return []string{"The --api address answered but is not the lab service"}
	default:
		return []string{"Check your network connection and the --api address"}
	}
}
