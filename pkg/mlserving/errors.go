package mlserving

import (
	"fmt"
	"github.com/pkg/errors"
)

// Kind classifies failures of the token and inference calls.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfiguration means a host or credential is missing.
	KindConfiguration
	// KindTransport means the endpoint could not be reached.
	KindTransport
	// KindAuthentication means the token endpoint answered with a non-2xx status.
	KindAuthentication
	// KindInference means the serving endpoint answered with a non-2xx status.
	KindInference
	// KindProtocol means a response body lacked the expected fields.
	KindProtocol
	// KindUnknownLabel means the model returned a label outside the known set.
	KindUnknownLabel
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindAuthentication:
		return "authentication"
	case KindInference:
		return "inference"
	case KindProtocol:
		return "protocol"
	case KindUnknownLabel:
		return "unknown label"
	default:
		return "unknown"
	}
}

// Error is returned by every operation of this package. StatusCode and Body
// are set only for KindAuthentication and KindInference.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s error: status %d: %s", e.Op, e.Kind, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Upstream reports whether the error carries an HTTP status from one of the
// remote endpoints.
func (e *Error) Upstream() bool {
	return e.Kind == KindAuthentication || e.Kind == KindInference
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func newStatusError(kind Kind, op string, status int, body []byte) *Error {
	return &Error{Kind: kind, Op: op, StatusCode: status, Body: string(body)}
}

func ConfigurationError(op, msg string) error {
	return newError(KindConfiguration, op, errors.New(msg))
}

func ProtocolError(op, msg string) error {
	return newError(KindProtocol, op, errors.New(msg))
}

func UnknownLabelError(op, label string) error {
	return newError(KindUnknownLabel, op, errors.Errorf("label %q is not a known class", label))
}

func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}

	return nil, false
}

func KindOf(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}

	return KindUnknown
}

func IsUpstream(err error) bool {
	e, ok := AsError(err)
	return ok && e.Upstream()
}
