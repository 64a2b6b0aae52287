package escl

import (
	"fmt"
	"strings"
)

// TransportError is a network failure reaching the device. It is never
// retried by this package.
type TransportError struct {
	Op  string // "status", "capabilities", "create job", "fetch document"
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError reports a malformed or incomplete device document. Fatal for
// the call that produced it.
type ParseError struct {
	Doc    string // "status" or "capabilities"
	Path   string // namespace-qualified element path, when known
	Reason string
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s document: %s: %s", e.Doc, e.Path, e.Reason)
	}
	return fmt.Sprintf("%s document: %s", e.Doc, e.Reason)
}

// ValidationError reports a requested scan parameter outside the advertised
// capability set. Values are never silently clamped; the only implicit
// behavior is the documented default fill for omitted height/width.
type ValidationError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s (%s) is not in (%s)", e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

// DeviceError reports that the device rejected a job or is not idle. Code is
// the device's HTTP status where available, or StatusCodeBusy for a non-Idle
// short-circuit.
type DeviceError struct {
	Reason string
	Code   int
}

// StatusCodeBusy marks a DeviceError raised locally because the device
// reported a non-Idle state.
const StatusCodeBusy = 503

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device error %d: %s", e.Code, e.Reason)
}
