package routeros

import "fmt"

var (
	ErrConnectTimeout  = fmt.Errorf("router connect timeout")
	ErrConnectRefused  = fmt.Errorf("router connection refused")
	ErrAuthFailed      = fmt.Errorf("router authentication failed")
	ErrInvalidResource = fmt.Errorf("unknown resource kind")
	ErrSessionClosed   = fmt.Errorf("session closed")
)

// ProtocolError indicates a malformed frame on the wire: a reserved length
// control byte, a sentence truncated by EOF, or a reply with no reply word.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}

// RouterError is returned when the router accepted the command but replied
// with !trap or !fatal. Message carries the router-supplied text.
type RouterError struct {
	Message string
	Fatal   bool
}

func (e *RouterError) Error() string {
	if e.Fatal {
		return "router fatal: " + e.Message
	}
	return "router error: " + e.Message
}
