package registry

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
)

// status codes stand alone, never as part of a port or a longer number
var (
	forbiddenStatus = regexp.MustCompile(`(^|[^:\d])403(\D|$)|Forbidden`)
	notFoundStatus  = regexp.MustCompile(`(^|[^:\d])404(\D|$)|Not Found`)
)

// AlreadyConnectedError reports a connect on an id that already has a live connection.
type AlreadyConnectedError struct {
	ID string
}

func (e *AlreadyConnectedError) Error() string {
	return fmt.Sprintf("server %s is already connected", e.ID)
}

// NotConnectedError reports a disconnect on an id without a connection.
type NotConnectedError struct {
	ID string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("server %s is not connected", e.ID)
}

// Cause classifies a connect failure.
type Cause string

const (
	CauseUnknown   Cause = "unknown"
	CauseForbidden Cause = "forbidden"
	CauseNotFound  Cause = "not_found"
	CauseDNS       Cause = "dns"
)

// ConnectFailedError wraps a transport or handshake failure.
type ConnectFailedError struct {
	ID  string
	Err error
}

func (e *ConnectFailedError) Error() string {
	return fmt.Sprintf("failed to connect to server %s: %v", e.ID, e.Err)
}

func (e *ConnectFailedError) Unwrap() error {
	return e.Err
}

// Cause classifies the underlying failure.
func (e *ConnectFailedError) Cause() Cause {
	if e.Err == nil {
		return CauseUnknown
	}
	var dnsErr *net.DNSError
	if errors.As(e.Err, &dnsErr) {
		return CauseDNS
	}
	message := e.Err.Error()
	switch {
	case strings.Contains(message, "ENOTFOUND"), strings.Contains(message, "getaddrinfo"), strings.Contains(message, "no such host"):
		return CauseDNS
	case forbiddenStatus.MatchString(message):
		return CauseForbidden
	case notFoundStatus.MatchString(message):
		return CauseNotFound
	}
	return CauseUnknown
}

// UserMessage returns an explanation suitable for an end user.
func (e *ConnectFailedError) UserMessage() string {
	switch e.Cause() {
	case CauseForbidden:
		return "access forbidden (403): the server rejected the request, check the URL and authentication headers"
	case CauseNotFound:
		return "endpoint not found (404): check the server URL and path"
	case CauseDNS:
		return "could not resolve host: check the server URL and network connection"
	}
	return e.Error()
}
