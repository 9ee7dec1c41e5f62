package transport

import "fmt"

// ConfigurationError reports a missing or malformed server configuration field.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UnsupportedTransportError reports an unknown transport type.
type UnsupportedTransportError struct {
	Type Type
}

func (e *UnsupportedTransportError) Error() string {
	return fmt.Sprintf("unsupported transport type: %q", string(e.Type))
}
