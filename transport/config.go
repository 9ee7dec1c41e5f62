package transport

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// Type identifies a tool server wire transport.
type Type string

const (
	Stdio          Type = "stdio"
	StreamableHTTP Type = "streamable-http"
	SSE            Type = "sse"
)

// Types lists supported transports.
var Types = []Type{Stdio, StreamableHTTP, SSE}

// IsValid reports whether t is a supported transport.
func (t Type) IsValid() bool {
	for _, candidate := range Types {
		if candidate == t {
			return true
		}
	}
	return false
}

// Config defines tool server identity and connection parameters.
type Config struct {
	ID          string            `yaml:"id" json:"id"`
	Name        string            `yaml:"name" json:"name"`
	Transport   Type              `yaml:"transport" json:"transport"`
	Command     string            `yaml:"command,omitempty" json:"command,omitempty"`
	Args        []string          `yaml:"args,omitempty" json:"args,omitempty"`
	Env         map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	URL         string            `yaml:"url,omitempty" json:"url,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	BearerToken string            `yaml:"bearerToken,omitempty" json:"bearerToken,omitempty"`
	AutoConnect bool              `yaml:"autoConnect,omitempty" json:"autoConnect,omitempty"`
	CreatedAt   time.Time         `yaml:"-" json:"createdAt,omitempty"`
	UpdatedAt   time.Time         `yaml:"-" json:"updatedAt,omitempty"`
}

// Validate checks that the fields required by the configured transport are present.
func (c *Config) Validate() error {
	switch c.Transport {
	case Stdio:
		if strings.TrimSpace(c.Command) == "" {
			return &ConfigurationError{Field: "command", Reason: "command is required for stdio transport"}
		}
	case StreamableHTTP, SSE:
		if strings.TrimSpace(c.URL) == "" {
			return &ConfigurationError{Field: "url", Reason: "URL is required for " + string(c.Transport) + " transport"}
		}
		if !isAbsoluteURL(c.URL) {
			return &ConfigurationError{Field: "url", Reason: "invalid URL: " + c.URL}
		}
	default:
		return &UnsupportedTransportError{Type: c.Transport}
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	ret := *c
	if c.Args != nil {
		ret.Args = append([]string{}, c.Args...)
	}
	ret.Env = cloneMap(c.Env)
	ret.Headers = cloneMap(c.Headers)
	return &ret
}

// Endpoint returns the command line or URL of the server, for display.
func (c *Config) Endpoint() string {
	if c.Transport == Stdio {
		return strings.TrimSpace(c.Command + " " + strings.Join(c.Args, " "))
	}
	return c.URL
}

// environ returns env as sorted KEY=VALUE pairs.
func (c *Config) environ() []string {
	if len(c.Env) == 0 {
		return nil
	}
	var ret = make([]string, 0, len(c.Env))
	for k, v := range c.Env {
		ret = append(ret, k+"="+v)
	}
	sort.Strings(ret)
	return ret
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	ret := make(map[string]string, len(m))
	for k, v := range m {
		ret[k] = v
	}
	return ret
}
