package server

import (
	"time"

	"github.com/gin-contrib/cors"
)

// Cors defines browser cross origin access to the API.
type Cors struct {
	AllowCredentials bool     `yaml:"allowCredentials,omitempty"`
	AllowHeaders     []string `yaml:"allowHeaders,omitempty"`
	AllowMethods     []string `yaml:"allowMethods,omitempty"`
	AllowOrigins     []string `yaml:"allowOrigins,omitempty"`
	ExposeHeaders    []string `yaml:"exposeHeaders,omitempty"`
	MaxAge           int64    `yaml:"maxAge,omitempty"`
}

func (c *Cors) config() cors.Config {
	ret := cors.DefaultConfig()
	ret.AllowWildcard = true
	ret.AllowCredentials = c.AllowCredentials
	ret.AllowHeaders = append(ret.AllowHeaders, "Authorization", "Cache-Control")
	if len(c.AllowHeaders) > 0 {
		ret.AllowHeaders = c.AllowHeaders
	}
	if len(c.AllowMethods) > 0 {
		ret.AllowMethods = c.AllowMethods
	}
	ret.ExposeHeaders = c.ExposeHeaders
	if c.MaxAge > 0 {
		ret.MaxAge = time.Duration(c.MaxAge) * time.Second
	}
	for _, origin := range c.AllowOrigins {
		if origin == "*" {
			ret.AllowAllOrigins = true
			ret.AllowOrigins = nil
			ret.AllowCredentials = false
			return ret
		}
	}
	ret.AllowOrigins = c.AllowOrigins
	return ret
}

// Enabled reports whether any origin is allowed.
func (c *Cors) Enabled() bool {
	return c != nil && len(c.AllowOrigins) > 0
}
