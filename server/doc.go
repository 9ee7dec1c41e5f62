// Package server exposes tool server management, per-server capabilities and chat turns over HTTP.
//
// Every endpoint is a thin pass-through to the connection registry, the tool bridge or the chat
// service and answers with the operation result or an `{"error": ...}` body whose status code
// reflects the failure kind.
package server
