package mcptest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/viant/jsonrpc"
	"github.com/viant/mcpchat/transport"
)

const (
	// StdioModeEnv selects how a re-executed test binary behaves; see RunStdio.
	StdioModeEnv = "MCPCHAT_TEST_STDIO_MODE"
	// PIDFileEnv names a file the re-executed test binary writes its pid to.
	PIDFileEnv = "MCPCHAT_TEST_PID_FILE"

	// ModeServe answers MCP requests on stdin/stdout.
	ModeServe = "serve"
	// ModeHang never answers and ignores stdin being closed.
	ModeHang = "hang"
)

// StdioConfig returns a stdio config that re-executes the running test binary as a tool server.
// The server exposes an "env" tool returning the value of the environment variable named by
// its "name" argument.
func StdioConfig(id, mode, pidFile string, env map[string]string) *transport.Config {
	ret := &transport.Config{
		ID:        id,
		Name:      id,
		Transport: transport.Stdio,
		Command:   os.Args[0],
		Env:       map[string]string{StdioModeEnv: mode, PIDFileEnv: pidFile},
	}
	for k, v := range env {
		ret.Env[k] = v
	}
	return ret
}

// RunStdio turns the current test binary into a stdio tool server when it was started from a
// StdioConfig and reports whether it did. Call it first in TestMain and exit when it returns true.
func RunStdio() bool {
	mode := os.Getenv(StdioModeEnv)
	if mode == "" {
		return false
	}
	if pidFile := os.Getenv(PIDFileEnv); pidFile != "" {
		_ = os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0o644)
	}
	switch mode {
	case ModeHang:
		time.Sleep(time.Hour)
	default:
		server := &Server{Name: "stdio", Tools: []*Tool{{
			Name: "env",
			Handle: func(args map[string]any) (map[string]any, error) {
				name, _ := args["name"].(string)
				return map[string]any{"content": []any{map[string]any{"type": "text", "text": os.Getenv(name)}}}, nil
			},
		}}}
		_ = ServeStdio(context.Background(), server, os.Stdin, os.Stdout)
	}
	return true
}

// ServeStdio answers newline delimited JSON-RPC requests read from in until EOF.
func ServeStdio(ctx context.Context, server *Server, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	for {
		line, err := reader.ReadBytes('\n')
		if line = bytes.TrimSpace(line); len(line) > 0 {
			if reply := serveLine(ctx, server, line); reply != nil {
				if _, wErr := out.Write(append(reply, '\n')); wErr != nil {
					return wErr
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func serveLine(ctx context.Context, server *Server, line []byte) []byte {
	var envelope struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(line, &envelope); err != nil || len(envelope.ID) == 0 {
		return nil
	}
	request := &jsonrpc.Request{}
	if err := json.Unmarshal(line, request); err != nil {
		return nil
	}
	reply := map[string]any{"jsonrpc": jsonrpc.Version, "id": envelope.ID}
	if result, err := server.handle(ctx, request); err != nil {
		reply["error"] = map[string]any{"code": -32603, "message": err.Error()}
	} else {
		reply["result"] = result
	}
	data, _ := json.Marshal(reply)
	return data
}
