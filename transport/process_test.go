//go:build unix

package transport_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/mcp-protocol/schema"
	"github.com/viant/mcpchat/client"
	"github.com/viant/mcpchat/internal/mcptest"
	"github.com/viant/mcpchat/transport"
)

func TestMain(m *testing.M) {
	if mcptest.RunStdio() {
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func readPID(t *testing.T, pidFile string) int {
	var pid int
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(pidFile)
		if err != nil || len(data) == 0 {
			return false
		}
		pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	return pid
}

func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

func TestNew_StdioProcess(t *testing.T) {
	ctx := context.Background()
	pidFile := filepath.Join(t.TempDir(), "pid")
	config := mcptest.StdioConfig("stdio", mcptest.ModeServe, pidFile, map[string]string{"GREETING": "hello  world"})

	conn, err := transport.New(ctx, config, client.NewHandler("stdio", nil))
	require.NoError(t, err)
	assert.Equal(t, transport.Stdio, conn.Kind())
	cli := client.New("test", "1.0", conn)
	initialized, err := cli.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stdio", initialized.ServerInfo.Name)

	result, err := cli.CallTool(ctx, &schema.CallToolRequestParams{Name: "env", Arguments: map[string]any{"name": "GREETING"}})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "hello  world", result.Content[0].Text)

	pid := readPID(t, pidFile)
	require.True(t, processAlive(pid))
	require.NoError(t, conn.Close())
	assert.False(t, processAlive(pid))
	require.NoError(t, conn.Close())

	_, err = cli.Ping(ctx, &schema.PingRequestParams{})
	assert.Error(t, err)
}

func TestNew_StdioProcessKilledAfterGracePeriod(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "pid")
	config := mcptest.StdioConfig("hang", mcptest.ModeHang, pidFile, nil)

	conn, err := transport.New(context.Background(), config, nil, transport.WithGracePeriod(100*time.Millisecond))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = client.New("test", "1.0", conn).Initialize(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	pid := readPID(t, pidFile)
	started := time.Now()
	require.NoError(t, conn.Close())
	assert.Less(t, time.Since(started), 2*time.Second)
	assert.False(t, processAlive(pid))
}

func TestNew_StdioMissingCommand(t *testing.T) {
	_, err := transport.New(context.Background(), &transport.Config{Name: "x", Transport: transport.Stdio, Command: "/nonexistent/mcp-server"}, nil)
	assert.Error(t, err)
}
