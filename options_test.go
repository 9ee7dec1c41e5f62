package mcpchat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/mcpchat/llm"
	"github.com/viant/mcpchat/store"
	"github.com/viant/mcpchat/transport"
)

func TestParseOptions(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	configURL := "mem://localhost/options-test/config.yaml"
	config := `addr: ":7070"
model: claude-test
callTimeout: 5s
corsOrigins: ["http://localhost:3000"]
servers:
  - name: fs
    transport: stdio
    command: npx
    args: ["-y", "server-fs"]
    autoConnect: true
`
	require.NoError(t, fs.Upload(ctx, configURL, 0o644, strings.NewReader(config)))

	testCases := []struct {
		description string
		args        []string
		expect      func(t *testing.T, options *Options)
		hasError    bool
	}{
		{
			description: "defaults",
			args:        []string{},
			expect: func(t *testing.T, options *Options) {
				assert.Equal(t, ":8080", options.Addr)
				assert.Equal(t, llm.DefaultModel, options.Model)
				assert.Equal(t, llm.DefaultMaxTokens, options.MaxTokens)
				assert.Equal(t, store.DefaultBaseURL, options.StoreURL)
				assert.Equal(t, 30*time.Second, options.ConnectTimeout)
				assert.Zero(t, options.CallTimeout)
			},
		},
		{
			description: "config file",
			args:        []string{"-c", configURL},
			expect: func(t *testing.T, options *Options) {
				assert.Equal(t, ":7070", options.Addr)
				assert.Equal(t, "claude-test", options.Model)
				assert.Equal(t, 5*time.Second, options.CallTimeout)
				assert.Equal(t, []string{"http://localhost:3000"}, options.CorsOrigins)
				require.Len(t, options.Servers, 1)
				assert.Equal(t, transport.Stdio, options.Servers[0].Transport)
				assert.True(t, options.Servers[0].AutoConnect)
			},
		},
		{
			description: "flags override config file",
			args:        []string{"-c", configURL, "-a", ":9090", "--call-timeout", "2s", "--debug"},
			expect: func(t *testing.T, options *Options) {
				assert.Equal(t, ":9090", options.Addr)
				assert.Equal(t, "claude-test", options.Model)
				assert.Equal(t, 2*time.Second, options.CallTimeout)
				assert.True(t, options.Debug)
			},
		},
		{
			description: "missing config file",
			args:        []string{"-c", "mem://localhost/options-test/missing.yaml"},
			hasError:    true,
		},
		{
			description: "unknown flag",
			args:        []string{"--unknown"},
			hasError:    true,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			options, err := ParseOptions(ctx, testCase.args)
			if testCase.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			testCase.expect(t, options)
		})
	}
}

func TestOptions_Validate(t *testing.T) {
	options := &Options{Servers: []*transport.Config{{Name: "remote", Transport: transport.SSE, URL: "not a url"}}}
	options.Init()
	err := options.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote")

	options = &Options{CallTimeout: -time.Second}
	assert.Error(t, options.Validate())
}
