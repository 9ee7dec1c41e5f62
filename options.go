package mcpchat

import (
	"context"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/viant/afs"
	"github.com/viant/mcpchat/blob"
	"github.com/viant/mcpchat/llm"
	"github.com/viant/mcpchat/store"
	"github.com/viant/mcpchat/transport"
	"gopkg.in/yaml.v3"
)

const (
	defaultAddr           = ":8080"
	defaultPublicURL      = "http://localhost:8080/images"
	defaultConnectTimeout = 30 * time.Second
)

// Options defines process configuration. Command line values override the yaml config file.
type Options struct {
	Addr           string              `yaml:"addr,omitempty" short:"a" long:"addr" description:"listen address (default :8080)"`
	ConfigURL      string              `yaml:"-" short:"c" long:"config" description:"yaml config file"`
	Model          string              `yaml:"model,omitempty" short:"m" long:"model" description:"model name"`
	MaxTokens      int                 `yaml:"maxTokens,omitempty" long:"max-tokens" description:"max tokens per model response"`
	APIKey         string              `yaml:"apiKey,omitempty" long:"api-key" description:"model API key" env:"ANTHROPIC_API_KEY"`
	SystemPrompt   string              `yaml:"systemPrompt,omitempty" long:"system" description:"system prompt"`
	StoreURL       string              `yaml:"store,omitempty" long:"store" description:"server and session store base URL"`
	BlobURL        string              `yaml:"blob,omitempty" long:"blob" description:"image store base URL"`
	PublicURL      string              `yaml:"publicURL,omitempty" long:"public-url" description:"public base URL of stored images"`
	CallTimeout    time.Duration       `yaml:"callTimeout,omitempty" long:"call-timeout" description:"tool call deadline, 0 for none"`
	ConnectTimeout time.Duration       `yaml:"connectTimeout,omitempty" long:"connect-timeout" description:"tool server handshake deadline"`
	Debug          bool                `yaml:"debug,omitempty" long:"debug" description:"debug logging"`
	CorsOrigins    []string            `yaml:"corsOrigins,omitempty" long:"cors-origin" description:"allowed CORS origin, repeatable"`
	Servers        []*transport.Config `yaml:"servers,omitempty" no-flag:"true"`
}

// Init sets defaults for unset options.
func (o *Options) Init() {
	if o.Addr == "" {
		o.Addr = defaultAddr
	}
	if o.Model == "" {
		o.Model = llm.DefaultModel
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = llm.DefaultMaxTokens
	}
	if o.StoreURL == "" {
		o.StoreURL = store.DefaultBaseURL
	}
	if o.BlobURL == "" {
		o.BlobURL = blob.DefaultBaseURL
	}
	if o.PublicURL == "" {
		o.PublicURL = defaultPublicURL
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
}

// Validate checks the options and every configured server.
func (o *Options) Validate() error {
	if o.CallTimeout < 0 {
		return fmt.Errorf("invalid call timeout: %v", o.CallTimeout)
	}
	for i, server := range o.Servers {
		if server == nil {
			return fmt.Errorf("invalid server #%d: empty", i)
		}
		if err := server.Validate(); err != nil {
			return fmt.Errorf("invalid server %q: %w", server.Name, err)
		}
	}
	return nil
}

// merge overlays non zero values of src.
func (o *Options) merge(src *Options) {
	if src.Addr != "" {
		o.Addr = src.Addr
	}
	if src.Model != "" {
		o.Model = src.Model
	}
	if src.MaxTokens > 0 {
		o.MaxTokens = src.MaxTokens
	}
	if src.APIKey != "" {
		o.APIKey = src.APIKey
	}
	if src.SystemPrompt != "" {
		o.SystemPrompt = src.SystemPrompt
	}
	if src.StoreURL != "" {
		o.StoreURL = src.StoreURL
	}
	if src.BlobURL != "" {
		o.BlobURL = src.BlobURL
	}
	if src.PublicURL != "" {
		o.PublicURL = src.PublicURL
	}
	if src.CallTimeout != 0 {
		o.CallTimeout = src.CallTimeout
	}
	if src.ConnectTimeout != 0 {
		o.ConnectTimeout = src.ConnectTimeout
	}
	if src.Debug {
		o.Debug = true
	}
	if len(src.CorsOrigins) > 0 {
		o.CorsOrigins = src.CorsOrigins
	}
	o.Servers = append(o.Servers, src.Servers...)
}

// LoadOptions reads yaml options from URL; any afs supported location works.
func LoadOptions(ctx context.Context, URL string) (*Options, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", URL, err)
	}
	ret := &Options{}
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", URL, err)
	}
	return ret, nil
}

// ParseOptions parses command line args, merging the config file they reference.
func ParseOptions(ctx context.Context, args []string) (*Options, error) {
	cli := &Options{}
	if _, err := flags.ParseArgs(cli, args); err != nil {
		return nil, err
	}
	ret := &Options{}
	if cli.ConfigURL != "" {
		loaded, err := LoadOptions(ctx, cli.ConfigURL)
		if err != nil {
			return nil, err
		}
		ret = loaded
		ret.ConfigURL = cli.ConfigURL
	}
	ret.merge(cli)
	ret.Init()
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
