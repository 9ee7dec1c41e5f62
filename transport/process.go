package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/jsonrpc"
	rpc "github.com/viant/jsonrpc/transport"
)

// DefaultGracePeriod is how long a stdio tool server may take to exit after its stdin is closed
// before it is killed.
const DefaultGracePeriod = 2 * time.Second

var errProcessClosed = errors.New("stdio transport is closed")

// process is a newline delimited JSON-RPC transport over the pipes of a child process it owns.
type process struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	handler rpc.Handler
	grace   time.Duration
	ctx     context.Context
	cancel  context.CancelFunc

	writeMux sync.Mutex
	mux      sync.Mutex
	pending  map[string]chan *jsonrpc.Response
	seq      atomic.Uint64

	exited  chan struct{}
	waitErr error
	once    sync.Once
}

// envelope is the part of an incoming message needed to route it.
type envelope struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
}

func (p *process) Send(ctx context.Context, request *jsonrpc.Request) (*jsonrpc.Response, error) {
	id := strconv.FormatUint(p.seq.Add(1), 10)
	data, err := frame(request, json.RawMessage(id))
	if err != nil {
		return nil, err
	}
	ch := make(chan *jsonrpc.Response, 1)
	p.mux.Lock()
	if p.pending == nil {
		p.mux.Unlock()
		return nil, errProcessClosed
	}
	p.pending[id] = ch
	p.mux.Unlock()
	defer p.forget(id)

	if err = p.write(data); err != nil {
		return nil, err
	}
	select {
	case response := <-ch:
		return response, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.exited:
		return nil, p.exitError()
	}
}

func (p *process) Notify(ctx context.Context, notification *jsonrpc.Notification) error {
	data, err := frame(notification, nil)
	if err != nil {
		return err
	}
	return p.write(data)
}

// Close closes stdin, waits up to the grace period for the process to exit, then kills it.
func (p *process) Close() error {
	p.once.Do(func() {
		_ = p.stdin.Close()
		select {
		case <-p.exited:
		case <-time.After(p.grace):
			_ = p.cmd.Process.Kill()
			<-p.exited
		}
		p.cancel()
	})
	return nil
}

func (p *process) write(data []byte) error {
	p.writeMux.Lock()
	defer p.writeMux.Unlock()
	select {
	case <-p.exited:
		return p.exitError()
	default:
	}
	if _, err := p.stdin.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write to %s: %w", p.cmd.Path, err)
	}
	return nil
}

func (p *process) forget(id string) {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.pending != nil {
		delete(p.pending, id)
	}
}

func (p *process) exitError() error {
	if p.waitErr != nil {
		return fmt.Errorf("tool server %s exited: %w", p.cmd.Path, p.waitErr)
	}
	return fmt.Errorf("tool server %s exited", p.cmd.Path)
}

func (p *process) read(stdout io.Reader) {
	reader := bufio.NewReader(stdout)
	for {
		line, err := reader.ReadBytes('\n')
		if line = bytes.TrimSpace(line); len(line) > 0 {
			p.dispatch(line)
		}
		if err != nil {
			return
		}
	}
}

func (p *process) dispatch(line []byte) {
	msg := &envelope{}
	if err := json.Unmarshal(line, msg); err != nil {
		return
	}
	hasID := len(msg.ID) > 0 && string(msg.ID) != "null"
	switch {
	case msg.Method == "" && hasID:
		response := &jsonrpc.Response{}
		if err := json.Unmarshal(line, response); err != nil {
			return
		}
		p.mux.Lock()
		ch, ok := p.pending[idKey(msg.ID)]
		p.mux.Unlock()
		if ok {
			select {
			case ch <- response:
			default:
			}
		}
	case msg.Method != "" && hasID:
		request := &jsonrpc.Request{}
		if err := json.Unmarshal(line, request); err != nil {
			return
		}
		if p.handler != nil {
			go p.serve(request)
		}
	case msg.Method != "" && p.handler != nil:
		notification := &jsonrpc.Notification{}
		if err := json.Unmarshal(line, notification); err != nil {
			return
		}
		p.handler.OnNotification(p.ctx, notification)
	}
}

func (p *process) serve(request *jsonrpc.Request) {
	response := &jsonrpc.Response{}
	p.handler.Serve(p.ctx, request, response)
	data, err := json.Marshal(response)
	if err != nil {
		return
	}
	_ = p.write(data)
}

func (p *process) wait() {
	p.waitErr = p.cmd.Wait()
	p.mux.Lock()
	p.pending = nil
	p.mux.Unlock()
	close(p.exited)
}

// frame marshals message with the jsonrpc version set and, when id is not nil, the given id.
func frame(message any, id json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err = json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	fields["jsonrpc"] = json.RawMessage(`"` + jsonrpc.Version + `"`)
	if id != nil {
		fields["id"] = id
	} else {
		delete(fields, "id")
	}
	return json.Marshal(fields)
}

func idKey(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	return string(bytes.TrimSpace(raw))
}

// startProcess spawns config.Command with config.Env added to the current environment.
func startProcess(config *Config, handler rpc.Handler, grace time.Duration) (*process, error) {
	cmd := exec.Command(config.Command, config.Args...)
	cmd.Env = append(os.Environ(), config.environ()...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", config.Command, err)
	}
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	ctx, cancel := context.WithCancel(context.Background())
	ret := &process{
		cmd:     cmd,
		stdin:   stdin,
		handler: handler,
		grace:   grace,
		ctx:     ctx,
		cancel:  cancel,
		pending: map[string]chan *jsonrpc.Response{},
		exited:  make(chan struct{}),
	}
	go ret.read(stdout)
	go ret.wait()
	return ret, nil
}
