package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/loopwork-ai/artisan-mcp/jsonrpc"
)

// Method is a known MCP method
type Method int

const (
	MethodUnknown Method = iota
	MethodInitialize
	MethodToolsList
	MethodToolsCall
	MethodPing
)

var methodNames = map[string]Method{
	"initialize": MethodInitialize,
	"tools/list": MethodToolsList,
	"tools/call": MethodToolsCall,
	"ping":       MethodPing,
}

// ParseMethod maps a method name to a Method
func ParseMethod(name string) Method {
	if m, ok := methodNames[name]; ok {
		return m
	}
	return MethodUnknown
}

func (m Method) String() string {
	for name, method := range methodNames {
		if method == m {
			return name
		}
	}
	return "unknown"
}

// RequiresInitialization reports whether the method is gated on a prior initialize
func (m Method) RequiresInitialization() bool {
	switch m {
	case MethodToolsList, MethodToolsCall:
		return true
	default:
		return false
	}
}

type methodHandler func(ctx context.Context, request jsonrpc.Request) jsonrpc.Response

// Server represents an MCP server that processes JSON-RPC requests
type Server struct {
	info         ServerInfo
	instructions string
	registry     *Registry
	config       map[string]any
	logger       *slog.Logger
	callTimeout  time.Duration

	// abandoned is closed when a tool that outlived its timeout returns
	abandoned <-chan struct{}

	initialized bool
	handlers    map[Method]methodHandler
}

var _ jsonrpc.Handler = &Server{}

// ServerOption configures a Server
type ServerOption func(*Server) error

// WithRegistry sets the tool registry
func WithRegistry(registry *Registry) ServerOption {
	return func(s *Server) error {
		if registry == nil {
			return errors.New("registry cannot be nil")
		}
		s.registry = registry
		return nil
	}
}

// WithServerInfo sets the name and version reported by initialize
func WithServerInfo(name, version string) ServerOption {
	return func(s *Server) error {
		s.info = ServerInfo{Name: name, Version: version}
		return nil
	}
}

// WithInstructions sets the instructions returned by initialize
func WithInstructions(instructions string) ServerOption {
	return func(s *Server) error {
		s.instructions = instructions
		return nil
	}
}

// WithConfig stores configuration shared with tools. The server does not
// interpret it.
func WithConfig(config map[string]any) ServerOption {
	return func(s *Server) error {
		s.config = config
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithCallTimeout bounds each tool execution. Zero disables the limit.
// A tool that ignores cancellation keeps running after its call fails;
// the next call waits for it to return before starting.
func WithCallTimeout(timeout time.Duration) ServerOption {
	return func(s *Server) error {
		if timeout < 0 {
			return fmt.Errorf("call timeout cannot be negative: %s", timeout)
		}
		s.callTimeout = timeout
		return nil
	}
}

// NewServer creates a new MCP server instance
func NewServer(opts ...ServerOption) (*Server, error) {
	s := &Server{
		info:     ServerInfo{Name: "artisan-mcp", Version: "dev"},
		registry: NewRegistry(),
		config:   map[string]any{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.handlers = map[Method]methodHandler{
		MethodInitialize: s.handleInitialize,
		MethodToolsList:  s.handleToolsList,
		MethodToolsCall:  s.handleToolsCall,
		MethodPing:       s.handlePing,
		MethodUnknown:    s.handleUnknown,
	}

	return s, nil
}

// Registry returns the server's tool registry
func (s *Server) Registry() *Registry {
	return s.registry
}

// Config returns the configuration passed with WithConfig
func (s *Server) Config() map[string]any {
	return s.config
}

// Initialized reports whether initialize has succeeded
func (s *Server) Initialized() bool {
	return s.initialized
}

// Serve reads messages from t until the input ends, handling one message
// at a time and writing responses in request order.
func (s *Server) Serve(ctx context.Context, t Transport) error {
	s.logger.Info("serving", "tools", s.registry.Len())

	for {
		line, err := t.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("input closed")
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			s.logger.Error("read failed, shutting down", "error", err)
			return nil
		}

		response, ok := s.process(ctx, line)
		if !ok {
			continue
		}

		data, err := jsonrpc.Encode(response)
		if err != nil {
			s.logger.Error("encode failed", "id", response.ID.GoString(), "error", err)
			data, err = jsonrpc.Encode(jsonrpc.NewResponse(response.ID, nil, jsonrpc.NewError(jsonrpc.ErrInternal, err.Error())))
			if err != nil {
				return err
			}
		}

		if err := t.Write(data); err != nil {
			return fmt.Errorf("error writing response: %w", err)
		}
	}
}

// process decodes and handles one line. It reports false when nothing
// should be written back.
func (s *Server) process(ctx context.Context, line []byte) (jsonrpc.Response, bool) {
	msg, err := jsonrpc.Decode(line)
	if err != nil {
		var decodeErr *jsonrpc.DecodeError
		var id jsonrpc.ID
		if errors.As(err, &decodeErr) && decodeErr.HasID {
			id = decodeErr.ID
		}
		s.logger.Warn("undecodable message", "error", err, "id", id.GoString())
		return jsonrpc.NewResponse(id, nil, jsonrpc.NewError(jsonrpc.ErrParse, err.Error())), true
	}

	if msg.IsResponse() {
		s.logger.Debug("ignoring response from peer", "id", msg.ID.GoString())
		return jsonrpc.Response{}, false
	}

	response := s.Handle(ctx, msg.Request())
	if msg.IsNotification() {
		s.logger.Debug("handled notification", "method", msg.Method)
		return jsonrpc.Response{}, false
	}
	return response, true
}

// Handle processes a single JSON-RPC request and returns a response
func (s *Server) Handle(ctx context.Context, request jsonrpc.Request) jsonrpc.Response {
	method := ParseMethod(request.Method)
	s.logger.Debug("handling request", "method", request.Method, "id", request.ID.GoString())

	if method.RequiresInitialization() && !s.initialized {
		s.logger.Warn("request before initialize", "method", request.Method)
		return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewErrorf(jsonrpc.ErrInternal, "Server not initialized"))
	}

	return s.handlers[method](ctx, request)
}

func (s *Server) handleInitialize(_ context.Context, request jsonrpc.Request) jsonrpc.Response {
	var params InitializeRequest
	if len(request.Params) > 0 {
		if err := json.Unmarshal(request.Params, &params); err != nil {
			s.logger.Debug("ignoring unreadable initialize params", "error", err)
		}
	}

	if s.initialized {
		s.logger.Debug("already initialized")
	} else {
		s.initialized = true
		attrs := []any{"clientProtocol", params.ProtocolVersion}
		if params.ClientInfo != nil {
			attrs = append(attrs, "client", params.ClientInfo.Name, "clientVersion", params.ClientInfo.Version)
		}
		s.logger.Info("initialized", attrs...)
	}

	return jsonrpc.NewResponse(request.ID, InitializeResponse{
		ProtocolVersion: Version,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{ListChanged: false},
		},
		ServerInfo:   s.info,
		Instructions: s.instructions,
	}, nil)
}

func (s *Server) handleToolsList(_ context.Context, request jsonrpc.Request) jsonrpc.Response {
	tools := []ToolInfo{}
	for _, tool := range s.registry.All() {
		tools = append(tools, ToolInfo{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.InputSchema(),
			Annotations: &ToolAnnotations{ReadOnlyHint: tool.ReadOnly()},
		})
	}

	return jsonrpc.NewResponse(request.ID, ToolsListResponse{Tools: tools}, nil)
}

func (s *Server) handleToolsCall(ctx context.Context, request jsonrpc.Request) jsonrpc.Response {
	var params ToolCallRequest
	if err := json.Unmarshal(request.Params, &params); err != nil {
		return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewError(jsonrpc.ErrInvalidParams, err.Error()))
	}

	if _, ok := s.registry.Get(params.Name); !ok {
		return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewErrorf(jsonrpc.ErrMethodNotFound, "Tool not found: %s", params.Name))
	}

	var args map[string]any
	if len(params.Arguments) > 0 && !bytes.Equal(bytes.TrimSpace(params.Arguments), []byte("null")) {
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewErrorf(jsonrpc.ErrInvalidParams, "arguments must be an object: %v", err))
		}
	}

	start := time.Now()
	result, err := s.CallTool(ctx, params.Name, args)
	var invalid *InvalidResultError
	switch {
	case errors.Is(err, ErrToolNotFound):
		return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewErrorf(jsonrpc.ErrMethodNotFound, "Tool not found: %s", params.Name))
	case errors.As(err, &invalid):
		s.logger.Error("tool returned invalid result", "tool", invalid.Tool, "error", invalid.Err)
		return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewErrorf(jsonrpc.ErrInternal, "%s", invalid.Error()))
	case err != nil:
		s.logger.Error("tool failed", "tool", params.Name, "error", err, "duration", time.Since(start))
		rpcErr := jsonrpc.NewErrorf(jsonrpc.ErrInternal, "%s", err.Error())
		return jsonrpc.NewResponse(request.ID, nil, rpcErr.WithData(FaultResult(params.Name, err)))
	}
	s.logger.Debug("tool finished", "tool", params.Name, "status", result.Status, "duration", time.Since(start))

	text, err := json.Marshal(result)
	if err != nil {
		return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewErrorf(jsonrpc.ErrInternal, "error encoding result of %s: %v", params.Name, err))
	}

	return jsonrpc.NewResponse(request.ID, ToolCallResponse{
		Content:           []Content{NewTextContent(string(text), []Role{RoleAssistant}, nil)},
		StructuredContent: result,
		IsError:           result.Status == StatusError,
	}, nil)
}

// ErrToolNotFound is returned by CallTool for a name not in the registry
var ErrToolNotFound = errors.New("tool not found")

// InvalidResultError reports a tool that returned a result violating the
// envelope invariants
type InvalidResultError struct {
	Tool string
	Err  error
}

func (e *InvalidResultError) Error() string {
	return fmt.Sprintf("tool %s returned an invalid result: %v", e.Tool, e.Err)
}

func (e *InvalidResultError) Unwrap() error { return e.Err }

// CallTool looks up and runs a registered tool. It does not require
// initialization. Errors, panics and timeouts inside the tool are returned
// as an error and never as a result.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	tool, ok := s.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if args == nil {
		args = map[string]any{}
	}

	result, err := s.callTool(ctx, tool, args)
	if err != nil {
		return nil, err
	}
	if result != nil && result.Tool == "" {
		result.Tool = tool.Name()
	}
	if err := result.Validate(); err != nil {
		return nil, &InvalidResultError{Tool: tool.Name(), Err: err}
	}
	return result, nil
}

// callTool runs tool under the configured timeout. Errors, panics and
// timeouts inside the tool all surface here as a returned error.
func (s *Server) callTool(ctx context.Context, tool Tool, args map[string]any) (*ToolResult, error) {
	if s.abandoned != nil {
		s.logger.Debug("waiting for timed out tool to return", "tool", tool.Name())
		select {
		case <-s.abandoned:
			s.abandoned = nil
		case <-ctx.Done():
			return nil, fmt.Errorf("tool %s: previous call still running: %w", tool.Name(), ctx.Err())
		}
	}

	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	type outcome struct {
		result *ToolResult
		err    error
	}
	done := make(chan outcome, 1)
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic in tool %s: %v", tool.Name(), r)}
			}
		}()
		result, err := tool.Execute(ctx, args)
		done <- outcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		s.abandoned = finished
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("tool %s timed out after %s", tool.Name(), s.callTimeout)
		}
		return nil, fmt.Errorf("tool %s: %w", tool.Name(), ctx.Err())
	}
}

func (s *Server) handlePing(_ context.Context, request jsonrpc.Request) jsonrpc.Response {
	return jsonrpc.NewResponse(request.ID, PingResponse{}, nil)
}

func (s *Server) handleUnknown(_ context.Context, request jsonrpc.Request) jsonrpc.Response {
	return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewErrorf(jsonrpc.ErrMethodNotFound, "Method not found: %s", request.Method))
}
