// Package mcpbridge implements a Model Context Protocol (MCP) server that
// exposes AgentWallet operations as MCP tools.
//
// Messages are newline-delimited JSON-RPC 2.0 on stdio.
package mcpbridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/agentwallet/agentwallet-go/pkg/client"
)

const (
	protocolVersion = "2024-11-05"
	serverName      = "agentwallet-mcp"
	maxMessageBytes = 1 << 20
)

// JSON-RPC 2.0 error codes used by the bridge.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

type message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *callError      `json:"error,omitempty"`
}

// isNotification reports whether m expects no reply.
func (m message) isNotification() bool { return len(m.ID) == 0 }

type callError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      serverInfo     `json:"serverInfo"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type toolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolResult struct {
	Content []toolContent `json:"content"`
	IsError bool          `json:"isError"`
}

// handlerFunc answers one request with a result or a call error.
type handlerFunc func(ctx context.Context, params json.RawMessage) (any, *callError)

// Server is a stdio MCP server bound to a ToolRegistry.
type Server struct {
	tools  *ToolRegistry
	logger *zap.Logger

	mu  sync.Mutex
	enc *json.Encoder

	methods map[string]handlerFunc
	// async lists methods that run off the read loop.
	async   map[string]bool
	pending sync.WaitGroup
}

// NewServer creates an MCP server that writes replies to w. logger must not
// write to w.
func NewServer(w io.Writer, tools *ToolRegistry, logger *zap.Logger) *Server {
	s := &Server{
		tools:  tools,
		logger: logger,
		enc:    json.NewEncoder(w),
		async:  map[string]bool{"tools/call": true},
	}
	s.methods = map[string]handlerFunc{
		"initialize": s.initialize,
		"ping":       func(context.Context, json.RawMessage) (any, *callError) { return struct{}{}, nil },
		"tools/list": s.listTools,
		"tools/call": s.callTool,
	}
	return s
}

// Serve handles messages from r until EOF or ctx ends. It returns once every
// outstanding tool call has replied. A message longer than 1 MiB is answered
// with an invalid-request error and skipped.
func (s *Server) Serve(ctx context.Context, r io.Reader) error {
	defer s.pending.Wait()

	in := bufio.NewReaderSize(r, 64<<10)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, oversized, readErr := readMessage(in, maxMessageBytes)
		switch {
		case oversized:
			s.logger.Warn("message too large, skipped", zap.Int("limit", maxMessageBytes))
			s.fail(json.RawMessage("null"), codeInvalidRequest, "message too large")
		case len(line) > 0:
			s.accept(ctx, line)
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

// readMessage reads one newline-terminated message. When it exceeds limit
// the rest of the line is consumed and discarded and oversized is true.
func readMessage(in *bufio.Reader, limit int) (line []byte, oversized bool, err error) {
	for {
		var chunk []byte
		chunk, err = in.ReadSlice('\n')
		if !oversized {
			if len(line)+len(bytes.TrimRight(chunk, "\r\n")) > limit {
				oversized, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return bytes.TrimSpace(line), oversized, err
	}
}

func (s *Server) accept(ctx context.Context, raw []byte) {
	var m message
	if err := json.Unmarshal(raw, &m); err != nil {
		s.fail(json.RawMessage("null"), codeParseError, "parse error")
		return
	}
	if m.isNotification() {
		return
	}
	if !s.async[m.Method] {
		s.handle(ctx, m)
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.handle(ctx, m)
	}()
}

func (s *Server) handle(ctx context.Context, m message) {
	fn, ok := s.methods[m.Method]
	if !ok {
		s.fail(m.ID, codeMethodNotFound, "method not found: "+m.Method)
		return
	}
	result, cerr := fn(ctx, m.Params)
	if cerr != nil {
		s.fail(m.ID, cerr.Code, cerr.Message)
		return
	}
	s.send(message{ID: m.ID, Result: result})
}

func (s *Server) initialize(context.Context, json.RawMessage) (any, *callError) {
	return initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities:    map[string]any{"tools": map[string]any{}},
		ServerInfo:      serverInfo{Name: serverName, Version: client.Version},
	}, nil
}

func (s *Server) listTools(context.Context, json.RawMessage) (any, *callError) {
	return map[string]any{"tools": s.tools.Definitions()}, nil
}

func (s *Server) callTool(ctx context.Context, raw json.RawMessage) (any, *callError) {
	var p struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &callError{Code: codeInvalidParams, Message: "invalid params"}
	}

	log := s.logger.With(zap.String("tool", p.Name))
	log.Info("tool call")
	text, failed := s.tools.Call(ctx, p.Name, p.Arguments)
	if failed {
		log.Warn("tool call failed", zap.String("error", text))
	}
	return toolResult{Content: []toolContent{{Type: "text", Text: text}}, IsError: failed}, nil
}

func (s *Server) fail(id json.RawMessage, code int, msg string) {
	s.send(message{ID: id, Error: &callError{Code: code, Message: msg}})
}

func (s *Server) send(m message) {
	m.JSONRPC = "2.0"
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(m); err != nil {
		s.logger.Error("write reply", zap.Error(err))
	}
}
