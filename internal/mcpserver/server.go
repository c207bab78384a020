package mcpserver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"shire/internal/logging"
	"shire/internal/store"
)

type serverState int

const (
	stateUninitialized serverState = iota
	stateInitialized
	stateClosed
)

const protocolVersion = "2024-11-05"

// Server serves the catalog's query layer as an MCP tool server over a
// line-delimited JSON-RPC transport. One Server instance handles exactly
// one client connection; it is not meant to be shared across goroutines
// beyond the single read loop in Serve.
type Server struct {
	querier *store.Querier

	mu    sync.Mutex
	state serverState
}

// NewServer wraps an already-open read-only querier.
func NewServer(q *store.Querier) *Server {
	return &Server{querier: q}
}

// Serve runs the read/dispatch/write loop until r is exhausted or closed.
// Each line of r must hold exactly one JSON-RPC request object.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	log := logging.Get(logging.CategoryMCP)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	out := bufio.NewWriter(w)
	defer out.Flush()

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			writeResponse(out, errResponse(nil, errCodeParse, "parse error: "+err.Error()))
			continue
		}

		resp := s.dispatch(req)
		if resp == nil {
			// Notifications (no id) get no response, per JSON-RPC.
			continue
		}
		if err := writeResponse(out, *resp); err != nil {
			log.Error("write response failed", "error", err)
			return err
		}
	}
	return scanner.Err()
}

func writeResponse(w *bufio.Writer, resp response) error {
	resp.JSONRPC = "2.0"
	b, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("mcpserver: encode response: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}

func (s *Server) dispatch(req request) *response {
	log := logging.Get(logging.CategoryMCP)
	reqID := uuid.NewString()
	log.Debug("dispatch request", "request_id", reqID, "method", req.Method)

	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if state == stateClosed {
		if req.ID == nil {
			return nil
		}
		r := errResponse(req.ID, errCodeInvalidRequest, "server closed")
		return &r
	}

	switch req.Method {
	case "initialize":
		s.mu.Lock()
		s.state = stateInitialized
		s.mu.Unlock()
		r := okResponse(req.ID, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]any{
				"tools":   map[string]any{},
				"prompts": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    "shire",
				"version": "1.0.0",
			},
		})
		return &r

	case "notifications/initialized":
		// No response expected for notifications.
		return nil

	case "tools/list":
		if req.ID == nil {
			return nil
		}
		schemas := make([]toolSchema, 0, len(tools))
		for _, t := range tools {
			schemas = append(schemas, t.schema)
		}
		r := okResponse(req.ID, map[string]any{"tools": schemas})
		return &r

	case "tools/call":
		return s.handleToolCall(req, reqID)

	case "prompts/list":
		if req.ID == nil {
			return nil
		}
		schemas := make([]promptSchema, 0, len(prompts))
		for _, p := range prompts {
			schemas = append(schemas, p.schema)
		}
		r := okResponse(req.ID, map[string]any{"prompts": schemas})
		return &r

	case "prompts/get":
		return s.handlePromptGet(req, reqID)

	default:
		if req.ID == nil {
			return nil
		}
		log.Warn("unknown method", "request_id", reqID, "method", req.Method)
		r := errResponse(req.ID, errCodeMethodNotFound, "method not found: "+req.Method)
		return &r
	}
}

func (s *Server) handleToolCall(req request, reqID string) *response {
	log := logging.Get(logging.CategoryMCP)
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		r := errResponse(req.ID, errCodeInvalidParams, "invalid params: "+err.Error())
		return &r
	}

	tool, ok := findTool(params.Name)
	if !ok {
		r := errResponse(req.ID, errCodeMethodNotFound, "unknown tool: "+params.Name)
		return &r
	}

	if params.Arguments == nil {
		params.Arguments = json.RawMessage("{}")
	}
	text, err := tool.handler(s.querier, params.Arguments)
	if err != nil {
		log.Error("tool call failed", "request_id", reqID, "tool", params.Name, "error", err)
		r := errResponse(req.ID, errCodeInternal, err.Error())
		return &r
	}

	log.Info("tool call completed", "request_id", reqID, "tool", params.Name)
	r := okResponse(req.ID, textResult(text))
	return &r
}

func (s *Server) handlePromptGet(req request, reqID string) *response {
	log := logging.Get(logging.CategoryMCP)
	var params struct {
		Name      string            `json:"name"`
		Arguments map[string]string `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		r := errResponse(req.ID, errCodeInvalidParams, "invalid params: "+err.Error())
		return &r
	}

	prompt, ok := findPrompt(params.Name)
	if !ok {
		r := errResponse(req.ID, errCodeMethodNotFound, "unknown prompt: "+params.Name)
		return &r
	}

	text, err := prompt.handler(s.querier, params.Arguments)
	if err != nil {
		log.Error("prompt get failed", "request_id", reqID, "prompt", params.Name, "error", err)
		r := errResponse(req.ID, errCodeInvalidParams, err.Error())
		return &r
	}

	log.Info("prompt get completed", "request_id", reqID, "prompt", params.Name)

	r := okResponse(req.ID, map[string]any{
		"description": prompt.schema.Description,
		"messages": []map[string]any{
			{"role": "user", "content": textContent{Type: "text", Text: text}},
		},
	})
	return &r
}
