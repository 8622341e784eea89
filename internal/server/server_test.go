package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ironsheep/lane-overlay/internal/pipeline"
)

func newTestServer() *Server {
	proc := pipeline.New(pipeline.DefaultParams(), zerolog.Nop())
	return New(proc, zerolog.Nop(), "test")
}

func TestNew(t *testing.T) {
	s := newTestServer()
	if s.frames == nil {
		t.Fatal("New() did not create a frame cache")
	}
	if s.processor == nil {
		t.Fatal("New() did not keep processor")
	}
	for _, m := range []string{"initialize", "tools/list", "tools/call", "ping"} {
		if _, ok := s.methods[m]; !ok {
			t.Errorf("method %s not registered", m)
		}
	}
}

func TestRequest_Unmarshal(t *testing.T) {
	tests := []struct {
		name       string
		json       string
		wantID     interface{}
		wantMethod string
	}{
		{"string id", `{"jsonrpc":"2.0","id":"test-1","method":"tools/list"}`, "test-1", "tools/list"},
		// JSON numbers decode as float64
		{"number id", `{"jsonrpc":"2.0","id":42,"method":"ping"}`, float64(42), "ping"},
		{"notification", `{"jsonrpc":"2.0","method":"notifications/initialized"}`, nil, "notifications/initialized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req Request
			if err := json.Unmarshal([]byte(tt.json), &req); err != nil {
				t.Fatalf("Failed to unmarshal: %v", err)
			}
			if req.ID != tt.wantID {
				t.Errorf("ID: got %v (%T), want %v (%T)", req.ID, req.ID, tt.wantID, tt.wantID)
			}
			if req.Method != tt.wantMethod {
				t.Errorf("Method: got %s, want %s", req.Method, tt.wantMethod)
			}
		})
	}
}

func TestErrorResponse_OmitsResult(t *testing.T) {
	s := newTestServer()
	data, err := json.Marshal(s.errorResponse(1, codeMethodNotFound, "Method not found", nil))
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if strings.Contains(string(data), `"result"`) || strings.Contains(string(data), `"data"`) {
		t.Errorf("error response should omit result and empty data: %s", data)
	}

	var decoded Response
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if decoded.Error == nil || decoded.Error.Code != codeMethodNotFound {
		t.Errorf("Error = %+v, want code %d", decoded.Error, codeMethodNotFound)
	}
}

func TestHandleRequest_Initialize(t *testing.T) {
	s := newTestServer()
	resp := s.handleRequest(&Request{JSONRPC: "2.0", ID: 1, Method: "initialize"})

	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	if result["protocolVersion"] != protocolVersion {
		t.Errorf("protocolVersion: got %v", result["protocolVersion"])
	}

	serverInfo, ok := result["serverInfo"].(map[string]interface{})
	if !ok {
		t.Fatal("serverInfo should be a map")
	}
	if serverInfo["name"] != "lane-overlay" || serverInfo["version"] != "test" {
		t.Errorf("serverInfo: got %v", serverInfo)
	}
}

func TestHandleRequest(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		wantNil  bool
		wantCode int
	}{
		{"ping", Request{JSONRPC: "2.0", ID: "ping-1", Method: "ping"}, false, 0},
		{"notification", Request{JSONRPC: "2.0", Method: "notifications/initialized"}, true, 0},
		{"cancel notification", Request{JSONRPC: "2.0", Method: "notifications/cancelled"}, true, 0},
		{"unknown method", Request{JSONRPC: "2.0", ID: 1, Method: "nonexistent/method"}, false, codeMethodNotFound},
		{"wrong version", Request{JSONRPC: "1.0", ID: 1, Method: "ping"}, false, codeInvalidRequest},
	}

	s := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.handleRequest(&tt.req)
			if tt.wantNil {
				if resp != nil {
					t.Errorf("expected no response, got %+v", resp)
				}
				return
			}
			if resp == nil {
				t.Fatal("handleRequest returned nil")
			}
			if resp.ID != tt.req.ID {
				t.Errorf("ID: got %v, want %v", resp.ID, tt.req.ID)
			}
			switch {
			case tt.wantCode == 0 && resp.Error != nil:
				t.Errorf("unexpected error: %+v", resp.Error)
			case tt.wantCode != 0 && (resp.Error == nil || resp.Error.Code != tt.wantCode):
				t.Errorf("error = %+v, want code %d", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestServe(t *testing.T) {
	s := newTestServer()
	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`not json`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	}, "\n")

	var out bytes.Buffer
	if err := s.Serve(context.Background(), strings.NewReader(input), &out); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d responses, want 3:\n%s", len(lines), out.String())
	}

	var parseErr Response
	if err := json.Unmarshal([]byte(lines[1]), &parseErr); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if parseErr.Error == nil || parseErr.Error.Code != codeParseError || parseErr.ID != nil {
		t.Errorf("bad line response = %+v, want parse error with null id", parseErr)
	}

	var ping Response
	if err := json.Unmarshal([]byte(lines[2]), &ping); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if ping.ID != float64(2) {
		t.Errorf("ID: got %v, want 2", ping.ID)
	}
}

func TestServe_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := newTestServer().Serve(ctx, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &out)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
	if out.Len() != 0 {
		t.Errorf("canceled server wrote %q", out.String())
	}
}
