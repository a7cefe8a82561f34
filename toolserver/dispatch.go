package toolserver

import (
	"context"
	"encoding/json"

	"github.com/cirrustream/cirrus/errors"
)

// ToolCall is the structured inbound envelope the bridge accepts alongside
// raw JSON-RPC: a tagged variant naming the tool and its parameters.
type ToolCall struct {
	Type       string          `json:"type"`
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// jsonrpcProbe detects payloads that are already JSON-RPC messages.
type jsonrpcProbe struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
}

type jsonrpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  jsonrpcParams `json:"params"`
}

type jsonrpcParams struct {
	Name      string          `json:"name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Dispatch consumes one delivered inbound payload, runs it through the MCP
// server, and returns the serialized response message. A nil response with
// nil error means the payload was a notification with nothing to send back.
//
// Payload variants are tried in order as explicit decode attempts rather
// than field sniffing:
//  1. raw JSON-RPC ("jsonrpc" + "method" present) passes through verbatim
//  2. a ToolCall envelope becomes a tools/call request
//  3. {"type":"list_tools"} becomes a tools/list request
//
// Anything else is a parse failure surfaced to the delivery boundary.
func (s *Server) Dispatch(ctx context.Context, payload []byte) ([]byte, error) {
	rpc, err := s.toJSONRPC(payload)
	if err != nil {
		return nil, err
	}

	resp := s.mcp.HandleMessage(ctx, rpc)
	if resp == nil {
		return nil, nil
	}

	out, err := json.Marshal(resp)
	if err != nil {
		return nil, errors.WrapFatal(err, "ToolServer", "Dispatch", "response marshal")
	}
	return out, nil
}

func (s *Server) toJSONRPC(payload []byte) (json.RawMessage, error) {
	var probe jsonrpcProbe
	if err := json.Unmarshal(payload, &probe); err == nil &&
		probe.JSONRPC != "" && probe.Method != "" {
		return payload, nil
	}

	var call ToolCall
	if err := json.Unmarshal(payload, &call); err != nil {
		return nil, errors.WrapInvalid(
			errors.ErrParsingFailed, "ToolServer", "toJSONRPC", "payload decode")
	}

	switch {
	case call.Type != "" && call.Name != "":
		return s.buildRequest("tools/call", jsonrpcParams{
			Name:      call.Name,
			Arguments: call.Parameters,
		})
	case call.Type == "list_tools":
		return s.buildRequest("tools/list", jsonrpcParams{})
	default:
		return nil, errors.WrapInvalid(
			errors.ErrParsingFailed, "ToolServer", "toJSONRPC", "envelope recognition")
	}
}

func (s *Server) buildRequest(method string, params jsonrpcParams) (json.RawMessage, error) {
	req := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      s.nextID(),
		Method:  method,
		Params:  params,
	}
	out, err := json.Marshal(req)
	if err != nil {
		return nil, errors.WrapFatal(err, "ToolServer", "buildRequest", "request marshal")
	}
	return out, nil
}
