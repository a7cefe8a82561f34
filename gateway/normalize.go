package gateway

import (
	"encoding/json"
)

// NormalizeBody selects the payload forwarded to the protocol handler from
// a raw /messages body. Variants are tried as explicit decode attempts:
//
//  1. already a JSON-RPC message ("jsonrpc" + "method") — pass through
//  2. already a structured call (both "type" and "name") — pass through
//  3. a generic envelope with a "message" field — unwrap the field
//  4. anything else — the raw body
//
// The router never rewrites payload contents; it only decides which bytes
// travel onward.
func NormalizeBody(body []byte) []byte {
	if len(body) == 0 {
		return body
	}

	var rpc struct {
		JSONRPC string `json:"jsonrpc"`
		Method  string `json:"method"`
	}
	if err := json.Unmarshal(body, &rpc); err == nil &&
		rpc.JSONRPC != "" && rpc.Method != "" {
		return body
	}

	var call struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &call); err == nil &&
		call.Type != "" && call.Name != "" {
		return body
	}

	var envelope struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil &&
		len(envelope.Message) > 0 {
		// A quoted message is a serialized payload in its own right.
		if envelope.Message[0] == '"' {
			var inner string
			if err := json.Unmarshal(envelope.Message, &inner); err == nil {
				return []byte(inner)
			}
		}
		return envelope.Message
	}

	return body
}
