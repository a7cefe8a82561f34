package gateway

import (
	"encoding/json"
	"net/url"
	"strings"
)

const connectionIDParam = "connectionId"

// ExtractConnectionID finds the session identifier for a request. Different
// invocation contexts surface the same logical query string through
// different request fields, so four sources are tried in order until one
// yields a non-empty value:
//
//  1. a "connectionId=" substring in the raw path
//  2. the structured query map, if the caller populated one
//  3. a "connectionId" field on a JSON body
//  4. parsing the path as a URL (with a synthetic base, since the path may
//     be relative) and reading its query parameter
//
// Path and query sources deliberately precede the body.
func ExtractConnectionID(req Request) string {
	if id := idFromPathSubstring(req.Path); id != "" {
		return id
	}

	if id := req.Query[connectionIDParam]; id != "" {
		return id
	}

	if id := idFromBody(req.Body); id != "" {
		return id
	}

	return idFromParsedPath(req.Path)
}

func idFromPathSubstring(path string) string {
	marker := connectionIDParam + "="
	i := strings.Index(path, marker)
	if i < 0 {
		return ""
	}

	v := path[i+len(marker):]
	if j := strings.IndexAny(v, "&#"); j >= 0 {
		v = v[:j]
	}
	if unescaped, err := url.QueryUnescape(v); err == nil {
		return unescaped
	}
	return v
}

func idFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var probe struct {
		ConnectionID string `json:"connectionId"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}
	return probe.ConnectionID
}

func idFromParsedPath(path string) string {
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u, err := url.Parse("http://localhost" + path)
	if err != nil {
		return ""
	}
	return u.Query().Get(connectionIDParam)
}
