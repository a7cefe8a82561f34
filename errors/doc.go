// Package errors provides standardized error handling patterns for cirrus.
//
// # Overview
//
// The errors package implements a four-class error classification system for
// the transport bridge: Transient (temporary, retryable), Invalid (bad input,
// non-retryable), NotFound (missing session or route), and Fatal
// (unrecoverable, stop processing).
//
// Classification is what lets the request router translate internal failures
// into HTTP-shaped responses at a single boundary: Invalid becomes 400,
// NotFound becomes 404, Transient becomes 503, Fatal becomes 500. Components
// below the router never construct status codes; they return classified
// errors.
//
// The classification system integrates with Go's standard error handling,
// supporting errors.Is(), errors.As(), and error wrapping chains.
//
// # Quick Start
//
// Return standard error variables for known conditions:
//
//	if sess == nil {
//	    return errors.ErrSessionNotFound
//	}
//
// Wrap errors with component context:
//
//	if err := registry.Append(id, payload); err != nil {
//	    return errors.WrapNotFound(err, "Router", "Deliver", "session lookup")
//	}
//
// Check classification at the response boundary:
//
//	switch {
//	case errors.IsInvalid(err):
//	    // 400
//	case errors.IsNotFound(err):
//	    // 404
//	}
package errors
