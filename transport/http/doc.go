// Package httptransport implements types.Transport over HTTP with fasthttp.
//
// Operation methods map to HTTP verbs (CREATE → POST, UPDATE → PUT,
// DELETE → DELETE; other tags are sent upper-cased). Targets are resolved
// against a base URL unless they are absolute.
//
// Error mapping:
//
//   - A response with status >= 400 is returned together with a
//     *types.TransportError carrying that status
//   - A failure with no response (refused, DNS, timeout, cancelled context)
//     is a *types.TransportError with Status 0
//
// which is exactly what types.Classify expects.
package httptransport
