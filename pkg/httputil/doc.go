// Package httputil provides the HTTP plumbing shared by registry clients and
// backend connectors.
//
//   - [NewClient]: an http.Client whose transport resolves hosts through a
//     process-wide DNS cache, with a request timeout
//   - [Retry]: bounded exponential backoff for operations that opt in by
//     wrapping failures in [RetryableError]
//
// Registry and profile clients never retry: a failed search is reported to
// the user as-is. [Retry] is used where a retry is a startup concern, such as
// the first PING to Redis or MongoDB.
package httputil
