// Package registry adapts the npm and GitHub clients to a single [Source]
// contract that yields [candidate.Record] values.
//
// Each source decodes its own wire format (npm search objects, GitHub
// repository items) and converts to Record before anything downstream sees
// it. Three sources exist:
//
//   - [NPM]: the npm search endpoint, ranked by the caller's [rank.Weights]
//   - [PyPI]: GitHub repository search restricted to language:python, the
//     stand-in for a PyPI search API that does not exist
//   - [GitHub]: GitHub repository search without a language filter
//
// Sources never retry. [Breaker] wraps a source with a circuit breaker so a
// registry that keeps failing is short-circuited instead of hammered; rate
// limits pass through it unchanged and do not count toward tripping.
package registry
