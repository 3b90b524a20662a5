// Package discovery runs the candidate search pipeline.
//
// A search turns a free-text skill query into a ranked, deduplicated list of
// developers:
//
//	query → registry page → dedupe + org filter → enrichment → merge
//
// State lives in a [Session] value. Every change to it goes through
// [Reduce], a pure function over [Event] values, so the state machine can be
// tested without any I/O. [Orchestrator] owns one Session, performs the
// fetches and feeds their outcomes back through Reduce.
//
// # Pagination
//
// [Orchestrator.Search] resets the session and loads the first page.
// [Orchestrator.LoadMore] advances the offset by one page and appends
// survivors. The seen set for a load-more is seeded from every candidate
// already accepted, so the accumulated list never holds two candidates with
// the same publisher.
//
// # Enrichment
//
// [EnrichBatch] attaches GitHub profiles to at most EnrichCap leading
// survivors, concurrently, and merges results back by index. A rate limit
// stops the batch: whatever has not resolved passes through unenriched and
// the session error becomes RATE_LIMIT.
//
// # Concurrency
//
// Calls on one Orchestrator never interleave. A Search or LoadMore issued
// while another is in flight returns [ErrBusy] and leaves the session
// untouched. [Orchestrator.Reset] bumps the session generation, and any
// result still in flight for the old generation is discarded on arrival.
package discovery
