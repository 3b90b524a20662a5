// Package integrations provides HTTP clients for the upstream APIs the
// discovery pipeline reads from.
//
// # Overview
//
// Each upstream has its own subpackage:
//
//   - [npm]: the npm registry search endpoint
//   - [github]: GitHub repository search, user profiles and device-flow login
//
// # Shared Infrastructure
//
// The [Client] type carries default headers, status mapping and HTTP
// observability hooks. Every subpackage embeds it, so all upstream failures
// surface the same way:
//
//   - 403, 429: *errors.RateLimitError
//   - every other non-200 status, transport and decode failures:
//     *errors.RegistryError carrying the status
//   - 404 additionally matches [ErrNotFound] through errors.Is
//
// Clients do not retry and do not cache. Caching of profiles lives in the
// profile enricher; retries, if any, are a caller policy.
//
// [npm]: github.com/matzehuels/devscout/pkg/integrations/npm
// [github]: github.com/matzehuels/devscout/pkg/integrations/github
package integrations
