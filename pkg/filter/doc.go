// Package filter keeps the candidate pool limited to distinct human
// maintainers.
//
// [IsOrganization] is a pure predicate that flags vendor, organization and
// bot accounts. [Dedupe] runs a batch of records through that predicate and
// a session-wide "seen usernames" set in one left-to-right pass, so the
// first record from a publisher wins and later ones are dropped, whether
// they arrive in the same page or a later one.
//
// The vendor denylist is data, not code: [DefaultOrgs] ships a curated
// list, and [LoadOrgList] reads a YAML file that extends or replaces it:
//
//	orgs:
//	  - acme
//	  - initech
package filter
