// Package pkg provides the core libraries for devscout developer discovery.
//
// # Overview
//
// devscout finds developers through the packages they publish. A skill
// query goes to a package registry, the hits are reduced to one candidate
// per publisher, organization accounts are dropped and the top of every
// page is enriched with the publisher's GitHub profile. The pkg directory
// is organized into four areas:
//
//  1. Domain model: [candidate], [rank], [filter]
//  2. Discovery: [registry], [profile], [discovery]
//  3. Infrastructure: [cache], [store], [session], [httputil], [observability]
//  4. Integrations: [integrations] (npm and GitHub clients)
//
// # Architecture
//
// The data flow of one search:
//
//	skill query ("react, typescript")
//	         ↓
//	    [registry] package (npm search, or GitHub repo search for PyPI/GitHub)
//	         ↓
//	    [filter] package (drop organizations, dedupe by publisher)
//	         ↓
//	    [profile] package (GitHub profile lookup, 24h cache)
//	         ↓
//	    [discovery] session state (results, offset, has_more, error)
//	         ↓
//	    CLI table, TUI, JSON API, [store] saved candidates, [export] CSV/JSON
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/devscout/pkg/cache"
//	    "github.com/matzehuels/devscout/pkg/candidate"
//	    "github.com/matzehuels/devscout/pkg/discovery"
//	    "github.com/matzehuels/devscout/pkg/integrations/github"
//	    "github.com/matzehuels/devscout/pkg/integrations/npm"
//	    "github.com/matzehuels/devscout/pkg/profile"
//	    "github.com/matzehuels/devscout/pkg/rank"
//	    "github.com/matzehuels/devscout/pkg/registry"
//	)
//
//	gh := github.NewClient(os.Getenv("GITHUB_TOKEN"))
//	sources := registry.NewSources(npm.NewClient(""), gh)
//	profiles := profile.New(gh, cache.NewMemoryCache(), profile.Options{})
//
//	orch := discovery.New(sources, profiles, discovery.Options{})
//	err := orch.Search(ctx, "react, typescript", candidate.ProvenanceNPM, rank.ModeOptimal)
//	err = orch.LoadMore(ctx)
//	for _, c := range orch.State().Results {
//	    fmt.Println(c.Username(), c.Impact.Tier)
//	}
//
// # Errors
//
// Every package reports failures through [errors], whose codes
// (INVALID_QUERY, RATE_LIMIT, FETCH_FAILED ...) survive wrapping and map
// onto HTTP statuses in the API server.
package pkg
