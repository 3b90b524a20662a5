// Package npm provides an HTTP client for the npm registry search API.
//
// # Overview
//
// This package queries the search endpoint of the npm registry
// (https://registry.npmjs.org/-/v1/search), which returns packages together
// with their publisher and a quality/popularity/maintenance score triple.
//
// # Usage
//
//	client := npm.NewClient("")
//	objs, err := client.Search(ctx, "keywords:react", 50, 0, rank.WeightsFor(rank.ModeOptimal))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, o := range objs {
//	    fmt.Println(o.Package.Name, o.Package.Publisher.Username)
//	}
//
// # Ranking
//
// The quality, popularity and maintenance query parameters are forwarded
// verbatim from [rank.Weights]; the registry applies them. The client has no
// opinion on ranking.
//
// [rank.Weights]: github.com/matzehuels/devscout/pkg/rank.Weights
package npm
