//go:build integration

package npm

import (
	"context"
	"testing"
	"time"

	"github.com/matzehuels/devscout/pkg/rank"
)

func TestSearch_Integration(t *testing.T) {
	client := NewClient("")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	objs, err := client.Search(ctx, "keywords:react", 10, 0, rank.WeightsFor(rank.ModeOptimal))
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(objs) == 0 {
		t.Fatal("expected results for keywords:react")
	}
	for _, o := range objs {
		if o.Package.Name == "" {
			t.Error("package name should not be empty")
		}
	}
}
