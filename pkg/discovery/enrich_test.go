package discovery

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/matzehuels/devscout/pkg/candidate"
	errs "github.com/matzehuels/devscout/pkg/errors"
)

func records(n int) []candidate.Record {
	recs := make([]candidate.Record, n)
	for i := range recs {
		user := fmt.Sprintf("user%d", i)
		recs[i] = candidate.Record{Name: user + "-pkg", Publisher: &candidate.Person{Username: user}}
	}
	return recs
}

func TestEnrichBatchCap(t *testing.T) {
	var (
		mu    sync.Mutex
		asked = map[string]bool{}
	)
	fn := func(_ context.Context, login string) (*candidate.Profile, error) {
		mu.Lock()
		asked[login] = true
		mu.Unlock()
		return &candidate.Profile{Login: login}, nil
	}

	out, res, err := EnrichBatch(context.Background(), records(20), 15, fn)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 20 {
		t.Fatalf("len(out) = %d, want 20", len(out))
	}
	for i, c := range out {
		want := i < 15
		if c.Enriched() != want || asked[c.Username()] != want {
			t.Errorf("candidate %d enriched=%v asked=%v, want %v", i, c.Enriched(), asked[c.Username()], want)
		}
	}
	if res.Attempted != 15 || res.Enriched != 15 {
		t.Errorf("result = %+v", res)
	}
}

func TestEnrichBatchPreservesOrder(t *testing.T) {
	last := make(chan struct{})
	fn := func(_ context.Context, login string) (*candidate.Profile, error) {
		switch login {
		case "user0":
			<-last
		case "user14":
			defer close(last)
		}
		return &candidate.Profile{Login: login}, nil
	}

	out, _, err := EnrichBatch(context.Background(), records(15), 15, fn)
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range out {
		want := fmt.Sprintf("user%d", i)
		if c.Username() != want || c.Profile.Login != want {
			t.Errorf("out[%d] = %s/%s, want %s", i, c.Username(), c.Profile.Login, want)
		}
	}
}

func TestEnrichBatchRateLimit(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context, login string) (*candidate.Profile, error) {
		calls.Add(1)
		if login == "user3" {
			return nil, &errs.RateLimitError{Status: 403}
		}
		// Everyone else waits for the batch to be cancelled.
		<-ctx.Done()
		return nil, nil
	}

	out, res, err := EnrichBatch(context.Background(), records(20), 15, fn)
	if !errs.IsRateLimit(err) {
		t.Fatalf("error = %v, want RateLimitError", err)
	}
	if len(out) != 20 {
		t.Fatalf("len(out) = %d, want all 20 candidates kept", len(out))
	}
	for i, c := range out {
		if c.Enriched() {
			t.Errorf("candidate %d unexpectedly enriched", i)
		}
		if c.Username() != fmt.Sprintf("user%d", i) {
			t.Errorf("out[%d] out of order", i)
		}
	}
	if res.Enriched != 0 {
		t.Errorf("Enriched = %d", res.Enriched)
	}
}

func TestEnrichBatchSwallowsOtherErrors(t *testing.T) {
	fn := func(_ context.Context, login string) (*candidate.Profile, error) {
		if login == "user1" {
			return nil, &errs.RegistryError{Status: 500}
		}
		return &candidate.Profile{Login: login}, nil
	}

	out, res, err := EnrichBatch(context.Background(), records(3), 15, fn)
	if err != nil {
		t.Fatalf("error = %v, want nil", err)
	}
	if !out[0].Enriched() || out[1].Enriched() || !out[2].Enriched() {
		t.Errorf("enriched flags = %v %v %v", out[0].Enriched(), out[1].Enriched(), out[2].Enriched())
	}
	if res.Enriched != 2 {
		t.Errorf("Enriched = %d, want 2", res.Enriched)
	}
}

func TestEnrichBatchUsesRepositoryOwner(t *testing.T) {
	rec := candidate.Record{
		Name:      "thing",
		Publisher: &candidate.Person{Username: "npm-alias"},
		Links:     candidate.Links{Repository: "git+https://github.com/realowner/thing.git"},
	}
	var got string
	fn := func(_ context.Context, login string) (*candidate.Profile, error) {
		got = login
		return nil, nil
	}
	EnrichBatch(context.Background(), []candidate.Record{rec}, 15, fn)
	if got != "realowner" {
		t.Errorf("looked up %q, want realowner", got)
	}
}

func TestEnrichBatchNilFunc(t *testing.T) {
	out, res, err := EnrichBatch(context.Background(), records(2), 15, nil)
	if err != nil || len(out) != 2 || res.Attempted != 0 {
		t.Errorf("EnrichBatch(nil fn) = %d, %+v, %v", len(out), res, err)
	}
}
