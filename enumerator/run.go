package enumerator

import (
	"context"
	"time"

	"github.com/mysteriumnetwork/hostwall/record"
	"github.com/mysteriumnetwork/hostwall/resolver"
	"github.com/mysteriumnetwork/hostwall/source"
	"github.com/mysteriumnetwork/hostwall/target"
)

// Run runs a single source and returns its records. The error is set when
// the technique could not run to completion.
func Run(ctx context.Context, src source.Source, set *target.Set, concurrency int) ([]record.Record, error) {
	recs, outcomes := NewEngine(concurrency, src).Enumerate(ctx, set)
	if err := outcomes[0].Error; err != nil {
		return recs, err
	}
	return recs, nil
}

func RunDictionary(ctx context.Context, set *target.Set, r resolver.Resolver, concurrency int) ([]record.Record, error) {
	return Run(ctx, source.NewDictionary(r), set, concurrency)
}

func RunReverse(ctx context.Context, set *target.Set, r resolver.Resolver, concurrency int) ([]record.Record, error) {
	return Run(ctx, source.NewReverse(r), set, concurrency)
}

func RunCertificate(ctx context.Context, set *target.Set, timeout time.Duration, concurrency int) ([]record.Record, error) {
	return Run(ctx, source.NewCertificate(timeout), set, concurrency)
}

// RunSearch queries the search API when apiKey is given and scrapes the
// search engine otherwise.
func RunSearch(ctx context.Context, set *target.Set, apiKey string, timeout time.Duration, concurrency int) ([]record.Record, error) {
	if apiKey != "" {
		return Run(ctx, source.NewBingAPI(apiKey, timeout), set, concurrency)
	}
	return Run(ctx, source.NewBingWeb(timeout), set, concurrency)
}

func RunPassiveDNS(ctx context.Context, set *target.Set, timeout time.Duration, concurrency int) ([]record.Record, error) {
	return Run(ctx, source.NewPassiveDNS(timeout), set, concurrency)
}

func RunHeaders(ctx context.Context, set *target.Set, timeout time.Duration, concurrency int) ([]record.Record, error) {
	return Run(ctx, source.NewHeaders(timeout), set, concurrency)
}
