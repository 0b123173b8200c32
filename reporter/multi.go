package reporter

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"github.com/mysteriumnetwork/hostwall/record"
)

type MultiReporter struct {
	reporters []Reporter
}

func NewMultiReporter(reporters ...Reporter) *MultiReporter {
	return &MultiReporter{
		reporters: reporters,
	}
}

func (r *MultiReporter) Report(ctx context.Context, records []record.Record) error {
	var result error

	for _, reporter := range r.reporters {
		if err := reporter.Report(ctx, records); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result
}
