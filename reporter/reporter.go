package reporter

import (
	"context"

	"github.com/mysteriumnetwork/hostwall/record"
)

type Reporter interface {
	Report(ctx context.Context, records []record.Record) error
}
