// Package enumerator runs lookup techniques against a Target Set and merges
// what they find.
package enumerator

import (
	"context"

	"github.com/mysteriumnetwork/hostwall/record"
	"github.com/mysteriumnetwork/hostwall/result"
	"github.com/mysteriumnetwork/hostwall/target"
)

type Enumerator interface {
	// Enumerate returns every record found and one outcome per technique.
	Enumerate(ctx context.Context, set *target.Set) ([]record.Record, []result.Outcome)
}
