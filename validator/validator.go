// Package validator cross-checks gathered records before they are reported.
package validator

import (
	"context"

	"github.com/mysteriumnetwork/hostwall/record"
)

type Validator interface {
	Validate(context.Context, []record.Record) ([]record.Record, error)
}
