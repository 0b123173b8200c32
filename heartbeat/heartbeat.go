package heartbeat

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Summary describes a finished run.
type Summary struct {
	Duration  time.Duration
	Records   int
	Addresses int
	// Failed lists the techniques that did not run to completion.
	Failed []string
}

func (s Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d records for %d addresses in %s", s.Records, s.Addresses, s.Duration.Round(time.Millisecond))
	if len(s.Failed) > 0 {
		fmt.Fprintf(&sb, "; failed: %s", strings.Join(s.Failed, ", "))
	}
	return sb.String()
}

type Heartbeat interface {
	Beat(context.Context, Summary) error
}
