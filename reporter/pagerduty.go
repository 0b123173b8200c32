package reporter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PagerDuty/go-pagerduty"
	"github.com/hashicorp/go-multierror"

	"github.com/mysteriumnetwork/hostwall/record"
)

type eventSender func(ctx context.Context, e pagerduty.V2Event) (*pagerduty.V2EventResponse, error)

// PagerDutyReporter sends an informational event for every address with
// the names found for it.
type PagerDutyReporter struct {
	routingKey string
	send       eventSender
}

func NewPagerDutyReporter(routingKey string) *PagerDutyReporter {
	return &PagerDutyReporter{
		routingKey: routingKey,
		send:       pagerduty.ManageEventWithContext,
	}
}

func (r *PagerDutyReporter) Report(ctx context.Context, records []record.Record) error {
	var resultErr error

	grouped := record.Group(records)
	for _, ip := range grouped.IPs() {
		names := grouped[ip]
		event := pagerduty.V2Event{
			RoutingKey: r.routingKey,
			Action:     "trigger",
			DedupKey:   fmt.Sprintf("hostwall/%s", ip),
			Payload: &pagerduty.V2Payload{
				Summary:   fmt.Sprintf("%s is known as %s", ip, strings.Join(names, ", ")),
				Source:    ip,
				Severity:  "info",
				Timestamp: time.Now().UTC().Format(time.RFC3339),
				Details: map[string]interface{}{
					"names": names,
				},
			},
		}

		if _, err := r.send(ctx, event); err != nil {
			resultErr = multierror.Append(resultErr, fmt.Errorf("event for %s: %w", ip, err))
		}
	}

	return resultErr
}
