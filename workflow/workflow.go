package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/mysteriumnetwork/hostwall/enumerator"
	"github.com/mysteriumnetwork/hostwall/heartbeat"
	"github.com/mysteriumnetwork/hostwall/record"
	"github.com/mysteriumnetwork/hostwall/reporter"
	"github.com/mysteriumnetwork/hostwall/result"
	"github.com/mysteriumnetwork/hostwall/target"
	"github.com/mysteriumnetwork/hostwall/validator"
)

// FinishTimeout bounds reporting and the heartbeat once the run context
// is already done.
const FinishTimeout = 30 * time.Second

type StringMatcher interface {
	MatchString(string) bool
}

type Runner struct {
	enumerator enumerator.Enumerator
	nameFilter StringMatcher
	validator  validator.Validator
	drain      reporter.Reporter
	heartbeat  heartbeat.Heartbeat
	logger     logrus.FieldLogger
}

// NewRunner wires the stages of a run. Records with a name matched by
// filter are dropped; filter may be nil.
func NewRunner(enum enumerator.Enumerator, filter StringMatcher, v validator.Validator, drain reporter.Reporter, beat heartbeat.Heartbeat) *Runner {
	return &Runner{
		enumerator: enum,
		nameFilter: filter,
		validator:  v,
		drain:      drain,
		heartbeat:  beat,
		logger:     logrus.StandardLogger(),
	}
}

func (r *Runner) SetLogger(l logrus.FieldLogger) *Runner {
	r.logger = l
	return r
}

// Run enumerates set, optionally validates what was found, and hands the
// result to the reporter and the heartbeat. Techniques that could not run
// because of configuration or rejected credentials are returned as errors
// after reporting. An interrupted validation keeps the records confirmed
// so far and still reports them.
func (r *Runner) Run(ctx context.Context, set *target.Set, validate bool) ([]record.Record, error) {
	started := time.Now()

	records, outcomes := r.enumerator.Enumerate(ctx, set)
	failed, sourceErrs := r.logOutcomes(outcomes)

	records = r.filter(records)

	if validate && r.validator != nil {
		validated, err := r.validator.Validate(ctx, records)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			r.logger.WithError(err).Warnf("validation interrupted, reporting %d confirmed records", len(validated))
			sourceErrs = multierror.Append(sourceErrs, fmt.Errorf("validation interrupted: %w", err))
		case err != nil:
			return nil, fmt.Errorf("validation error: %w", err)
		}
		r.logger.Infof("%d of %d records confirmed by forward lookups", len(validated), len(records))
		records = validated
	}

	records = record.Dedupe(records)
	sort.Stable(record.Records(records))

	finishCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		finishCtx, cancel = context.WithTimeout(context.Background(), FinishTimeout)
		defer cancel()
	}

	if err := r.drain.Report(finishCtx, records); err != nil {
		return records, fmt.Errorf("reporting error: %w", err)
	}

	summary := heartbeat.Summary{
		Duration:  time.Since(started),
		Records:   len(records),
		Addresses: len(record.Group(records)),
		Failed:    failed,
	}
	if err := r.heartbeat.Beat(finishCtx, summary); err != nil {
		return records, fmt.Errorf("heartbeat error: %w", err)
	}

	return records, sourceErrs
}

func (r *Runner) filter(records []record.Record) []record.Record {
	if r.nameFilter == nil {
		return records
	}
	var res []record.Record
	for _, rec := range records {
		if !r.nameFilter.MatchString(rec.Name) {
			res = append(res, rec)
		}
	}
	return res
}

func (r *Runner) logOutcomes(outcomes []result.Outcome) ([]string, error) {
	var (
		failed []string
		errs   error
	)
	for _, o := range outcomes {
		log := r.logger.WithFields(logrus.Fields{
			"source":  o.Source,
			"units":   o.Units,
			"records": o.Records,
		})
		if o.Error == nil {
			log.Info("technique finished")
			continue
		}

		failed = append(failed, o.Source)
		log = log.WithError(o.Error)
		switch o.Error.Kind() {
		case result.WildcardError:
			log.Warn("technique skipped: domain answers any name")
		case result.InterruptedError:
			log.Warn("technique interrupted")
		case result.AuthenticationError:
			log.Error("technique aborted: credentials rejected")
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", o.Source, o.Error))
		default:
			log.Error("technique not run: configuration error")
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", o.Source, o.Error))
		}
	}
	return failed, errs
}
