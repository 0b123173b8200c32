package enumerator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/mysteriumnetwork/hostwall/queue"
	"github.com/mysteriumnetwork/hostwall/record"
	"github.com/mysteriumnetwork/hostwall/result"
	"github.com/mysteriumnetwork/hostwall/source"
	"github.com/mysteriumnetwork/hostwall/target"
)

// Engine runs all of its sources at once, each through its own bounded
// queue.
type Engine struct {
	concurrency int
	sources     []source.Source
	rates       map[string]time.Duration
	logger      logrus.FieldLogger
}

func NewEngine(concurrency int, sources ...source.Source) *Engine {
	return &Engine{
		concurrency: concurrency,
		sources:     sources,
		rates:       make(map[string]time.Duration),
		logger:      logrus.StandardLogger(),
	}
}

func (e *Engine) SetLogger(l logrus.FieldLogger) *Engine {
	e.logger = l
	return e
}

// SetRateLimit spaces lookups of the technique tag at least every apart.
func (e *Engine) SetRateLimit(tag string, every time.Duration) *Engine {
	e.rates[tag] = every
	return e
}

func (e *Engine) Enumerate(ctx context.Context, set *target.Set) ([]record.Record, []result.Outcome) {
	var (
		wg       sync.WaitGroup
		mux      sync.Mutex
		records  []record.Record
		outcomes = make([]result.Outcome, len(e.sources))
	)

	wg.Add(len(e.sources))
	for idx, src := range e.sources {
		go func(idx int, src source.Source) {
			defer wg.Done()

			recs, outcome := e.run(ctx, src, set)
			outcomes[idx] = outcome

			mux.Lock()
			defer mux.Unlock()
			records = append(records, recs...)
		}(idx, src)
	}

	wg.Wait()
	return records, outcomes
}

func (e *Engine) run(ctx context.Context, src source.Source, set *target.Set) ([]record.Record, result.Outcome) {
	tag := src.Tag()
	outcome := result.Outcome{Source: tag}
	log := e.logger.WithField("source", tag)

	job, err := src.Plan(ctx, set)
	if err != nil {
		outcome.Error = classify(ctx, err)
		return nil, outcome
	}
	outcome.Units = len(job.Units)

	q := queue.New[string](e.concurrency).OnError(func(unit string, err error) {
		log.WithField("unit", unit).WithError(err).Debug("lookup failed")
	})
	if every := e.rates[tag]; every > 0 {
		q.WithLimiter(rate.NewLimiter(rate.Every(every), 1))
	}

	recs, err := q.Run(ctx, job.Units, func(ctx context.Context, unit string) ([]record.Record, error) {
		recs, err := job.Lookup(ctx, unit)
		if errors.Is(err, source.ErrUnauthorized) {
			return nil, queue.Abort(err)
		}
		return recs, err
	})
	if err != nil {
		outcome.Error = classify(ctx, err)
	}
	outcome.Records = len(recs)

	return recs, outcome
}

// classify sorts an error that ended a technique into a result kind. Plan
// failures other than the known ones mean a precondition of the technique
// could not be met.
func classify(ctx context.Context, err error) result.SourceError {
	switch {
	case errors.Is(err, source.ErrUnauthorized):
		return result.NewSourceError(result.AuthenticationError, err)
	case errors.Is(err, source.ErrWildcard):
		return result.NewSourceError(result.WildcardError, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil:
		return result.NewSourceError(result.InterruptedError, err)
	default:
		return result.NewSourceError(result.ConfigurationError, err)
	}
}
