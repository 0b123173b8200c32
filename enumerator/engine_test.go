package enumerator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mysteriumnetwork/hostwall/record"
	"github.com/mysteriumnetwork/hostwall/result"
	"github.com/mysteriumnetwork/hostwall/source"
	"github.com/mysteriumnetwork/hostwall/target"
)

// countingSource emits one record per unit and fails every unit listed in
// fail. It tracks how many lookups started and settled.
type countingSource struct {
	tag      string
	planErr  error
	fail     map[string]error
	delay    time.Duration
	started  int32
	settled  int32
	inFlight int32
	peak     int32
}

func (s *countingSource) Tag() string {
	return s.tag
}

func (s *countingSource) Plan(_ context.Context, set *target.Set) (*source.Job, error) {
	if s.planErr != nil {
		return nil, s.planErr
	}
	return &source.Job{
		Units:  set.IPs,
		Lookup: s.lookup,
	}, nil
}

func (s *countingSource) lookup(ctx context.Context, ip string) ([]record.Record, error) {
	atomic.AddInt32(&s.started, 1)
	defer atomic.AddInt32(&s.settled, 1)

	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&s.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&s.peak, peak, n) {
			break
		}
	}

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if err := s.fail[ip]; err != nil {
		return nil, err
	}
	return []record.Record{{IP: ip, Name: s.tag + ".example.com", Source: s.tag}}, nil
}

func ips(n int) []string {
	res := make([]string, n)
	for i := range res {
		res[i] = fmt.Sprintf("10.0.0.%d", i+1)
	}
	return res
}

func mustSet(t *testing.T, ips []string) *target.Set {
	t.Helper()
	set, err := target.New(ips, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	return set
}

func TestEngineMergesSources(t *testing.T) {
	a := &countingSource{tag: "a"}
	b := &countingSource{tag: "b", fail: map[string]error{"10.0.0.2": errors.New("timeout")}}
	set := mustSet(t, ips(4))

	recs, outcomes := NewEngine(2, a, b).Enumerate(context.Background(), set)

	if len(recs) != 7 {
		t.Errorf("got %d records, want 7", len(recs))
	}
	if len(outcomes) != 2 || outcomes[0].Source != "a" || outcomes[1].Source != "b" {
		t.Fatalf("unexpected outcomes %+v", outcomes)
	}
	for _, o := range outcomes {
		if o.Error != nil {
			t.Errorf("%s: unexpected error %v", o.Source, o.Error)
		}
		if o.Units != 4 {
			t.Errorf("%s: units = %d", o.Source, o.Units)
		}
	}
	if outcomes[1].Records != 3 {
		t.Errorf("b records = %d, want 3", outcomes[1].Records)
	}
	for _, s := range []*countingSource{a, b} {
		if s.started != 4 || s.settled != 4 {
			t.Errorf("%s: started %d settled %d", s.tag, s.started, s.settled)
		}
	}
}

func TestEngineConcurrencyCeiling(t *testing.T) {
	cases := []struct {
		limit int
		want  int32
	}{
		{3, 3},
		{0, 12},
		{-1, 12},
	}
	for _, c := range cases {
		s := &countingSource{tag: "slow", delay: 30 * time.Millisecond}
		NewEngine(c.limit, s).Enumerate(context.Background(), mustSet(t, ips(12)))
		if c.limit > 0 && s.peak > c.want {
			t.Errorf("limit %d: peak %d", c.limit, s.peak)
		}
		if c.limit <= 0 && s.peak != c.want {
			t.Errorf("limit %d: peak %d, want all at once", c.limit, s.peak)
		}
		if s.settled != 12 {
			t.Errorf("limit %d: settled %d", c.limit, s.settled)
		}
	}
}

func TestEngineClassifiesOutcomes(t *testing.T) {
	unauthorized := fmt.Errorf("%w: 401", source.ErrUnauthorized)
	sources := []*countingSource{
		{tag: "config", planErr: fmt.Errorf("%w: no domain", source.ErrConfiguration)},
		{tag: "wildcard", planErr: fmt.Errorf("%w: *.example.com", source.ErrWildcard)},
		{tag: "auth", fail: map[string]error{"10.0.0.1": unauthorized}, delay: 10 * time.Millisecond},
		{tag: "fine"},
	}
	srcs := make([]source.Source, len(sources))
	for i, s := range sources {
		srcs[i] = s
	}

	_, outcomes := NewEngine(1, srcs...).Enumerate(context.Background(), mustSet(t, ips(10)))

	want := map[string]result.ErrorKind{
		"config":   result.ConfigurationError,
		"wildcard": result.WildcardError,
		"auth":     result.AuthenticationError,
	}
	for _, o := range outcomes {
		kind, failed := want[o.Source]
		if !failed {
			if o.Error != nil {
				t.Errorf("%s: unexpected error %v", o.Source, o.Error)
			}
			continue
		}
		if o.Error == nil || o.Error.Kind() != kind {
			t.Errorf("%s: error %v, want kind %v", o.Source, o.Error, kind)
		}
	}

	if !errors.Is(outcomes[2].Error, source.ErrUnauthorized) {
		t.Error("authentication outcome does not unwrap to ErrUnauthorized")
	}
	if sources[2].started >= 10 {
		t.Errorf("auth failure did not stop dispatch, %d lookups started", sources[2].started)
	}
	if sources[2].started != sources[2].settled {
		t.Errorf("started %d settled %d", sources[2].started, sources[2].settled)
	}
}

func TestEngineCancellation(t *testing.T) {
	s := &countingSource{tag: "slow", delay: 50 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	recs, outcomes := NewEngine(2, s).Enumerate(ctx, mustSet(t, ips(20)))

	if outcomes[0].Error == nil || outcomes[0].Error.Kind() != result.InterruptedError {
		t.Fatalf("error = %v, want interrupted", outcomes[0].Error)
	}
	if s.started != s.settled {
		t.Errorf("started %d settled %d", s.started, s.settled)
	}
	if s.started >= 20 {
		t.Errorf("dispatch did not stop, %d started", s.started)
	}
	if len(recs) != outcomes[0].Records {
		t.Errorf("returned %d records, outcome says %d", len(recs), outcomes[0].Records)
	}
}

func TestRun(t *testing.T) {
	s := &countingSource{tag: "one"}
	recs, err := Run(context.Background(), s, mustSet(t, ips(3)), 0)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]string, 0, len(recs))
	for _, r := range recs {
		got = append(got, r.IP)
	}
	sort.Strings(got)
	if fmt.Sprint(got) != "[10.0.0.1 10.0.0.2 10.0.0.3]" {
		t.Errorf("records for %v", got)
	}

	_, err = RunDictionary(context.Background(), mustSet(t, ips(1)), nil, 0)
	var se result.SourceError
	if !errors.As(err, &se) || se.Kind() != result.ConfigurationError {
		t.Errorf("RunDictionary without domain: %v", err)
	}
}

func TestEngineRateLimitPastDeadline(t *testing.T) {
	s := &countingSource{tag: "paced"}
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, outcomes := NewEngine(5, s).SetRateLimit("paced", 200*time.Millisecond).
		Enumerate(ctx, mustSet(t, ips(5)))

	if outcomes[0].Error == nil || outcomes[0].Error.Kind() != result.InterruptedError {
		t.Fatalf("error = %v, want interrupted", outcomes[0].Error)
	}
	if s.started >= 5 {
		t.Errorf("all lookups started despite the deadline")
	}
}
