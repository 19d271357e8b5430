package module

import "testing"

// FakeResolver is a test double for Resolver: results is consulted in
// call order per alias, the last entry repeating once exhausted.
type FakeResolver struct {
	results map[string][]Result
	calls   []string
}

func newFakeResolver(results map[string][]Result) *FakeResolver {
	return &FakeResolver{results: results}
}

func (f *FakeResolver) Load(alias, blacklistPath string) Result {
	f.calls = append(f.calls, alias)
	seq := f.results[alias]
	if len(seq) == 0 {
		return 0
	}
	r := seq[0]
	if len(seq) > 1 {
		f.results[alias] = seq[1:]
	}
	return r
}

func TestAutoloader_SuccessfulLoadIsNotQueued(t *testing.T) {
	resolver := newFakeResolver(map[string][]Result{"platform:foo": {0}})
	a := NewAutoloader(resolver, "/blacklist")

	a.Trigger("platform:foo")

	if a.DeferredCount() != 0 {
		t.Fatalf("expected nothing queued, got %d", a.DeferredCount())
	}
}

func TestAutoloader_RetryableFailureIsQueued(t *testing.T) {
	resolver := newFakeResolver(map[string][]Result{"platform:bar": {BadDep}})
	a := NewAutoloader(resolver, "/blacklist")

	a.Trigger("platform:bar")

	if a.DeferredCount() != 1 {
		t.Fatalf("expected one queued alias, got %d", a.DeferredCount())
	}
}

func TestAutoloader_DeferredRetrySucceedsAndDrainsQueue(t *testing.T) {
	resolver := newFakeResolver(map[string][]Result{
		"platform:bar": {BadDep, 0},
	})
	a := NewAutoloader(resolver, "/blacklist")

	a.Trigger("platform:bar")
	if a.DeferredCount() != 1 {
		t.Fatalf("expected one queued alias after first failure, got %d", a.DeferredCount())
	}

	// The next uevent (any modalias, even empty) drains the deferred
	// queue before considering its own alias.
	a.Trigger("")

	if a.DeferredCount() != 0 {
		t.Fatalf("expected queue drained after successful retry, got %d", a.DeferredCount())
	}
}

func TestAutoloader_EmptyModaliasStillDrainsQueue(t *testing.T) {
	resolver := newFakeResolver(map[string][]Result{"platform:bar": {BadDep}})
	a := NewAutoloader(resolver, "/blacklist")
	a.Trigger("platform:bar")

	calls := len(resolver.calls)
	a.Trigger("")

	if len(resolver.calls) != calls+1 {
		t.Fatalf("expected deferred retry attempted even with empty modalias")
	}
}

func TestAutoloader_DedupsRepeatedQueueing(t *testing.T) {
	resolver := newFakeResolver(map[string][]Result{"platform:bar": {BadDep, BadDep, BadDep}})
	a := NewAutoloader(resolver, "/blacklist")

	a.Trigger("platform:bar")
	a.Trigger("platform:bar")

	if a.DeferredCount() != 1 {
		t.Fatalf("expected dedup to keep queue at 1, got %d", a.DeferredCount())
	}
}

func TestResult_RetryLater(t *testing.T) {
	if (Result(0)).RetryLater() {
		t.Fatal("zero result should not retry")
	}
	if !BadDep.RetryLater() || !InvalidCallerBlack.RetryLater() || !BadAlias.RetryLater() {
		t.Fatal("each classified failure should retry")
	}
}
