package module

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ueventd/ueventd/pkg/logging"
	"github.com/ueventd/ueventd/pkg/metrics"
)

// Autoloader drives the module-loading sequence spec.md §4.6 and §8
// scenario 5 describe: drain the deferred queue on every call, then attempt
// the newly observed modalias, pushing it onto the queue if that attempt
// itself looks retryable.
type Autoloader struct {
	resolver      Resolver
	blacklistPath string
	logger        *zap.Logger

	mu       sync.Mutex
	deferred []string
	seen     map[string]bool
}

// NewAutoloader returns an Autoloader backed by resolver, consulting
// blacklistPath on every load attempt.
func NewAutoloader(resolver Resolver, blacklistPath string) *Autoloader {
	logger := logging.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Autoloader{
		resolver:      resolver,
		blacklistPath: blacklistPath,
		logger:        logger,
		seen:          make(map[string]bool),
	}
}

// Trigger implements handle_module_loading: drain the deferred queue, then
// attempt modalias (a no-op if it is empty, matching "if (!modalias)
// return").
func (a *Autoloader) Trigger(modalias string) {
	a.drainDeferred()

	if modalias == "" {
		return
	}

	if !a.attempt(modalias) {
		a.defer_(modalias)
	}
}

// attempt runs one load and reports whether the outcome was terminal; a
// false return means the alias should be (re)queued for a later pass.
func (a *Autoloader) attempt(alias string) bool {
	result := a.resolver.Load(alias, a.blacklistPath)
	switch {
	case result.RetryLater():
		metrics.RecordModuleLoadAttempt("deferred")
		return false
	case result == 0:
		metrics.RecordModuleLoadAttempt("success")
		return true
	default:
		metrics.RecordModuleLoadAttempt("failed")
		return true
	}
}

// drainDeferred implements handle_deferred_module_loading: retry every
// queued alias, keeping only the ones that still look retryable.
func (a *Autoloader) drainDeferred() {
	a.mu.Lock()
	pending := a.deferred
	a.deferred = nil
	for _, alias := range pending {
		delete(a.seen, alias)
	}
	a.mu.Unlock()

	for _, alias := range pending {
		a.logger.Info("deferred module load retry", zap.String("alias", alias))
		if !a.attempt(alias) {
			a.defer_(alias)
		}
	}
}

// defer_ pushes alias onto the retry queue unless it is already queued;
// the donor's list is unbounded and allows duplicates, but since a single
// modalias is the overwhelmingly common key this repo dedups to keep the
// queue from growing unboundedly under a persistently-missing dependency.
func (a *Autoloader) defer_(alias string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.seen[alias] {
		return
	}
	a.seen[alias] = true
	a.deferred = append(a.deferred, alias)
	a.logger.Info("queued module for deferred loading", zap.String("alias", alias))
}

// DeferredCount reports how many aliases are currently queued for retry,
// for status reporting.
func (a *Autoloader) DeferredCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.deferred)
}
