package fetch

import (
	"context"
	"sync"
	"time"

	"StockPulse/pkg/cache"
	applogger "StockPulse/pkg/logger"
)

// Circuit breaker states.
const (
	StateClosed   = "CLOSED"
	StateOpen     = "OPEN"
	StateHalfOpen = "HALF_OPEN"
)

// BreakerConfig tunes the per-source failure-tracking state machine.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
	HalfOpenMaxCalls int           `yaml:"half_open_max_calls"`
	SuccessThreshold int           `yaml:"success_threshold"`
}

// DefaultBreakerConfig returns the standard thresholds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		HalfOpenMaxCalls: 3,
		SuccessThreshold: 2,
	}
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	d := DefaultBreakerConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = d.RecoveryTimeout
	}
	if c.HalfOpenMaxCalls <= 0 {
		c.HalfOpenMaxCalls = d.HalfOpenMaxCalls
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = d.SuccessThreshold
	}
	return c
}

// BreakerStats is a read-only snapshot of one breaker, exposed over
// the API and persisted write-through to the cache.
type BreakerStats struct {
	Source              string     `json:"source"`
	State               string     `json:"state"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastFailureTime     *time.Time `json:"last_failure_time,omitempty"`
	LastSuccessTime     *time.Time `json:"last_success_time,omitempty"`
	HalfOpenCalls       int        `json:"half_open_calls"`
	HalfOpenSuccesses   int        `json:"half_open_successes"`
	TotalRequests       int64      `json:"total_requests"`
	TotalFailures       int64      `json:"total_failures"`
	TotalSuccesses      int64      `json:"total_successes"`
}

// Breaker is the per-source circuit breaker. It gates, it never
// errors: callers skip a source whose breaker refuses and move on.
type Breaker struct {
	name string
	cfg  BreakerConfig

	mu sync.Mutex
	st BreakerStats

	now     func() time.Time
	persist func(BreakerStats)
	onState func(source, state string)
}

// CanExecute reports whether a call to this source may proceed. The
// OPEN→HALF_OPEN transition is evaluated lazily here once the recovery
// timeout has elapsed.
func (b *Breaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canExecuteLocked()
}

func (b *Breaker) canExecuteLocked() bool {
	switch b.st.State {
	case StateClosed:
		return true
	case StateOpen:
		if b.st.LastFailureTime != nil && b.now().Sub(*b.st.LastFailureTime) >= b.cfg.RecoveryTimeout {
			b.transitionLocked(StateHalfOpen)
			return true
		}
		return false
	case StateHalfOpen:
		return b.st.HalfOpenCalls < b.cfg.HalfOpenMaxCalls
	}
	return false
}

// Acquire combines the admission check and request registration in one
// critical section, so concurrent callers cannot overshoot the
// half-open probe cap between a gate check and its registration. Every
// true return is paired with exactly one of OnSuccess / OnFailure /
// OnCancel.
func (b *Breaker) Acquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.canExecuteLocked() {
		return false
	}
	b.st.TotalRequests++
	if b.st.State == StateHalfOpen {
		b.st.HalfOpenCalls++
	}
	return true
}

func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.st.TotalSuccesses++
	b.st.LastSuccessTime = &now

	switch b.st.State {
	case StateClosed:
		b.st.ConsecutiveFailures = 0
	case StateHalfOpen:
		b.st.HalfOpenSuccesses++
		if b.st.HalfOpenSuccesses >= b.cfg.SuccessThreshold {
			b.transitionLocked(StateClosed)
		}
	}
	b.persistLocked()
}

func (b *Breaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.st.TotalFailures++
	b.st.ConsecutiveFailures++
	b.st.LastFailureTime = &now

	switch b.st.State {
	case StateClosed:
		if b.st.ConsecutiveFailures >= b.cfg.FailureThreshold {
			b.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		// any half-open failure reopens immediately
		b.transitionLocked(StateOpen)
	}
	b.persistLocked()
}

// OnCancel unwinds a request bracket whose call was abandoned by the
// caller (a lost race), so a cancelled attempt neither damages nor
// credits the source.
func (b *Breaker) OnCancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.st.TotalRequests > 0 {
		b.st.TotalRequests--
	}
	if b.st.State == StateHalfOpen && b.st.HalfOpenCalls > 0 {
		b.st.HalfOpenCalls--
	}
}

// Snapshot returns a copy of the current stats.
func (b *Breaker) Snapshot() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st
}

func (b *Breaker) transitionLocked(state string) {
	b.st.State = state
	switch state {
	case StateClosed:
		b.st.ConsecutiveFailures = 0
		b.st.HalfOpenCalls = 0
		b.st.HalfOpenSuccesses = 0
	case StateHalfOpen:
		b.st.HalfOpenCalls = 0
		b.st.HalfOpenSuccesses = 0
	}
	if b.onState != nil {
		b.onState(b.name, state)
	}
}

func (b *Breaker) persistLocked() {
	if b.persist != nil {
		b.persist(b.st)
	}
}

// BreakerSet owns one breaker per source name. In-memory state is the
// source of truth; when a cache service is attached, state is written
// through so restarts start warm, and load failures just mean a fresh
// CLOSED breaker.
type BreakerSet struct {
	cfg    BreakerConfig
	store  cache.Service
	logger *applogger.Logger
	now    func() time.Time

	onState func(source, state string)

	mu       sync.Mutex
	breakers map[string]*Breaker
}

const breakerKeyPrefix = "breaker"
const breakerStateTTL = 24 * time.Hour

// NewBreakerSet creates the breaker registry. store may be nil, in
// which case state is volatile and every breaker starts CLOSED.
func NewBreakerSet(cfg BreakerConfig, store cache.Service, log *applogger.Logger) *BreakerSet {
	return &BreakerSet{
		cfg:      cfg.withDefaults(),
		store:    store,
		logger:   log,
		now:      time.Now,
		breakers: make(map[string]*Breaker),
	}
}

// OnStateChange registers a hook invoked on every state transition,
// used for metrics.
func (s *BreakerSet) OnStateChange(fn func(source, state string)) { s.onState = fn }

// For returns the breaker for a source name, creating it on first use.
func (s *BreakerSet) For(name string) *Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.breakers[name]; ok {
		return b
	}
	b := &Breaker{
		name:    name,
		cfg:     s.cfg,
		st:      BreakerStats{Source: name, State: StateClosed},
		now:     s.now,
		onState: s.onState,
	}
	if s.store != nil {
		s.loadState(b)
		b.persist = func(st BreakerStats) { s.saveState(name, st) }
	}
	s.breakers[name] = b
	return b
}

// Stats snapshots every known breaker.
func (s *BreakerSet) Stats() map[string]BreakerStats {
	s.mu.Lock()
	names := make([]*Breaker, 0, len(s.breakers))
	for _, b := range s.breakers {
		names = append(names, b)
	}
	s.mu.Unlock()

	out := make(map[string]BreakerStats, len(names))
	for _, b := range names {
		st := b.Snapshot()
		out[st.Source] = st
	}
	return out
}

// Reset forces a breaker back to CLOSED.
func (s *BreakerSet) Reset(name string) {
	b := s.For(name)
	b.mu.Lock()
	b.transitionLocked(StateClosed)
	b.persistLocked()
	b.mu.Unlock()
}

func (s *BreakerSet) loadState(b *Breaker) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var st BreakerStats
	if err := s.store.Get(ctx, cache.GenerateKey(breakerKeyPrefix, b.name), &st); err != nil {
		// missing or unreachable store: start CLOSED
		return
	}
	if st.State == "" {
		return
	}
	st.Source = b.name
	b.st = st
}

func (s *BreakerSet) saveState(name string, st BreakerStats) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.store.Set(ctx, cache.GenerateKey(breakerKeyPrefix, name), st, breakerStateTTL); err != nil && s.logger != nil {
		s.logger.Warn("breaker state persist failed",
			applogger.String("source", name), applogger.Error(err))
	}
}
