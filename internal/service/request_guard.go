package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/observability"
)

type FailureMode string

const (
	FailOpen   FailureMode = "fail_open"
	FailClosed FailureMode = "fail_closed"
)

// QuotaPolicy sets a per-verb limit for one fixed window. A delete count
// beyond Limits[delete]+KillMargin trips the kill switch.
type QuotaPolicy struct {
	Window     time.Duration
	Limits     map[domain.Verb]int
	KillMargin int
}

func (p QuotaPolicy) limit(verb domain.Verb) int {
	if n, ok := p.Limits[verb]; ok && n > 0 {
		return n
	}
	return 1
}

type Decision struct {
	Verb       domain.Verb
	Allowed    bool
	Count      int64
	Limit      int
	Remaining  int
	ResetAt    time.Time
	KillSwitch KillOutcome
}

type RequestGuard struct {
	counters CounterStore
	policy   QuotaPolicy
	mode     FailureMode
	kill     *KillSwitch
	scope    string
	logger   *slog.Logger
}

func NewRequestGuard(counters CounterStore, policy QuotaPolicy, mode FailureMode, kill *KillSwitch, scope string, logger *slog.Logger) *RequestGuard {
	if policy.Window <= 0 {
		policy.Window = time.Minute
	}
	if scope == "" {
		scope = "memory"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestGuard{counters: counters, policy: policy, mode: mode, kill: kill, scope: scope, logger: logger}
}

// Check counts one request of the given verb for userID. It returns
// ErrRateLimited when the request must be rejected.
func (g *RequestGuard) Check(ctx context.Context, userID string, verb domain.Verb) (Decision, error) {
	limit := g.policy.limit(verb)
	decision := Decision{Verb: verb, Limit: limit}

	counter, err := g.counters.Increment(ctx, "user:"+userID+":"+string(verb), g.policy.Window)
	if err != nil {
		observability.RecordRateLimitDecision(ctx, g.scope, string(verb), "backend_error", string(g.mode))
		if g.mode == FailOpen {
			g.logger.Warn("rate limit counter unavailable, allowing request",
				"user_id", userID, "verb", string(verb), "error", err)
			decision.Allowed = true
			decision.Remaining = limit
			return decision, nil
		}
		decision.ResetAt = time.Now().Add(g.policy.Window)
		return decision, fmt.Errorf("%w: counter backend unavailable: %v", ErrRateLimited, err)
	}

	decision.Count = counter.Count
	decision.ResetAt = counter.ResetAt
	decision.Remaining = max(limit-int(counter.Count), 0)
	if counter.Count <= int64(limit) {
		decision.Allowed = true
		observability.RecordRateLimitDecision(ctx, g.scope, string(verb), "allow", string(g.mode))
		return decision, nil
	}

	observability.RecordRateLimitDecision(ctx, g.scope, string(verb), "deny", string(g.mode))
	if verb == domain.VerbDelete && counter.Count > int64(limit+g.policy.KillMargin) && g.kill != nil {
		decision.KillSwitch = g.kill.Trip(ctx, userID,
			fmt.Sprintf("%d delete requests within %s", counter.Count, g.policy.Window))
	}
	return decision, ErrRateLimited
}
